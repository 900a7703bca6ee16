package pattern

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/region"
)

var _ = Describe("Resolver", func() {
	var (
		registry *region.Registry
		reg      *region.Region
		rng      *rand.Rand
	)

	BeforeEach(func() {
		registry = region.NewRegistry()
		reg, _ = registry.Create(region.Spec{Name: "a", Size: 1024})
		rng = rand.New(rand.NewPCG(1, 2))
	})

	Context("sequential access", func() {
		It("should advance by the stride and wrap", func() {
			p := &Pattern{Region: reg, Stride: 64, Probability: 1}
			r := NewResolver(p, 1)

			for i := 0; i < 40; i++ {
				Expect(r.NextOffset(0, rng)).To(Equal(uint64(i%16) * 64))
			}
		})

		It("should wrap strides that do not divide the sub size", func() {
			sub, _ := registry.Create(
				region.Spec{Name: "b", Size: 1024, SubSize: 100})
			p := &Pattern{Region: sub, Stride: 30}
			r := NewResolver(p, 1)

			var offsets []uint64
			for i := 0; i < 6; i++ {
				offsets = append(offsets, r.NextOffset(0, rng))
			}

			Expect(offsets).To(Equal([]uint64{0, 30, 60, 90, 20, 50}))
		})

		It("should handle strides larger than the sub size", func() {
			sub, _ := registry.Create(
				region.Spec{Name: "b", Size: 1024, SubSize: 100})
			p := &Pattern{Region: sub, Stride: 250}
			r := NewResolver(p, 1)

			Expect(r.NextOffset(0, rng)).To(Equal(uint64(0)))
			Expect(r.NextOffset(0, rng)).To(Equal(uint64(50)))
			Expect(r.NextOffset(0, rng)).To(Equal(uint64(0)))
		})

		It("should keep threads independent", func() {
			p := &Pattern{Region: reg, Stride: 64}
			r := NewResolver(p, 2)

			Expect(r.NextOffset(0, rng)).To(Equal(uint64(0)))
			Expect(r.NextOffset(0, rng)).To(Equal(uint64(64)))
			Expect(r.NextOffset(0, rng)).To(Equal(uint64(128)))

			Expect(r.NextOffset(1, rng)).To(Equal(uint64(0)))
			Expect(r.NextOffset(1, rng)).To(Equal(uint64(64)))

			Expect(r.NextOffset(0, rng)).To(Equal(uint64(192)))
		})
	})

	Context("random access", func() {
		It("should stay inside the sub size", func() {
			sub, _ := registry.Create(
				region.Spec{Name: "b", Size: 1024, SubSize: 100})
			p := &Pattern{Region: sub, RandomAccess: true, Stride: 4096}
			r := NewResolver(p, 1)

			for i := 0; i < 10000; i++ {
				Expect(r.NextOffset(0, rng)).To(BeNumerically("<", 100))
			}
		})

		It("should be roughly uniform", func() {
			p := &Pattern{Region: reg, RandomAccess: true}
			r := NewResolver(p, 1)

			buckets := make([]int, 8)
			n := 80000
			for i := 0; i < n; i++ {
				buckets[r.NextOffset(0, rng)/128]++
			}

			for _, count := range buckets {
				Expect(count).To(BeNumerically("~", n/8, n/80))
			}
		})
	})

	It("should panic when the thread has no lane", func() {
		p := &Pattern{Region: reg, Stride: 64}
		r := NewResolver(p, 2)

		Expect(r.NumLanes()).To(Equal(2))
		Expect(func() { r.NextOffset(2, rng) }).To(PanicWith(
			Satisfy(func(err error) bool {
				return errors.Is(err, ErrThreadLimitExceeded)
			})))
		Expect(func() { r.NextOffset(-1, rng) }).To(Panic())
	})

	Context("performing accesses", func() {
		BeforeEach(func() {
			for i := range reg.Bytes() {
				reg.Bytes()[i] = 0x11
			}
		})

		It("should only read in read-only mode", func() {
			p := &Pattern{Region: reg, Stride: 64, RWMode: ReadOnly}
			r := NewResolver(p, 1)

			a := r.Access(0, rng, DefaultPayload())

			Expect(a).To(Equal(Access{Offset: 0, Mode: ReadOnly, Read: 0x11}))
			Expect(reg.Load(0)).To(Equal(byte(0x11)))
		})

		It("should write the fill byte in write-only mode", func() {
			p := &Pattern{Region: reg, Stride: 64, RWMode: WriteOnly}
			r := NewResolver(p, 1)

			r.Access(0, rng, DefaultPayload())
			a := r.Access(0, rng, DefaultPayload())

			Expect(a.Offset).To(Equal(uint64(64)))
			Expect(a.Written).To(Equal(DefaultFill))
			Expect(reg.Load(64)).To(Equal(DefaultFill))
		})

		It("should read then write in read-write mode", func() {
			p := &Pattern{Region: reg, Stride: 64, RWMode: ReadWrite}
			r := NewResolver(p, 1)
			payload := Payload{Policy: PayloadOffset}

			r.Access(0, rng, payload)
			r.Access(0, rng, payload)
			a := r.Access(0, rng, payload)

			Expect(a.Offset).To(Equal(uint64(128)))
			Expect(a.Read).To(Equal(byte(0x11)))
			Expect(a.Written).To(Equal(byte(128)))
			Expect(reg.Load(128)).To(Equal(byte(128)))
		})

		It("should write back the prior content", func() {
			reg.Store(0, 0x42)
			p := &Pattern{Region: reg, Stride: 64, RWMode: WriteOnly}
			r := NewResolver(p, 1)

			a := r.Access(0, rng, Payload{Policy: PayloadPrior})

			Expect(a.Written).To(Equal(byte(0x42)))
			Expect(reg.Load(0)).To(Equal(byte(0x42)))
		})
	})
})
