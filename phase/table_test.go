package phase

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/region"
)

func makePhase(reg *region.Region, weights ...uint64) *Phase {
	p := &Phase{Name: "p", Duration: 100 * time.Millisecond}
	for _, w := range weights {
		p.Patterns = append(p.Patterns, &pattern.Pattern{
			Region:       reg,
			RandomAccess: true,
			Probability:  w,
		})
	}

	return p
}

var _ = Describe("Table", func() {
	var (
		reg *region.Region
		rng *rand.Rand
	)

	BeforeEach(func() {
		reg, _ = region.NewRegistry().Create(region.Spec{Name: "a", Size: 64})
		rng = rand.New(rand.NewPCG(7, 11))
	})

	It("should tile the probability space", func() {
		weights := []uint64{5, 1, 0, 12, 3}
		p := makePhase(reg, weights...)

		t := Prepare(p)

		Expect(t.Phase()).To(BeIdenticalTo(p))
		Expect(t.Total()).To(Equal(uint64(21)))
		Expect(t.Total()).To(Equal(p.TotalProbability()))

		next := uint64(0)
		for i, w := range weights {
			Expect(t.Start(i)).To(Equal(next))
			next += w
		}
		Expect(next).To(Equal(t.Total()))
	})

	It("should select proportionally to the weights", func() {
		t := Prepare(makePhase(reg, 1, 3))

		counts := make([]int, 2)
		for i := 0; i < 4000; i++ {
			counts[t.Select(rng)]++
		}

		Expect(counts[0]).To(BeNumerically("~", 1000, 150))
		Expect(counts[1]).To(BeNumerically("~", 3000, 150))
	})

	It("should never select zero-weight patterns", func() {
		t := Prepare(makePhase(reg, 0, 2, 0, 2, 0))

		counts := make([]int, 5)
		for i := 0; i < 10000; i++ {
			counts[t.Select(rng)]++
		}

		Expect(counts[0]).To(BeZero())
		Expect(counts[2]).To(BeZero())
		Expect(counts[4]).To(BeZero())
		Expect(counts[1]).To(BeNumerically("~", 5000, 400))
	})

	It("should always pick the only pattern", func() {
		t := Prepare(makePhase(reg, 1))

		for i := 0; i < 100; i++ {
			Expect(t.Select(rng)).To(Equal(0))
		}
	})

	It("should not be selectable without weights", func() {
		empty := Prepare(makePhase(reg))
		zero := Prepare(makePhase(reg, 0, 0))

		Expect(empty.Selectable()).To(BeFalse())
		Expect(zero.Selectable()).To(BeFalse())
		Expect(func() { zero.Select(rng) }).To(Panic())
	})

	It("should allow concurrent selection", func() {
		t := Prepare(makePhase(reg, 1, 1, 2))

		var wg sync.WaitGroup
		counts := make([][]int, 8)
		for w := range counts {
			counts[w] = make([]int, 3)
			wg.Add(1)

			go func(w int) {
				defer wg.Done()

				r := rand.New(rand.NewPCG(uint64(w), 0))
				for i := 0; i < 4000; i++ {
					counts[w][t.Select(r)]++
				}
			}(w)
		}
		wg.Wait()

		for _, c := range counts {
			Expect(c[0] + c[1] + c[2]).To(Equal(4000))
			Expect(c[2]).To(BeNumerically("~", 2000, 200))
		}
	})

	It("should replay the same selections with the same seed", func() {
		t := Prepare(makePhase(reg, 3, 1, 4, 1, 5))

		a := rand.New(rand.NewPCG(42, 0))
		b := rand.New(rand.NewPCG(42, 0))
		for i := 0; i < 1000; i++ {
			Expect(t.Select(a)).To(Equal(t.Select(b)))
		}
	})

	It("measure selection speed", func() {
		experiment := gmeasure.NewExperiment("Pattern Selection Speed")
		AddReportEntry(experiment.Name, experiment)

		weights := make([]uint64, 100)
		for i := range weights {
			weights[i] = uint64(i%7) + 1
		}
		t := Prepare(makePhase(reg, weights...))

		experiment.MeasureDuration("runtime", func() {
			for i := 0; i < 100000; i++ {
				t.Select(rng)
			}
		})
	})
})

var _ = Describe("Phase", func() {
	It("should validate its patterns", func() {
		p := makePhase(nil, 1)

		err := p.Validate()

		Expect(errors.Is(err, pattern.ErrConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("phase p, pattern 0"))
	})

	It("should reject negative durations", func() {
		p := &Phase{Name: "p", Duration: -time.Millisecond}

		Expect(errors.Is(p.Validate(), pattern.ErrConfig)).To(BeTrue())
	})

	DescribeTable("should check that the weights fit in a uint64",
		func(valid bool, weights []uint64) {
			reg, _ := region.NewRegistry().Create(
				region.Spec{Name: "a", Size: 64})
			p := makePhase(reg, weights...)

			err := p.Validate()

			if valid {
				Expect(err).NotTo(HaveOccurred())
				return
			}

			Expect(errors.Is(err, pattern.ErrConfig)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("phase p"))
		},
		Entry("largest weight alone", true,
			[]uint64{math.MaxUint64}),
		Entry("weights summing to the maximum", true,
			[]uint64{math.MaxUint64 - 2, 2}),
		Entry("zero after the maximum", true,
			[]uint64{math.MaxUint64, 0}),
		Entry("wrapping to a small total", false,
			[]uint64{math.MaxUint64, 2}),
		Entry("wrapping late", false,
			[]uint64{1, math.MaxUint64 / 2, math.MaxUint64 / 2, 2}),
	)

	It("should accept empty phases", func() {
		p := &Phase{Name: "wait", Duration: time.Second}

		Expect(p.Validate()).To(Succeed())
		Expect(p.TotalProbability()).To(BeZero())
	})
})
