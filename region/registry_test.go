package region

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var _ = Describe("Registry", func() {
	var (
		fs       afero.Fs
		registry *Registry
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		registry = NewRegistry().WithFs(fs)
	})

	It("should allocate zeroed regions", func() {
		reg, err := registry.Create(Spec{Name: "a", Size: 1024})

		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Name()).To(Equal("a"))
		Expect(reg.Size()).To(Equal(uint64(1024)))
		Expect(reg.SubSize()).To(Equal(uint64(1024)))
		Expect(reg.Bytes()).To(HaveLen(1024))
		Expect(reg.Bytes()).To(Equal(make([]byte, 1024)))
	})

	It("should keep the sub size", func() {
		reg, err := registry.Create(Spec{Name: "a", Size: 1024, SubSize: 256})

		Expect(err).NotTo(HaveOccurred())
		Expect(reg.SubSize()).To(Equal(uint64(256)))
	})

	It("should reject a sub size larger than the size", func() {
		_, err := registry.Create(Spec{Name: "a", Size: 128, SubSize: 256})

		Expect(errors.Is(err, ErrConfig)).To(BeTrue())
	})

	It("should reject duplicated names", func() {
		_, err := registry.Create(Spec{Name: "a", Size: 128})
		Expect(err).NotTo(HaveOccurred())

		_, err = registry.Create(Spec{Name: "a", Size: 64})
		Expect(errors.Is(err, ErrConfig)).To(BeTrue())
	})

	It("should reject empty names", func() {
		_, err := registry.Create(Spec{Size: 64})

		Expect(errors.Is(err, ErrConfig)).To(BeTrue())
	})

	Context("with a data file", func() {
		It("should copy the file content", func() {
			content := []byte("0123456789abcdef-extra")
			Expect(afero.WriteFile(fs, "a.dat", content, 0644)).To(Succeed())

			reg, err := registry.Create(
				Spec{Name: "a", Size: 16, DataFile: "a.dat"})

			Expect(err).NotTo(HaveOccurred())
			Expect(reg.DataFile()).To(Equal("a.dat"))
			Expect(reg.Bytes()).To(Equal(content[:16]))
		})

		It("should fail if the file is too short", func() {
			Expect(afero.WriteFile(fs, "a.dat", []byte("short"), 0644)).
				To(Succeed())

			_, err := registry.Create(
				Spec{Name: "a", Size: 16, DataFile: "a.dat"})

			Expect(errors.Is(err, ErrConfig)).To(BeTrue())
			Expect(registry.Regions()).To(BeEmpty())
		})

		It("should fail if the file does not exist", func() {
			_, err := registry.Create(
				Spec{Name: "a", Size: 16, DataFile: "missing.dat"})

			Expect(errors.Is(err, ErrConfig)).To(BeTrue())
		})
	})

	It("should look up regions by name", func() {
		a, _ := registry.Create(Spec{Name: "a", Size: 16})
		b, _ := registry.Create(Spec{Name: "b", Size: 32})

		Expect(registry.Lookup("a")).To(BeIdenticalTo(a))
		Expect(registry.Lookup("b")).To(BeIdenticalTo(b))
		Expect(registry.Regions()).To(Equal([]*Region{a, b}))
		Expect(registry.TotalSize()).To(Equal(uint64(48)))
	})

	It("should report unknown regions", func() {
		_, err := registry.Lookup("nope")

		Expect(errors.Is(err, ErrUnknownRegion)).To(BeTrue())
	})

	It("should load and store bytes", func() {
		reg, _ := registry.Create(Spec{Name: "a", Size: 16})

		reg.Store(3, 0x7f)

		Expect(reg.Load(3)).To(Equal(byte(0x7f)))
	})

	It("should release the buffers", func() {
		reg, _ := registry.Create(Spec{Name: "a", Size: 16})

		registry.Release()

		Expect(reg.Bytes()).To(BeNil())
		Expect(registry.Regions()).To(BeEmpty())
		_, err := registry.Lookup("a")
		Expect(errors.Is(err, ErrUnknownRegion)).To(BeTrue())
	})
})
