package region

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var _ = Describe("Checker", func() {
	var (
		fs       afero.Fs
		registry *Registry
		checker  *Checker
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "short.dat", []byte("short"), 0644)).
			To(Succeed())
		Expect(afero.WriteFile(fs, "full.dat", make([]byte, 16), 0644)).
			To(Succeed())

		registry = NewRegistry().WithFs(fs)
		checker = NewChecker(fs)
	})

	It("should accept what the registry accepts", func() {
		specs := []Spec{
			{Name: "a", Size: 16},
			{Name: "b", Size: 16, SubSize: 8, DataFile: "full.dat"},
		}

		for _, spec := range specs {
			Expect(checker.Check(spec)).To(Succeed())

			_, err := registry.Create(spec)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	DescribeTable("should fail like the registry",
		func(spec Spec) {
			Expect(checker.Check(Spec{Name: "taken", Size: 1})).To(Succeed())
			_, err := registry.Create(Spec{Name: "taken", Size: 1})
			Expect(err).NotTo(HaveOccurred())

			checkErr := checker.Check(spec)
			_, createErr := registry.Create(spec)

			Expect(errors.Is(checkErr, ErrConfig)).To(BeTrue())
			Expect(errors.Is(createErr, ErrConfig)).To(BeTrue())
			Expect(checkErr.Error()).To(Equal(createErr.Error()))
		},
		Entry("empty name", Spec{Size: 16}),
		Entry("duplicated name", Spec{Name: "taken", Size: 16}),
		Entry("sub size", Spec{Name: "a", Size: 16, SubSize: 32}),
		Entry("missing file", Spec{Name: "a", Size: 16, DataFile: "none.dat"}),
		Entry("short file", Spec{Name: "a", Size: 16, DataFile: "short.dat"}),
	)
})
