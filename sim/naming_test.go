package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	DescribeTable("should accept",
		func(name string) {
			Expect(ValidateName(name)).To(Succeed())
		},
		Entry("a single element", "TLB"),
		Entry("an indexed element", "Core[0]"),
		Entry("a path", "Core[0].TLB"),
		Entry("multiple indices", "Cluster[1][2].Core[3]"),
	)

	DescribeTable("should reject",
		func(name string) {
			Expect(ValidateName(name)).To(HaveOccurred())
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("an empty name", ""),
		Entry("an underscore", "Page_Table"),
		Entry("a dash", "Page-Table"),
		Entry("a lowercase element", "core"),
		Entry("an unclosed bracket", "Core[0"),
		Entry("a stray bracket", "Core0]"),
		Entry("a bracket with no index", "Core["),
		Entry("a non-numeric index", "Core[x]"),
		Entry("an empty element", "Core..TLB"),
		Entry("a trailing dot", "Core."),
	)

	It("should build names", func() {
		Expect(BuildName("", "Core")).To(Equal("Core"))
		Expect(BuildName("Core[0]", "TLB")).To(Equal("Core[0].TLB"))
		Expect(BuildNameWithIndex("", "Core", 2)).To(Equal("Core[2]"))
		Expect(BuildNameWithIndex("Cluster", "Core", 1)).
			To(Equal("Cluster.Core[1]"))
	})
})
