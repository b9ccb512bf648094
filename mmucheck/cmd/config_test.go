package cmd

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
)

func flagSet(args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addConfigFlags(flags, systemSettings...)
	addConfigFlags(flags, "port", "open-browser")
	Expect(flags.Parse(args)).To(Succeed())

	return flags
}

var _ = Describe("Config", func() {
	It("should use the defaults", func() {
		c, err := loadConfig(flagSet())

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(defaultConfig()))
		Expect(c.MemorySize).To(Equal(uint64(0x100000)))
		Expect(c.RegistryCapacity).To(Equal(4))
	})

	It("should read the environment", func() {
		GinkgoT().Setenv("RADIXMMU_TLB_SETS", "0x20")
		GinkgoT().Setenv("RADIXMMU_FLUSH_ON_SETUP", "true")

		c, err := loadConfig(flagSet())

		Expect(err).NotTo(HaveOccurred())
		Expect(c.TLBSets).To(Equal(32))
		Expect(c.FlushOnSetup).To(BeTrue())
	})

	It("should let flags win over the environment", func() {
		GinkgoT().Setenv("RADIXMMU_TLB_WAYS", "4")

		c, err := loadConfig(flagSet("--tlb-ways=8", "--record"))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.TLBWays).To(Equal(8))
		Expect(c.Record).To(BeTrue())
	})

	It("should name the variable that does not parse", func() {
		GinkgoT().Setenv("RADIXMMU_TLB_SETS", "many")

		_, err := loadConfig(flagSet())

		Expect(err).To(MatchError(ContainSubstring("RADIXMMU_TLB_SETS")))
	})

	DescribeTable("should reject bad settings",
		func(args ...string) {
			_, err := loadConfig(flagSet(args...))
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown tracer", "--trace=xml"),
		Entry("db tracing without a recorder", "--trace=db"),
		Entry("no cores", "--cpus=0"),
		Entry("too many cores", "--cpus=65"),
		Entry("no TLB ways", "--tlb-ways=0"),
		Entry("empty registry", "--registry-capacity=0"),
		Entry("pid past the process table", "--pid=0x100"),
	)

	It("should accept the last pid of the process table", func() {
		c, err := loadConfig(flagSet("--pid=0xff"))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.PID).To(Equal(uint64(0xff)))
	})

	It("should load an env file without overriding the environment", func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.env")
		Expect(os.WriteFile(path,
			[]byte("RADIXMMU_TLB_WAYS=1\nRADIXMMU_PID=3\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("RADIXMMU_PID", "5")
		DeferCleanup(os.Unsetenv, "RADIXMMU_TLB_WAYS")

		Expect(loadEnvFile(path)).To(Succeed())
		c, err := loadConfig(flagSet())

		Expect(err).NotTo(HaveOccurred())
		Expect(c.PID).To(Equal(uint64(5)))
		Expect(c.TLBWays).To(Equal(1))
	})

	It("should ignore a missing env file", func() {
		Expect(loadEnvFile(
			filepath.Join(GinkgoT().TempDir(), "missing.env"))).To(Succeed())
	})
})
