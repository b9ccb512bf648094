package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/spf13/pflag"
)

// Config holds everything needed to build and run a check.
type Config struct {
	MemorySize       uint64
	TLBSets          int
	TLBWays          int
	RegistryCapacity int
	PID              uint64
	FlushOnSetup     bool
	RecordPath       string
	Record           bool
	Trace            string
	TracePath        string
	LogHooks         bool
	CPUs             int
	MonitorPort      int
	OpenBrowser      bool
}

func defaultConfig() Config {
	return Config{
		MemorySize:       0x100000,
		TLBSets:          64,
		TLBWays:          2,
		RegistryCapacity: 4,
		PID:              1,
		CPUs:             1,
	}
}

type setting struct {
	flag  string
	env   string
	usage string
	apply func(c *Config, value string) error
}

var settings = []setting{
	{"memory-size", "RADIXMMU_MEMORY_SIZE", "bytes of physical memory",
		uintSetting(func(c *Config, v uint64) { c.MemorySize = v })},
	{"tlb-sets", "RADIXMMU_TLB_SETS", "number of TLB sets",
		intSetting(func(c *Config, v int) { c.TLBSets = v })},
	{"tlb-ways", "RADIXMMU_TLB_WAYS", "number of TLB ways",
		intSetting(func(c *Config, v int) { c.TLBWays = v })},
	{"registry-capacity", "RADIXMMU_REGISTRY_CAPACITY",
		"number of pages a test may map at once",
		intSetting(func(c *Config, v int) { c.RegistryCapacity = v })},
	{"pid", "RADIXMMU_PID", "process ID the tests run as",
		uintSetting(func(c *Config, v uint64) { c.PID = v })},
	{"flush-on-setup", "RADIXMMU_FLUSH_ON_SETUP",
		"invalidate the whole TLB before each test",
		boolSetting(func(c *Config, v bool) { c.FlushOnSetup = v })},
	{"record", "RADIXMMU_RECORD",
		"record results and traces to an SQLite file",
		boolSetting(func(c *Config, v bool) { c.Record = v })},
	{"record-path", "RADIXMMU_RECORD_PATH",
		"SQLite file name without extension, random if empty",
		func(c *Config, v string) error { c.RecordPath = v; return nil }},
	{"trace", "RADIXMMU_TRACE",
		"trace translations and table updates: log, db, json or summary",
		func(c *Config, v string) error { c.Trace = v; return nil }},
	{"trace-path", "RADIXMMU_TRACE_PATH",
		"file the json tracer writes, random if empty",
		func(c *Config, v string) error { c.TracePath = v; return nil }},
	{"log-hooks", "RADIXMMU_LOG_HOOKS", "log every hook invocation",
		boolSetting(func(c *Config, v bool) { c.LogHooks = v })},
	{"cpus", "RADIXMMU_CPUS", "number of cores that greet before the tests",
		intSetting(func(c *Config, v int) { c.CPUs = v })},
	{"port", "RADIXMMU_MONITOR_PORT", "port of the monitoring server",
		intSetting(func(c *Config, v int) { c.MonitorPort = v })},
	{"open-browser", "RADIXMMU_OPEN_BROWSER", "open the monitor in a browser",
		boolSetting(func(c *Config, v bool) { c.OpenBrowser = v })},
}

func uintSetting(set func(*Config, uint64)) func(*Config, string) error {
	return func(c *Config, s string) error {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return err
		}

		set(c, v)

		return nil
	}
}

func intSetting(set func(*Config, int)) func(*Config, string) error {
	return func(c *Config, s string) error {
		v, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return err
		}

		set(c, int(v))

		return nil
	}
}

func boolSetting(set func(*Config, bool)) func(*Config, string) error {
	return func(c *Config, s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}

		set(c, v)

		return nil
	}
}

var switches = map[string]bool{
	"flush-on-setup": true,
	"record":         true,
	"log-hooks":      true,
	"open-browser":   true,
}

// addConfigFlags registers the named settings as flags. Numbers accept 0x
// prefixes.
func addConfigFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		s := findSetting(name)
		usage := fmt.Sprintf("%s (env %s)", s.usage, s.env)

		if switches[name] {
			flags.Bool(s.flag, false, usage)
			continue
		}

		flags.String(s.flag, "", usage)
	}
}

func findSetting(name string) setting {
	for _, s := range settings {
		if s.flag == name {
			return s
		}
	}

	panic("unknown setting " + name)
}

// loadConfig starts from the defaults, then applies the environment, then
// the flags that were set on the command line.
func loadConfig(flags *pflag.FlagSet) (Config, error) {
	c := defaultConfig()

	for _, s := range settings {
		if v, ok := os.LookupEnv(s.env); ok && v != "" {
			if err := s.apply(&c, v); err != nil {
				return c, fmt.Errorf("%s: %w", s.env, err)
			}
		}

		f := flags.Lookup(s.flag)
		if f == nil || !f.Changed {
			continue
		}

		if err := s.apply(&c, f.Value.String()); err != nil {
			return c, fmt.Errorf("--%s: %w", s.flag, err)
		}
	}

	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Trace {
	case "", "log", "db", "json", "summary":
	default:
		return fmt.Errorf("unknown trace kind %q", c.Trace)
	}

	if c.Trace == "db" && !c.Record {
		return fmt.Errorf("db tracing needs --record")
	}

	if c.CPUs < 1 || c.CPUs > 64 {
		return fmt.Errorf("cpus must be in [1, 64], got %d", c.CPUs)
	}

	if c.TLBSets <= 0 || c.TLBWays <= 0 {
		return fmt.Errorf("TLB must have at least one set and one way")
	}

	if c.RegistryCapacity <= 0 {
		return fmt.Errorf("registry capacity must be positive")
	}

	if c.PID*16+16 > vm.ProcessTableSize {
		return fmt.Errorf("pid %d does not fit in the process table", c.PID)
	}

	return nil
}
