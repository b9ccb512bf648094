package cmd

import (
	"github.com/spf13/cobra"
)

var systemSettings = []string{
	"memory-size", "tlb-sets", "tlb-ways", "registry-capacity", "pid",
	"flush-on-setup", "record", "record-path", "trace", "trace-path", "log-hooks", "cpus",
}

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Run the MMU tests once and print the report.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := prepareConfig(cmd)
			if err != nil {
				return err
			}

			s, err := buildSystem(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			_, err = s.runSuite(cmd.Context())

			return err
		},
	}

	addConfigFlags(c.Flags(), systemSettings...)

	return c
}

func prepareConfig(cmd *cobra.Command) (Config, error) {
	if err := loadEnvFile(envFileFlag(cmd)); err != nil {
		return Config{}, err
	}

	return loadConfig(cmd.Flags())
}
