// Package cmd provides the command-line interface of mmucheck.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mmucheck",
		Short: "mmucheck runs MMU fault-detection tests on a radix MMU model.",
		Long: `mmucheck builds a radix page table, a TLB and a translating ` +
			`core, then runs numbered tests that check faults, aliasing ` +
			`and scoped TLB invalidation. Defaults are read from RADIXMMU_* ` +
			`environment variables and from a .env file.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("env-file", ".env",
		"file to read RADIXMMU_* defaults from")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())

	return root
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := 0
	if err != nil {
		code = 1
	}

	atexit.Exit(code)
}

// loadEnvFile reads variables from path without overriding those already
// set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func envFileFlag(cmd *cobra.Command) string {
	f := cmd.Flags().Lookup("env-file")
	if f == nil {
		return ""
	}

	if env, ok := os.LookupEnv("RADIXMMU_ENV_FILE"); ok && !f.Changed {
		return env
	}

	return f.Value.String()
}
