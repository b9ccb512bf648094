package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/radixmmu/monitoring"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the MMU tests and keep serving their state over HTTP.",
		Long: `serve runs the tests like run does, then keeps a monitoring ` +
			`server up until interrupted. The server reports results, the ` +
			`mappings left behind, TLB contents and registers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := prepareConfig(cmd)
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg,
				cmd.OutOrStdout(), cmd.ErrOrStderr(), nil)
		},
	}

	addConfigFlags(c.Flags(), systemSettings...)
	addConfigFlags(c.Flags(), "port", "open-browser")

	return c
}

// serve runs the suite, then serves the final state of the system until ctx
// is done. The server only starts once the tests have finished. ready, if
// not nil, is called with the server URL.
func serve(
	ctx context.Context,
	cfg Config,
	out, errOut io.Writer,
	ready func(url string),
) error {
	s, err := buildSystem(cfg, out, errOut)
	if err != nil {
		return err
	}
	defer s.close()

	m := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
	m.RegisterComponent(s.tlb)
	m.RegisterComponent(s.core)
	m.RegisterComponent(s.manager)
	m.RegisterComponent(s.runner)
	m.RegisterResults(s.runner)
	m.RegisterMappings(s.manager)
	m.RegisterTLB(s.tlb)
	m.RegisterRegisters(s.core.Registers())
	m.TrackRunner(s.runner)

	if _, err := s.runSuite(ctx); err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
	}

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancel()

		_ = m.StopServer(shutdownCtx)
	}()

	if cfg.OpenBrowser {
		if err := monitoring.OpenInBrowser(url); err != nil {
			fmt.Fprintf(errOut, "Cannot open a browser: %v\n", err)
		}
	}

	if ready != nil {
		ready(url)
	}

	<-ctx.Done()

	return nil
}
