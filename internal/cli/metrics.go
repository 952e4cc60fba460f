package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/vfsroot/pkg/metrics"
)

func newMetricsCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Start Prometheus metrics server",
		Long: `Start a Prometheus metrics server for vfsroot operations.

This exposes a /metrics endpoint with:
- vfsroot_atomic_write_total
- vfsroot_atomic_write_rollback_total
- vfsroot_atomic_write_duration_seconds
- vfsroot_forbidden_total
- vfsroot_out_of_root_total

Counters only reflect operations performed by the process that serves
them. Each vfsroot command runs in its own process, so a standalone
"vfsroot metrics" exposes the collectors at zero; it is meant for checking
scrape configuration. Services embedding pkg/contents record into
metrics.Default() and serve it with metrics.StartServer or
Registry.Handler.

The metrics server runs in the foreground until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				addr = cfg.Metrics.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Metrics available at http://%s/metrics\n", addr)
			if err := metrics.StartServer(addr); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to metrics.addr in config)")
	return cmd
}
