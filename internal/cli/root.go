package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	rootDir    string
	configPath string
	logLevel   string
	jsonOutput bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "vfsroot",
		Short: "vfsroot - safe file access under a content root",
		Long: `vfsroot exposes the files below a configured root directory through
virtual paths. Every write is atomic: the destination either keeps its old
content or receives the complete new content, never a partial file. Paths
that resolve outside the root are rejected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.rootDir, "root", "", "content root directory (overrides root_dir in config)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "vfsroot.yaml", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	cmd.AddCommand(
		newResolveCmd(opts),
		newReadCmd(opts),
		newWriteCmd(opts),
		newReadNotebookCmd(opts),
		newWriteNotebookCmd(opts),
		newCopyCmd(opts),
		newMetricsCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// outputJSON prints v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "vfsroot: "+format+"\n", args...)
}
