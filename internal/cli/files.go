package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/vfsroot/pkg/contents"
)

func newResolveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>",
		Short: "Print the real filesystem path of a virtual path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := requireManager(opts)
			if err != nil {
				return err
			}
			osPath, err := m.OSPath(args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{
					"path":      args[0],
					"real_path": osPath,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), osPath)
			return nil
		},
	}
}

func newReadCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read a file as text or base64",
		Long: `Read a file below the content root.

With --format auto (the default) the content is printed as text when it is
valid UTF-8 and as base64 otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := contents.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := requireManager(opts)
			if err != nil {
				return err
			}
			osPath, err := m.OSPath(args[0])
			if err != nil {
				return err
			}
			content, used, err := m.ReadFile(osPath, f)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{
					"path":    args[0],
					"format":  used,
					"content": content,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "auto", "content format: auto, text, base64")
	return cmd
}

func newWriteCmd(opts *globalOptions) *cobra.Command {
	var format, from string
	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Atomically write a file from stdin or another file",
		Long: `Atomically replace a file below the content root.

The input is read from --from, or from stdin when --from is "-" or omitted.
With --format base64 the input is decoded before it is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, from)
			if err != nil {
				return err
			}
			m, err := requireManager(opts)
			if err != nil {
				return err
			}
			osPath, err := m.OSPath(args[0])
			if err != nil {
				return err
			}
			if err := m.WriteFile(osPath, string(input), contents.Format(format)); err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{
					"path":   args[0],
					"format": format,
					"bytes":  len(input),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "content format: text, base64")
	cmd.Flags().StringVar(&from, "from", "-", "input file, - for stdin")
	return cmd
}

func newCopyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file, keeping its permission bits and mtime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := requireManager(opts)
			if err != nil {
				return err
			}
			src, err := m.OSPath(args[0])
			if err != nil {
				return err
			}
			dst, err := m.OSPath(args[1])
			if err != nil {
				return err
			}
			if err := m.Copy(src, dst); err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{"src": args[0], "dst": args[1]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

// readInput reads from a file outside the content root or from stdin.
func readInput(cmd *cobra.Command, from string) ([]byte, error) {
	if from == "" || from == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(from)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
