package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/vfsroot/pkg/errclass"
	"github.com/jvs-project/vfsroot/pkg/notebook"
)

func newReadNotebookCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read-notebook <path>",
		Short: "Parse a notebook and summarize its cells",
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
			nb, err := m.ReadDocument(osPath)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), nb)
			}

			counts := map[string]int{}
			for _, c := range nb.Cells {
				counts[c.CellType]++
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Notebook: %s\n", args[0])
			fmt.Fprintf(out, "  Format: %d.%d\n", nb.NBFormat, nb.NBFormatMinor)
			fmt.Fprintf(out, "  Cells: %d (code %d, markdown %d, raw %d)\n",
				len(nb.Cells), counts[notebook.CellCode], counts[notebook.CellMarkdown], counts[notebook.CellRaw])
			return nil
		},
	}
}

func newWriteNotebookCmd(opts *globalOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "write-notebook <path>",
		Short: "Validate a notebook and write it atomically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, from)
			if err != nil {
				return err
			}
			nb, err := notebook.JSONCodec{}.Decode(bytes.NewReader(input))
			if err != nil {
				return errclass.ErrUnreadableDocument.
					WithMessagef("Unreadable Notebook: %s %v", from, err).
					WithCause(err)
			}

			m, err := requireManager(opts)
			if err != nil {
				return err
			}
			osPath, err := m.OSPath(args[0])
			if err != nil {
				return err
			}
			if err := m.WriteDocument(osPath, nb); err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{"path": args[0], "cells": len(nb.Cells)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote notebook %s (%d cells)\n", args[0], len(nb.Cells))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "-", "input notebook file, - for stdin")
	return cmd
}
