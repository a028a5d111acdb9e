package main

import (
	"fmt"
	"io"

	"github.com/AmrMurad1/go-lsm/sstable"
	"github.com/spf13/cobra"
)

var listEntries bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <base>",
	Short: "print a summary of the table at base (a path without suffix)",
	Long: `
Opens the .data, .index and .bloom files that share base and prints the key
range, entry count and index size of the table. With --entries every record
is listed in key order.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(cmd.OutOrStdout(), args[0], listEntries)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&listEntries, "entries", false, "list every record")
}

func inspect(out io.Writer, base string, entries bool) error {
	t, err := sstable.Open(base)
	if err != nil {
		return err
	}
	defer t.Close()

	fmt.Fprintf(out, "table:   %s\n", t.Base())
	fmt.Fprintf(out, "entries: %d\n", t.NumEntries())
	fmt.Fprintf(out, "sparse:  %d\n", t.SparseCount())
	fmt.Fprintf(out, "bytes:   %d\n", t.Size())
	fmt.Fprintf(out, "min:     %s\n", formatBytes(t.MinKey()))
	fmt.Fprintf(out, "max:     %s\n", formatBytes(t.MaxKey()))
	if !entries {
		return nil
	}

	it := t.NewIterator()
	for it.Next() {
		p := it.Pair()
		if p.IsTombstone() {
			fmt.Fprintf(out, "%s (deleted)\n", formatBytes(p.Key))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", formatBytes(p.Key), formatBytes(p.Value))
	}
	return it.Err()
}
