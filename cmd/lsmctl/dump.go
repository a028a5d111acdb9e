package main

import (
	"fmt"
	"io"
	"os"

	"github.com/AmrMurad1/go-lsm/sstable"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var dumpOutput string

var dumpCmd = &cobra.Command{
	Use:   "dump <base> -o <file>",
	Short: "write the records of a table to an s2 compressed stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpOutput == "" {
			return errors.New("dump: -o is required")
		}
		return dump(cmd.OutOrStdout(), args[0], dumpOutput)
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "destination file")
}

func dump(out io.Writer, base, path string) (err error) {
	t, err := sstable.Open(base)
	if err != nil {
		return err
	}
	defer t.Close()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dump: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "dump: close %s", path)
		}
	}()

	n, err := sstable.Dump(t, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d records to %s\n", n, path)
	return nil
}
