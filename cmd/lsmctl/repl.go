package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	lsm "github.com/AmrMurad1/go-lsm"
	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "read commands from stdin and apply them to the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, logger, err := openEngine()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		defer db.Close()
		return runREPL(os.Stdin, os.Stdout, db)
	},
}

const replHelp = `commands:
  add|ins <key> <value>   store value under key
  del <key>               delete key
  get <key>               print the value of key
  print                   print writebuffer and level statistics
  flush                   write buffered data to level 0
  compact                 run one compaction pass
  help                    show this text
  exit|quit               leave
keys and values are taken literally; a 0x prefix reads them as hex
`

var errExit = errors.New("exit")

func runREPL(in io.Reader, out io.Writer, db *lsm.Engine) error {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64<<10), 64<<20)
	for {
		fmt.Fprint(out, "> ")
		if !s.Scan() {
			fmt.Fprintln(out)
			return s.Err()
		}
		err := execute(out, db, s.Text())
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func execute(out io.Writer, db *lsm.Engine, line string) error {
	words, err := shellquote.Split(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	args := words[1:]
	want := func(n int) error {
		if len(args) != n {
			return errors.Newf("%s takes %d arguments, got %d", words[0], n, len(args))
		}
		return nil
	}

	switch strings.ToLower(words[0]) {
	case "add", "ins":
		if err := want(2); err != nil {
			return err
		}
		k, err := parseBytes(args[0])
		if err != nil {
			return err
		}
		v, err := parseBytes(args[1])
		if err != nil {
			return err
		}
		return db.Add(k, v)
	case "del":
		if err := want(1); err != nil {
			return err
		}
		k, err := parseBytes(args[0])
		if err != nil {
			return err
		}
		return db.Delete(k)
	case "get":
		if err := want(1); err != nil {
			return err
		}
		k, err := parseBytes(args[0])
		if err != nil {
			return err
		}
		v, status, err := db.Lookup(k)
		if err != nil {
			return err
		}
		if status != lsm.StatusFound {
			fmt.Fprintf(out, "(%s)\n", status)
			return nil
		}
		fmt.Fprintln(out, formatBytes(v))
		return nil
	case "print":
		fmt.Fprint(out, db.Stats())
		return nil
	case "flush":
		return db.Flush()
	case "compact":
		return db.Compact()
	case "help":
		fmt.Fprint(out, replHelp)
		return nil
	case "exit", "quit":
		return errExit
	default:
		return errors.Newf("unknown command %q, try help", words[0])
	}
}

func parseBytes(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, errors.Wrapf(err, "bad hex %q", s)
		}
		return b, nil
	}
	return []byte(s), nil
}

// formatBytes prints printable values as text and anything else as hex.
func formatBytes(b []byte) string {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "0x" + hex.EncodeToString(b)
		}
	}
	return string(b)
}
