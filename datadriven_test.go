package lsm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestTreeDataDriven replays the scenarios in testdata/tree. Each test case
// starts a fresh engine with "open" and then applies commands one per line.
func TestTreeDataDriven(t *testing.T) {
	var e *Engine
	defer func() {
		if e != nil {
			_ = e.Close()
		}
	}()

	datadriven.RunTest(t, "testdata/tree", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "open":
			if e != nil {
				require.NoError(t, e.Close())
			}
			opts := []Option{WithLogger(zap.NewNop()), WithoutBackground()}
			if d.HasArg("wb") {
				var wb int
				d.ScanArgs(t, "wb", &wb)
				opts = append(opts, WithWriteBufferSize(wb))
			}
			if d.HasArg("l0") {
				var l0 int
				d.ScanArgs(t, "l0", &l0)
				opts = append(opts, WithL0MaxTables(l0))
			}
			if d.HasArg("elide") {
				opts = append(opts, WithElideTombstones(true))
			}
			var err error
			e, err = Open(t.TempDir(), opts...)
			require.NoError(t, err)
			return ""

		case "run":
			var out strings.Builder
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				switch fields[0] {
				case "add":
					require.NoError(t, e.Add([]byte(fields[1]), []byte(fields[2])))
				case "del":
					require.NoError(t, e.Delete([]byte(fields[1])))
				case "get":
					v, status, err := e.Lookup([]byte(fields[1]))
					require.NoError(t, err)
					if status == StatusFound {
						fmt.Fprintf(&out, "%s=%s\n", fields[1], v)
					} else {
						fmt.Fprintf(&out, "%s: %s\n", fields[1], status)
					}
				case "flush":
					require.NoError(t, e.Flush())
				case "compact":
					require.NoError(t, e.Compact())
				case "levels":
					fmt.Fprintf(&out, "levels: %v\n", e.Levels())
				default:
					t.Fatalf("unknown command %q", fields[0])
				}
			}
			return out.String()
		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}
