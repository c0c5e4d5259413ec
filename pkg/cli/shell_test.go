package cli

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/conftree"
	"github.com/psaab/conftree/pkg/logging"
	"github.com/psaab/conftree/pkg/metrics"
)

const routerConfig = `hostname r1
!
interface GigabitEthernet0/0
 description uplink
 ip address 192.0.2.1 255.255.255.252
 no shutdown
!
interface GigabitEthernet0/1
 shutdown
!
router ospf 1
 network 192.0.2.0 0.0.0.3 area 0
`

type testShell struct {
	*Shell
	out  *bytes.Buffer
	path string
	diag *logging.DiagBuffer
	reg  *prometheus.Registry
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()
	path := filepath.Join(t.TempDir(), "r1.cfg")
	if err := os.WriteFile(path, []byte(routerConfig), 0644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := configstore.New(conftree.Options{Logger: logger})
	out := &bytes.Buffer{}
	ts := &testShell{
		out:  out,
		path: path,
		diag: logging.NewDiagBuffer(8),
		reg:  prometheus.NewRegistry(),
	}
	ts.Shell = New(Config{
		Store:    store,
		Recorder: metrics.NewRecorder(ts.reg),
		Diag:     ts.diag,
		Logger:   logger,
		Color:    ColorNever,
		Out:      out,
	})
	return ts
}

// run executes line and returns its output.
func (ts *testShell) run(t *testing.T, line string) string {
	t.Helper()
	ts.out.Reset()
	if err := ts.Execute(line); err != nil {
		t.Fatalf("Execute(%q): %v", line, err)
	}
	return ts.out.String()
}

func (ts *testShell) load(t *testing.T) {
	t.Helper()
	ts.run(t, "load "+ts.path)
}

func lineNumbers(out string) []string {
	var nums []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			nums = append(nums, f[0])
		}
	}
	return nums
}

func TestExecuteQueries(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)

	tests := []struct {
		line string
		want []string
	}{
		{"find ^interface", []string{"3", "8"}},
		{"find ^interface shutdown", []string{"6", "9"}},
		{"fi ^interface shutdown", []string{"6", "9"}},
		{"family ^interface shutdown", []string{"3", "6", "8", "9"}},
		{"cousins 1 shutdown", []string{"3", "4", "5", "6", "8", "9"}},
		{"parents ^interface \"no shutdown\"", []string{"3"}},
		{"orphans ^interface description", []string{"8"}},
		{"children ^interface shutdown", []string{"6", "9"}},
		{"address 192.0.2.1", []string{"5"}},
		{"address 192.0.2.0/30", []string{"5", "12"}},
		{`where Gen == 2 && Trimmed contains "shutdown"`, []string{"6", "9"}},
		{"show roots", []string{"1", "2", "3", "7", "8", "10", "11"}},
		{"show lines 4 5", []string{"4", "5"}},
		{"find nothing-here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out := ts.run(t, tt.line)
			got := lineNumbers(out)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("%q returned lines %v, want %v\n%s", tt.line, got, tt.want, out)
			}
		})
	}
}

func TestExecuteGrouped(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)

	out := ts.run(t, "grouped ^interface")
	blocks := strings.Split(strings.TrimRight(out, "\n"), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d:\n%s", len(blocks), out)
	}
	if got := lineNumbers(blocks[1]); strings.Join(got, ",") != "8,9" {
		t.Errorf("second block = %v", got)
	}
}

func TestExecutePipes(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)

	tests := []struct {
		line string
		want string
	}{
		{"find ^interface | count", "Count: 2 lines\n"},
		{"show lines | match IP ADDRESS", "    5   ip address 192.0.2.1 255.255.255.252\n"},
		{"show lines 1 3 | except !", "    1  hostname r1\n    3  interface GigabitEthernet0/0\n"},
		{"show lines | last 1", "   12   network 192.0.2.0 0.0.0.3 area 0\n"},
		{"show lines | find ospf | count", "Count: 2 lines\n"},
		{"show roots | match interface | last 1 | no-more", "    8  interface GigabitEthernet0/1\n"},
	}
	for _, tt := range tests {
		if got := ts.run(t, tt.line); got != tt.want {
			t.Errorf("%q:\ngot  %q\nwant %q", tt.line, got, tt.want)
		}
	}
}

func TestExecuteShow(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)

	out := ts.run(t, "show line 5")
	for _, want := range []string{
		"    3  interface GigabitEthernet0/0",
		"generation 2, 0 children, 0 descendants",
		"address 192.0.2.1",
		"network 192.0.2.0/30",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show line 5 missing %q:\n%s", want, out)
		}
	}

	out = ts.run(t, "show tree 3 4")
	if out != "    3  interface GigabitEthernet0/0\n    4    description uplink\n" {
		t.Errorf("show tree = %q", out)
	}

	out = ts.run(t, "show stats")
	for _, want := range []string{"Mode:            indent", "Lines:           12", "Roots:           7", "Max generation:  2", "Comments:        3"} {
		if !strings.Contains(out, want) {
			t.Errorf("show stats missing %q:\n%s", want, out)
		}
	}

	if out := ts.run(t, "show diagnostics"); out != "No structural warnings\n" {
		t.Errorf("show diagnostics = %q", out)
	}
}

func TestExecuteShowLog(t *testing.T) {
	ts := newTestShell(t)
	if out := ts.run(t, "show log"); out != "No log entries\n" {
		t.Errorf("empty log = %q", out)
	}
	ts.diag.Add(logging.Entry{Level: slog.LevelWarn, Message: "first"})
	ts.diag.Add(logging.Entry{Level: slog.LevelWarn, Message: "second"})

	out := ts.run(t, "show log")
	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Errorf("log should be oldest first:\n%s", out)
	}
	if out := ts.run(t, "show log 1"); strings.Contains(out, "first") {
		t.Errorf("show log 1 = %q", out)
	}
}

func TestExecuteHistory(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)
	if out := ts.run(t, "show history"); out != "No earlier loads\n" {
		t.Errorf("show history = %q", out)
	}

	edited := strings.Replace(routerConfig, "description uplink", "description core", 1)
	if err := os.WriteFile(ts.path, []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	ts.run(t, "reload")

	out := ts.run(t, "show compare")
	if out != "- description uplink\n+ description core\n" {
		t.Errorf("show compare = %q", out)
	}

	ts.run(t, "rollback 1")
	if out := ts.run(t, "find uplink"); !strings.Contains(out, "description uplink") {
		t.Errorf("rollback did not restore the first load: %q", out)
	}
}

func TestExecuteErrors(t *testing.T) {
	ts := newTestShell(t)

	tests := []struct {
		line    string
		wantErr string
	}{
		{"find interface", "no document loaded"},
		{"bogus", "unknown command"},
		{"f x", "ambiguous"},
		{"load", "usage: load"},
		{"load /does/not/exist.cfg", "no such file"},
		{"load x.cfg sideways", "mode"},
		{`find "unterminated`, "unterminated string"},
		{"| count", "missing command"},
	}
	for _, tt := range tests {
		err := ts.Execute(tt.line)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("Execute(%q) = %v, want error containing %q", tt.line, err, tt.wantErr)
		}
	}

	ts.load(t)
	for _, tt := range []struct{ line, wantErr string }{
		{"find ^interface | bogus", "unknown pipe filter"},
		{"find ^interface |", "missing filter"},
		{"find ^interface | match", "missing pattern"},
		{"find ^interface | last zero", "invalid line count"},
		{"find (", "invalid"},
		{"cousins -1 shutdown", "negative"},
		{"where Gen ==", "invalid"},
		{"show line 99", "out of range"},
		{"show lines 0", "invalid line"},
		{"address not-an-ip", "parse address"},
		{"parents ^interface", "usage"},
	} {
		err := ts.Execute(tt.line)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("Execute(%q) = %v, want error containing %q", tt.line, err, tt.wantErr)
		}
	}

	if err := ts.Execute("quit"); !errors.Is(err, ErrExit) {
		t.Errorf("quit returned %v", err)
	}
}

func TestExecuteRecordsQueries(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)
	ts.run(t, "find ^interface")
	ts.run(t, "find nothing-here")
	ts.Execute("find (")

	expected := `
# HELP conftree_queries_total Queries run against the loaded document.
# TYPE conftree_queries_total counter
conftree_queries_total{command="find",result="error"} 1
conftree_queries_total{command="find",result="found"} 1
conftree_queries_total{command="find",result="not_found"} 1
`
	if err := testutil.GatherAndCompare(ts.reg, strings.NewReader(expected), "conftree_queries_total"); err != nil {
		t.Error(err)
	}
}

func TestContextHelp(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "show ?")
	if !strings.HasPrefix(out, "Possible completions:") || !strings.Contains(out, "diagnostics") {
		t.Errorf("show ? = %q", out)
	}
	if out := ts.run(t, "cousins ?"); !strings.Contains(out, "<depth> <re>...") {
		t.Errorf("cousins ? = %q", out)
	}
	if out := ts.run(t, "help"); !strings.Contains(out, "Pipe filters") {
		t.Errorf("help = %q", out)
	}
}

func TestColorOutput(t *testing.T) {
	ts := newTestShell(t)
	ts.load(t)
	ts.pal = newPalette()

	out := ts.run(t, "family ^interface shutdown")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if strings.Contains(lines[0], "\x1b[") {
		t.Errorf("parent line should be plain: %q", lines[0])
	}
	if !strings.Contains(lines[1], "\x1b[") {
		t.Errorf("matched line should be coloured: %q", lines[1])
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	if !colorEnabled(ColorAlways, &buf) {
		t.Error("always should enable colour")
	}
	if colorEnabled(ColorNever, os.Stdout) {
		t.Error("never should disable colour")
	}
	if colorEnabled(ColorAuto, &buf) {
		t.Error("auto should disable colour for a buffer")
	}
}
