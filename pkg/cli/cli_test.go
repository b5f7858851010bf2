package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"
)

type matchTable struct{ rows [][]string }

func (m matchTable) Header() []string { return []string{"line", "matched"} }
func (m matchTable) Rows() [][]string { return m.rows }
func (m matchTable) String() string   { return fmt.Sprintf("%d rows", len(m.rows)) }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "junit", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatters(t *testing.T) {
	table := matchTable{rows: [][]string{{"1", "true"}, {"2", "false"}}}

	tests := []struct {
		name    string
		format  OutputFormat
		data    interface{}
		want    string
		wantErr bool
	}{
		{name: "text", format: FormatText, data: "matched", want: "matched\n"},
		{name: "text stringer", format: FormatText, data: table, want: "2 rows\n"},
		{name: "text keeps newline", format: FormatText, data: "done\n", want: "done\n"},
		{name: "csv", format: FormatCSV, data: table, want: "line,matched\n1,true\n2,false\n"},
		{name: "csv unsupported", format: FormatCSV, data: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			err := NewFormatter(tt.format).FormatTo(buf, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if !tt.wantErr && buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]interface{}{"matched": true}
	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"matched\": true") {
		t.Errorf("output not indented: %q", buf.String())
	}
	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || got["matched"] != true {
		t.Errorf("round trip = %v, %v", got, err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "no match", err: ErrNoMatch, want: ExitNoMatch},
		{name: "wrapped no match", err: fmt.Errorf("record 3: %w", ErrNoMatch), want: ExitNoMatch},
		{name: "command error", err: NewCommandError("match", errors.New("boom")), want: ExitError},
		{name: "config error", err: NewConfigError("engine.max_depth", "must be positive"), want: ExitError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: ExitCode() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestErrors(t *testing.T) {
	cause := errors.New("file not found")
	err := NewCommandError("rules", cause)
	if !errors.Is(err, cause) {
		t.Error("CommandError does not unwrap")
	}
	if err.Error() != "command rules failed: file not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if got := NewConfigError("", "bad").Error(); got != "config error: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "records")
	p.Start(4)
	p.Update(2)
	p.Finish()
	p.Error(errors.New("bad line"))

	out := buf.String()
	for _, want := range []string{"50.0% (2/4)", "100.0% (4/4)", "records/s", "✗ Error: bad line"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "")
	p.Start(0)
	p.Update(3)
	if buf.Len() != 0 {
		t.Errorf("output = %q, want none", buf.String())
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx, cancel := SetupSignalHandler(context.Background())
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}

func TestReloadSignals(t *testing.T) {
	ch, stop := ReloadSignals()
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP not delivered")
	}
}
