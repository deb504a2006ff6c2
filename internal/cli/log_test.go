package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("loaded config") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("loaded config") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("loaded config") }, true},
		{"warn at info", log.InfoLevel, func(l *log.Logger) { l.Warn("solution not cached") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

var elapsedRe = regexp.MustCompile(`\(\d+(\.\d+)?(ns|µs|ms|s|m\d+s)\)`)

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Solved 3 vertices")

	out := buf.String()
	if !strings.Contains(out, "Solved 3 vertices (") {
		t.Errorf("done() output %q lacks message", out)
	}
	if !elapsedRe.MatchString(out) {
		t.Errorf("done() output %q lacks elapsed time", out)
	}
}

func TestSolveLogsThroughCLILogger(t *testing.T) {
	isolateConfig(t)
	input := writeFile(t, t.TempDir(), "site.json", testGraphJSON)

	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"solve", input, "--no-cache"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A, B, C are anchors; D is solved, E has a single neighbour.
	if !strings.Contains(logs.String(), "Solved 1 of 2 vertices (") {
		t.Errorf("solve log = %q", logs.String())
	}
}

func TestSetupAttachesLogger(t *testing.T) {
	isolateConfig(t)
	c := New(io.Discard, LogInfo)

	var got *log.Logger
	root := c.RootCommand()
	root.AddCommand(&cobra.Command{
		Use: "inspect",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got = loggerFromContext(cmd.Context())
			return nil
		},
	})
	root.SetArgs([]string{"inspect", "-v"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got != c.Logger {
		t.Fatal("command context does not carry the CLI logger")
	}
	if got.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug after -v", got.GetLevel())
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("bare context should yield log.Default()")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), l)
	loggerFromContext(ctx).Info("listening", "addr", ":8080")
	if !strings.Contains(buf.String(), "addr=:8080") {
		t.Errorf("context logger output = %q", buf.String())
	}
}
