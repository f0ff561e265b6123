package logging

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestSetupWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer

	SetupWithWriter(LevelNormal, &buf)
	Debug("hidden", "k", "v")
	Info("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line emitted at normal level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("info line missing: %s", out)
	}
	if IsVerbose() || IsTraceEnabled() {
		t.Error("expected normal level to be neither verbose nor trace")
	}

	buf.Reset()
	SetupWithWriter(LevelVerbose, &buf)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug line missing at verbose level: %s", buf.String())
	}
	if GetLevel() != LevelVerbose {
		t.Errorf("expected level %d, got %d", LevelVerbose, GetLevel())
	}
}

func TestLeveledLoggerDebugNeedsTrace(t *testing.T) {
	var buf bytes.Buffer
	l := &LeveledLogger{}

	SetupWithWriter(LevelVerbose, &buf)
	l.Debug("performing request", "method", "GET")
	if buf.Len() != 0 {
		t.Errorf("expected no output below trace, got %s", buf.String())
	}

	SetupWithWriter(LevelTrace, &buf)
	l.Debug("performing request", "method", "GET")
	if !strings.Contains(buf.String(), "performing request") {
		t.Errorf("expected debug output at trace, got %s", buf.String())
	}
}

func TestToJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "null"},
		{"map", map[string]int{"offset": 0}, `{"offset":0}`},
		{"struct", struct{ Week int }{Week: 3}, `{"Week":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToJSON(tt.input); got != tt.expected {
				t.Errorf("ToJSON(%v) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}

	long := ToJSON(strings.Repeat("a", 3000))
	if !strings.HasSuffix(long, " [cut]") || len(long) != maxDumpBytes+len(" [cut]") {
		t.Errorf("expected truncated output, got suffix %q", long[len(long)-20:])
	}
}

func TestToJSONUnencodable(t *testing.T) {
	if got := ToJSON(math.Inf(1)); !strings.HasPrefix(got, "<unencodable") {
		t.Errorf("expected unencodable marker, got %q", got)
	}
}
