package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"":        zerolog.InfoLevel,
		"WARNING": zerolog.WarnLevel,
		"err":     zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"chatty":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn", false)
	l.Info().Msg("hidden")
	l.Warn().Str("asset", "a.glb").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, `"asset":"a.glb"`) || !strings.Contains(out, `"time"`) {
		t.Fatalf("expected structured warn line with timestamp, got %q", out)
	}
}

func TestNewWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info", true)
	l.Info().Msg("ready")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "ready") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}
