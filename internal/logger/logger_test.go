package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTextAndJSONOutput(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	Text(&text, slog.LevelInfo).Info("listening", "addr", "127.0.0.1:8080")
	if got := text.String(); !strings.Contains(got, "listening") || !strings.Contains(got, "addr=127.0.0.1:8080") {
		t.Fatalf("text output missing fields: %s", got)
	}

	var js bytes.Buffer
	JSON(&js, slog.LevelInfo).Info("listening", "addr", "127.0.0.1:8080")
	got := js.String()
	if !strings.Contains(got, `"addr":"127.0.0.1:8080"`) {
		t.Fatalf("json output missing attr: %s", got)
	}
	if !strings.Contains(got, `"level":"INFO"`) {
		t.Fatalf("json output missing level: %s", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Text(&buf, slog.LevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() > 0 {
		t.Fatalf("got output below threshold: %s", buf.String())
	}
	log.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn record missing: %s", buf.String())
	}
}

func TestWithAddsAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("component", "tuner")
	log.Info("built table")
	if got := buf.String(); !strings.Contains(got, `"component":"tuner"`) {
		t.Fatalf("inherited attr missing: %s", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	ctx := WithContext(context.Background(), log)

	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("context logger not used: %s", buf.String())
	}

	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrettyOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug)
	log.Debug("building table", "kernel", "matmul", "cc", "2.0")

	got := buf.String()
	if !strings.Contains(got, "DEBUG") {
		t.Fatalf("missing level badge: %s", got)
	}
	if !strings.Contains(got, "building table") {
		t.Fatalf("missing message: %s", got)
	}
	if !strings.Contains(got, "kernel=matmul") {
		t.Fatalf("missing attr: %s", got)
	}
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("parsed", "name", "my kernel", "label", "")

	got := buf.String()
	if !strings.Contains(got, `name="my kernel"`) {
		t.Fatalf("string with space not quoted: %s", got)
	}
	if !strings.Contains(got, `label=""`) {
		t.Fatalf("empty string not quoted: %s", got)
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn threshold")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at warn threshold")
	}
}

func TestPrettyHandlerGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil).WithGroup("report").(*PrettyHandler).WithGroup("kernel")
	slog.New(h).Info("ranked", "tpb", 192)

	if got := buf.String(); !strings.Contains(got, "report.kernel.tpb=192") {
		t.Fatalf("group path missing: %s", got)
	}

	base := NewPrettyHandler(&buf, nil)
	if base.WithGroup("") != base {
		t.Fatal("empty group should return the handler unchanged")
	}
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil).WithAttrs([]slog.Attr{slog.String("service", "warptune")})
	slog.New(h).Info("up")

	if got := buf.String(); !strings.Contains(got, "service=warptune") {
		t.Fatalf("handler attr missing: %s", got)
	}
}
