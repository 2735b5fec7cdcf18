package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/oggyb/gymbro-match/internal/config"
)

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: "debug", Format: FormatText, Component: "test", Output: &buf})

	Info("hello gym", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "hello gym") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected structured field, got: %s", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: "info", Format: FormatJSON, Component: "json_test", Output: &buf})

	Info("json log", "foo", "bar")

	out := buf.String()
	if !strings.Contains(out, `"msg":"json log"`) {
		t.Errorf("expected JSON message, got: %s", out)
	}
	if !strings.Contains(out, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", out)
	}
	if !strings.Contains(out, `"foo":"bar"`) {
		t.Errorf("expected structured field in JSON, got: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: "error", Format: FormatText, Output: &buf})

	Info("should not appear")
	Error("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("info log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error log should appear, got: %s", out)
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: "debug", Format: FormatText, Output: &buf})

	With("req_id", "123").Info("processing request")

	if !strings.Contains(buf.String(), "req_id=123") {
		t.Errorf("expected req_id field, got: %s", buf.String())
	}
}

func TestLogger_InitFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.Component = "cfg_test"

	InitFromConfig(cfg)
	l := L()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if !l.Enabled(context.Background(), -4) {
		t.Errorf("expected debug level to be enabled")
	}
}

func TestLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	scoped := New(Config{Level: "info", Format: FormatText, Output: &buf}).With("request_id", "abc")

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, nil).Info("scoped")

	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("expected request-scoped field, got: %s", buf.String())
	}

	fallback := Discard()
	if FromContext(context.Background(), fallback) != fallback {
		t.Errorf("expected fallback logger when none stored")
	}
}
