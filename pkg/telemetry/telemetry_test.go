package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitNoneIsNoOp(t *testing.T) {
	shutdown, err := Init("agenticbt-test", "0.0.0", Config{Exporter: "none"})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := Init("agenticbt-test", "0.0.0", Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	if _, err := Init("agenticbt-test", "0.0.0", Config{Exporter: "otlp"}); err == nil {
		t.Fatal("expected error for missing otlp endpoint")
	}
}

func TestConfigureSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn record should pass at warn level")
	}
}

func TestConfigureSlogJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")
	logger.Info("hello", "k", "v")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestParseLogLevelDefaultsToInfo(t *testing.T) {
	if got := ParseLogLevel("nonsense"); got != slog.LevelInfo {
		t.Errorf("expected info default, got %v", got)
	}
	if got := ParseLogLevel("DEBUG"); got != slog.LevelDebug {
		t.Errorf("expected case-insensitive parse, got %v", got)
	}
}

func TestRunMetricsRecordWithoutProvider(t *testing.T) {
	m, err := NewRunMetrics()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.RecordTick(ctx, "qa", "SUCCESS")
	m.RecordNodeFailure(ctx, "qa", "answer")
	m.AddTokens(ctx, "test-model", 10, 5)

	var nilMetrics *RunMetrics
	nilMetrics.RecordTick(ctx, "qa", "SUCCESS")
}
