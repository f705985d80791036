package observability

import (
	"testing"

	"github.com/smallbiznis/hrledger/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("METRICS_NAMESPACE", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{AppName: "", Environment: "test", AppVersion: "1.2.3"})

	if cfg.ServiceName != "hrledger" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info level, got %q", cfg.LogLevel)
	}
	if cfg.OtelEnabled {
		t.Fatalf("expected otel disabled by default")
	}
	if cfg.MetricsNamespace != "hrledger" {
		t.Fatalf("expected metrics namespace hrledger, got %q", cfg.MetricsNamespace)
	}
	if !cfg.Debug() {
		t.Fatalf("expected test environment to enable debug")
	}
}

func TestLoadConfigProtocolOverride(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("DEPLOYMENT_ENV", "")
	t.Setenv("LOG_LEVEL", "info")

	cfg := LoadConfig(config.Config{Environment: "production"})

	if cfg.OtelExporterProtocol != "http" {
		t.Fatalf("expected http protocol, got %q", cfg.OtelExporterProtocol)
	}
	if cfg.Debug() {
		t.Fatalf("expected production to disable debug")
	}
}
