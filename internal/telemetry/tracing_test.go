package telemetry

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSetupTracingDisabled(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		shutdown, err := SetupTracing(context.Background(), TraceConfig{Exporter: exporter}, quietLogger())
		if err != nil {
			t.Fatalf("exporter %q: %v", exporter, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("exporter %q shutdown: %v", exporter, err)
		}
	}
}

func TestSetupTracingRejectsBadConfig(t *testing.T) {
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "otlp"}, quietLogger()); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "zipkin"}, quietLogger()); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetupTracingStdout(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TraceConfig{
		ServiceName:    "imagetools-test",
		ServiceVersion: "test",
		Exporter:       "stdout",
		SampleRatio:    0.5,
	}, quietLogger())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	always := sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()
	for _, ratio := range []float64{0, 1, 2} {
		if got := sampler(ratio).Description(); got != always {
			t.Fatalf("ratio %v: expected %s, got %s", ratio, always, got)
		}
	}
	if got := sampler(0.25).Description(); got == always {
		t.Fatalf("ratio 0.25 should not sample everything, got %s", got)
	}
}
