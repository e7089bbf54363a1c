package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func sampleDecision(s sdktrace.Sampler) sdktrace.SamplingDecision {
	return s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       oteltrace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Name:          "telemetry-test",
	}).Decision
}

func TestParseSampler(t *testing.T) {
	tests := []struct {
		name, arg string
		want      sdktrace.SamplingDecision
	}{
		{"always_off", "", sdktrace.Drop},
		{"always_on", "", sdktrace.RecordAndSample},
		{"traceidratio", "2", sdktrace.RecordAndSample},
		{"traceidratio", "-1", sdktrace.Drop},
		{"parentbased", "0", sdktrace.Drop},
		{"unknown", "", sdktrace.RecordAndSample},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.arg, func(t *testing.T) {
			if got := sampleDecision(parseSampler(tt.name, tt.arg)); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("k1=v1, k2 = v2,broken, =bad")
	if len(headers) != 2 || headers["k1"] != "v1" || headers["k2"] != "v2" {
		t.Errorf("Unexpected headers %#v", headers)
	}
	if got := parseHeaders("   "); got != nil {
		t.Errorf("Expected nil for empty header string, got %v", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SFCPAY_TELEMETRY_TEST_INT", "42")
	if got := envInt("SFCPAY_TELEMETRY_TEST_INT", 1); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	t.Setenv("SFCPAY_TELEMETRY_TEST_INT", "bad")
	if got := envInt("SFCPAY_TELEMETRY_TEST_INT", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
}

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), Options{ServiceVersion: "test"}, nil)
	if err != nil {
		t.Fatalf("Failed to init telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("Failed to shut down: %v", err)
		}
	}()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("Expected SDK tracer provider, got %T", otel.GetTracerProvider())
	}

	_, span := otel.Tracer("test").Start(context.Background(), "span")
	if !span.SpanContext().IsValid() {
		t.Error("Expected a recording span with a valid context")
	}
	span.End()
}
