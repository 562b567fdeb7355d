package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStart(t *testing.T) {
	tests := []struct {
		name      string
		trace     string
		wantSpans int
	}{
		{name: "should record a span when enabled", trace: "true", wantSpans: 1},
		{name: "should record nothing when disabled", trace: "", wantSpans: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRACE", tt.trace)
			recorder := tracetest.NewSpanRecorder()
			tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
			_, span := Start(
				context.Background(),
				tp.Tracer("test"),
				"tokenize",
				attribute.String("source", "test.scm"),
			)
			span.End()
			if got := len(recorder.Ended()); got != tt.wantSpans {
				t.Errorf("recorded %d spans, want %d", got, tt.wantSpans)
			}
		})
	}
}

func TestProvider(t *testing.T) {
	tp, err := Provider("http://localhost:14268/api/traces")
	if err != nil {
		t.Fatal(err)
	}
	if err = tp.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}
