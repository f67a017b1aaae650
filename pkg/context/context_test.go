package context_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	qdctx "github.com/yeisme/quickdrop/pkg/context"
)

func TestLoggerCarriesRequestAndTrace(t *testing.T) {
	var buf bytes.Buffer

	ctx := qdctx.WithLogger(context.Background(), zerolog.New(&buf).With().Str("request_id", "r-1").Logger())

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx = trace.ContextWithSpanContext(ctx, sc)

	qdctx.Logger(ctx).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"request_id":"r-1"`, `"trace_id":"` + sc.TraceID().String(), `"span_id":"` + sc.SpanID().String()} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %s missing %s", out, want)
		}
	}
}

func TestResourcesMissing(t *testing.T) {
	ctx := context.Background()

	if qdctx.GetManager(ctx) != nil || qdctx.GetScheduler(ctx) != nil {
		t.Fatal("expected nil resources on empty context")
	}

	if qdctx.GetDBClient(ctx) != nil || qdctx.GetKVClient(ctx) != nil || qdctx.GetMQClient(ctx) != nil {
		t.Fatal("expected nil clients on empty context")
	}

	if qdctx.Logger(ctx) == nil {
		t.Fatal("logger should fall back to the global logger")
	}
}
