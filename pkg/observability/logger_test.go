package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("debug", FormatJSON, &buf)
	require.NoError(t, err)

	logger.WithField("component", "permissions").Debug("loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "permissions", entry["component"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", FormatText, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger("loud", FormatText, nil)
	assert.Error(t, err)

	_, err = NewLogger("info", "xml", nil)
	assert.Error(t, err)
}

func TestWithTraceContext(t *testing.T) {
	logger := NopLogger()

	// No span: logger passes through unchanged
	assert.Equal(t, logrus.FieldLogger(logger), WithTraceContext(context.Background(), logger))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	entry, ok := WithTraceContext(ctx, logger).(*logrus.Entry)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry.Data["span_id"])
}
