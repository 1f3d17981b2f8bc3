package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// syncBuffer is a bytes.Buffer safe for the exporters' goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func restoreGlobals(t *testing.T) {
	t.Helper()

	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestSetup_ExportsSpansAndMetrics(t *testing.T) {
	restoreGlobals(t)

	var out syncBuffer
	p, err := Setup(&out, Options{ServiceName: "usercrud-test", ServiceVersion: "dev"})
	require.NoError(t, err)

	ctx := context.Background()
	_, span := otel.Tracer("test").Start(ctx, "users.list")
	span.End()

	counter, err := otel.Meter("test").Int64Counter("usercrud.test.calls")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	require.NoError(t, p.Shutdown(ctx))

	got := out.String()
	assert.Contains(t, got, "users.list")
	assert.Contains(t, got, "usercrud.test.calls")
	assert.Contains(t, got, "usercrud-test")
}

func TestSetup_InstallsGlobalProviders(t *testing.T) {
	restoreGlobals(t)

	p, err := Setup(&syncBuffer{}, Options{ServiceName: "usercrud"})
	require.NoError(t, err)
	t.Cleanup(func() { p.Shutdown(context.Background()) })

	assert.Same(t, p.Tracer, otel.GetTracerProvider())
	assert.Same(t, p.Meter, otel.GetMeterProvider())
}
