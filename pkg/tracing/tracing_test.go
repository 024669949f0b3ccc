package tracing_test

import (
	"context"
	"testing"
	"time"
	"xssdawn/pkg/tracing"

	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	tp, err := tracing.Setup(context.Background(), tracing.Options{})
	require.NoError(t, err)

	require.NotNil(t, tp.Tracer("test"))
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestSetup_Exporter(t *testing.T) {
	tp, err := tracing.Setup(context.Background(), tracing.Options{
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		Headers:     map[string]string{"x-team": "recon"},
		SampleRatio: 1,
		Component:   "test",
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "pipeline.run")
	require.True(t, span.IsRecording())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// nothing listens on the endpoint, only make sure shutdown returns
	_ = tp.Shutdown(ctx)
}

func TestSetup_SampleRatioZero(t *testing.T) {
	tp, err := tracing.Setup(context.Background(), tracing.Options{
		Endpoint: "127.0.0.1:4317",
		Insecure: true,
	})
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "pipeline.run")
	require.False(t, span.IsRecording())
}
