package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/metrics"

	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, m *metrics.Metrics, prefix string) float64 {
	t.Helper()

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), prefix) {
			continue
		}
		var total float64
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}

		return total
	}
	t.Fatalf("metric family %q not found", prefix)

	return 0
}

func TestMetrics_Record(t *testing.T) {
	m, err := metrics.New(metrics.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	m.StageFinished(ctx, "collect", 2*time.Second, 40)
	m.StageFinished(ctx, "scan", time.Minute, 2)
	m.ToolFailed(ctx, "gf")
	m.RunFinished(ctx, domain.RunStatusCompleted)
	m.RunFinished(ctx, domain.RunStatusFailed)

	require.InDelta(t, 2, findFamily(t, m, "xssdawn_stage_duration"), 0)
	require.InDelta(t, 42, findFamily(t, m, "xssdawn_stage_urls"), 0)
	require.InDelta(t, 1, findFamily(t, m, "xssdawn_tool_failures"), 0)
	require.InDelta(t, 2, findFamily(t, m, "xssdawn_runs"), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m, err := metrics.New(metrics.Options{RuntimeCollectors: true})
	require.NoError(t, err)
	m.ToolFailed(context.Background(), "dalfox")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint: noctx
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "xssdawn_tool_failures")
	require.Contains(t, string(body), `tool="dalfox"`)
	require.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m, err := metrics.New(metrics.Options{})
	require.NoError(t, err)
	m.RunFinished(context.Background(), domain.RunStatusCompleted)

	path := filepath.Join(t.TempDir(), "xssdawn.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `status="COMPLETED"`)
}
