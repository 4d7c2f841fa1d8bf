package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/postclean/internal/core"
)

func TestObserveRun_Success(t *testing.T) {
	r := New()
	r.ObserveRun(&core.RunResult{
		Rows:          4,
		BytesRead:     512,
		ReplacedBytes: 3,
		Duration:      20 * time.Millisecond,
		Stats:         core.CleanStats{Rows: 4, HashtagFallbacks: 1, MentionFallbacks: 2},
	}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.Rows))
	assert.Equal(t, 512.0, testutil.ToFloat64(r.BytesRead))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ReplacedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EntityFallbacks.WithLabelValues("hashtags")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.EntityFallbacks.WithLabelValues("mentions")))
}

func TestObserveRun_FailureLabeledByCode(t *testing.T) {
	r := New()
	err := fmt.Errorf("load: %w", core.ErrMissingColumn)
	r.ObserveRun(&core.RunResult{Rows: 9, Stats: core.CleanStats{HashtagFallbacks: 3}}, err)
	r.ObserveRun(nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("VAL004")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("ERR000")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Rows), "failed runs write no rows")
	assert.Equal(t, 0, testutil.CollectAndCount(r.EntityFallbacks))
}

func TestTrackLimiter(t *testing.T) {
	r := New()
	l := core.NewLimiter(3, time.Second)
	r.TrackLimiter(l)

	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	count, err := testutil.GatherAndCount(r.Gatherer(), "postclean_active_cleans", "postclean_max_concurrent_cleans")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		switch mf.GetName() {
		case "postclean_active_cleans":
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
		case "postclean_max_concurrent_cleans":
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	r := New()
	r.ObserveRun(&core.RunResult{Rows: 1}, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `postclean_runs_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
