package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwatch/cropwatch/internal/farm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	snap := farm.SampleSnapshot()
	for i := 0; i < 3; i++ {
		snap.Soil.Moisture = 60 + float64(i)
		require.NoError(t, s.Record(ctx, snap, base.Add(time.Duration(i)*time.Minute)))
	}

	points, err := s.Query(ctx, MetricMoisture, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 60.0, points[0].Value)
	assert.Equal(t, 62.0, points[2].Value)
	assert.True(t, points[1].Timestamp.Equal(base.Add(time.Minute)))

	points, err = s.Query(ctx, MetricMoisture, base.Add(90*time.Second), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	for i, n := range []float64{30, 50, 40} {
		snap := farm.MetricsSnapshot{Soil: farm.DefaultSoilData}
		snap.Soil.Nitrogen = n
		require.NoError(t, s.Record(ctx, snap, base.Add(time.Duration(i)*time.Minute)))
	}

	stats, err := s.Summary(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 6, "soil-only snapshots record six metrics")
	assert.Equal(t, MetricMoisture, stats[0].Metric)

	var nitrogen Stats
	for _, st := range stats {
		if st.Metric == MetricNitrogen {
			nitrogen = st
		}
	}
	assert.Equal(t, 3, nitrogen.Count)
	assert.Equal(t, 30.0, nitrogen.Min)
	assert.Equal(t, 50.0, nitrogen.Max)
	assert.InDelta(t, 40.0, nitrogen.Avg, 0.0001)
	assert.Equal(t, 40.0, nitrogen.Current)
}

func TestSummaryEmptyWindow(t *testing.T) {
	stats, err := openTestStore(t).Summary(context.Background(), time.Unix(0, 0), time.Unix(10, 0))
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, farm.SampleSnapshot(), base))
	require.NoError(t, s.Record(ctx, farm.SampleSnapshot(), base.Add(2*time.Hour)))

	n, err := s.Prune(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(len(Metrics)), n)

	points, err := s.Query(ctx, MetricPH, base.Add(-time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRunRetentionStopsOnCancel(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunRetention(ctx, time.Hour, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention loop did not stop")
	}
}
