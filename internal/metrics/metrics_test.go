package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter(BackupLoadsTotal, map[string]string{"status": "applied"}, "Backup loads")
	r.IncrementCounter(BackupLoadsTotal, map[string]string{"status": "applied"}, "Backup loads")
	r.AddToCounter(BackupLoadsTotal, 3, map[string]string{"status": "superseded"}, "Backup loads")

	snap := r.Snapshot()
	require.Len(t, snap.Counters, 2)
	assert.Equal(t, 2.0, snap.Counters["backup_loads_total_status:applied"].Value)
	assert.Equal(t, 3.0, snap.Counters["backup_loads_total_status:superseded"].Value)
	assert.Equal(t, Counter, snap.Counters["backup_loads_total_status:applied"].Type)
}

func TestRegistry_Gauge(t *testing.T) {
	r := NewRegistry()

	r.SetGauge(SessionMessages, 10, nil, "Messages in session")
	r.SetGauge(SessionMessages, 4, nil, "Messages in session")

	snap := r.Snapshot()
	assert.Equal(t, 4.0, snap.Gauges[SessionMessages].Value)
}

func TestRegistry_Timer(t *testing.T) {
	r := NewRegistry()

	for i := 1; i <= 20; i++ {
		r.RecordTimer(BackupNormalizeDuration, time.Duration(i)*time.Millisecond, nil, "Normalize time")
	}

	timer := r.Snapshot().Timers[BackupNormalizeDuration]
	assert.Equal(t, int64(20), timer.Count)
	assert.InDelta(t, 1.0, timer.Min, 0.001)
	assert.InDelta(t, 20.0, timer.Max, 0.001)
	assert.InDelta(t, 10.5, timer.Average, 0.001)
	assert.InDelta(t, 20.0, timer.P95, 0.001)
	assert.Nil(t, timer.samples)
}

func TestMetricKey_LabelOrderIsStable(t *testing.T) {
	a := metricKey("m", map[string]string{"b": "2", "a": "1"})
	b := metricKey("m", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "m_a:1_b:2", a)
	assert.Equal(t, "m", metricKey("m", nil))
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("c", map[string]string{"k": "v"}, "")

	snap := r.Snapshot()
	r.IncrementCounter("c", map[string]string{"k": "v"}, "")

	assert.Equal(t, 1.0, snap.Counters["c_k:v"].Value)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("c", nil, "")
	r.Reset()
	assert.Empty(t, r.Snapshot().Counters)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.IncrementCounter(FilterQueriesTotal, nil, "")
			r.RecordTimer(HTTPRequestDuration, time.Millisecond, nil, "")
			_ = r.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50.0, r.Snapshot().Counters[FilterQueriesTotal].Value)
}
