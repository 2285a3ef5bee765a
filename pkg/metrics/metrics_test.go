package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersWithoutStorage(t *testing.T) {
	assert.Equal(t, int64(0), Get("never_set"))
	assert.Equal(t, int64(2), Incr("no_storage_counter", 2))
	points, err := Query("no_storage_counter", 0, time.Now().Unix()+1)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestMetricsStorage(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	defer func() { require.NoError(t, Close()) }()

	Incr(PublishTotal, 1)
	Incr(PublishTotal, 1)
	SetGauge(NetworkItems, 5)

	assert.Equal(t, int64(2), Get(PublishTotal))
	assert.Equal(t, int64(5), Snapshot()[NetworkItems])

	now := time.Now().Unix()
	points, err := Query(NetworkItems, now-60, now+60)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, float64(5), points[len(points)-1].Value)

	points, err = Query("unknown_metric", now-60, now+60)
	require.NoError(t, err)
	assert.Empty(t, points)
}
