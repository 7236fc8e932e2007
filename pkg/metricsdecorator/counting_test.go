package metricsdecorator

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type fakePersistent struct {
	data map[string][]byte
}

func newFakePersistent() *fakePersistent { return &fakePersistent{data: make(map[string][]byte)} }

func (f *fakePersistent) Get(key []byte) ([]byte, bool, error) {
	v, ok := f.data[string(key)]
	return v, ok, nil
}

func (f *fakePersistent) Put(key, value []byte) error {
	f.data[string(key)] = value
	return nil
}

func (f *fakePersistent) Delete(key []byte) error {
	delete(f.data, string(key))
	return nil
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func TestCountingTracksHitsMissesAndWrites(t *testing.T) {
	reg := prometheus.NewRegistry()
	counting := NewCounting(reg)
	inner := newFakePersistent()
	wrapped := counting.Decorate("notes", "notes", inner, nil, nil)

	_, ok, err := wrapped.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, wrapped.Put([]byte("k"), []byte("v")))

	_, ok, err = wrapped.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, wrapped.Delete([]byte("k")))

	require.Equal(t, float64(1), counterValue(t, counting.Hits, "notes"))
	require.Equal(t, float64(1), counterValue(t, counting.Misses, "notes"))
	require.Equal(t, float64(1), counterValue(t, counting.Writes, "notes", "put"))
	require.Equal(t, float64(1), counterValue(t, counting.Writes, "notes", "delete"))
}
