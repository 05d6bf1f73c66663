package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/xtune/model"
)

func sample(reads, writes uint64) model.LoadSample {
	s := make(model.LoadSample, model.LoadSampleWidth)
	s[model.ReadLoadField] = reads
	s[model.WriteLoadField] = writes
	return s
}

func TestIngestFirstSamplePrimes(t *testing.T) {
	s := NewLoadSampleStore()
	st, err := s.Ingest("sda", sample(100, 200))
	require.NoError(t, err)

	assert.Equal(t, st.Previous, st.Current)
	for i := range st.MaxDelta {
		assert.Equal(t, uint64(1), st.MaxDelta[i])
		assert.Equal(t, uint64(0), st.Diff[i])
	}
	assert.Zero(t, st.ReadLoad)
	assert.Zero(t, st.WriteLoad)
}

func TestIngestNormalizesAgainstMaxDelta(t *testing.T) {
	s := NewLoadSampleStore()
	_, err := s.Ingest("sda", sample(0, 0))
	require.NoError(t, err)

	st, err := s.Ingest("sda", sample(10, 40))
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.ReadLoad)
	assert.Equal(t, 1.0, st.WriteLoad)

	st, err = s.Ingest("sda", sample(15, 50))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, st.ReadLoad, 1e-9)
	assert.InDelta(t, 0.25, st.WriteLoad, 1e-9)
	assert.Equal(t, uint64(10), st.MaxDelta[model.ReadLoadField])
	assert.Equal(t, uint64(40), st.MaxDelta[model.WriteLoadField])

	st, err = s.Ingest("sda", sample(15, 50))
	require.NoError(t, err)
	assert.Zero(t, st.ReadLoad)
	assert.Zero(t, st.WriteLoad)
}

func TestIngestCounterWrapIsZeroLoad(t *testing.T) {
	s := NewLoadSampleStore()
	_, _ = s.Ingest("sda", sample(1000, 1000))
	st, err := s.Ingest("sda", sample(5, 2000))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), st.Diff[model.ReadLoadField])
	assert.Zero(t, st.ReadLoad)
	assert.Equal(t, 1.0, st.WriteLoad)
}

func TestIngestRejectsWrongWidth(t *testing.T) {
	s := NewLoadSampleStore()
	_, err := s.Ingest("sda", model.LoadSample{1, 2, 3})
	assert.ErrorIs(t, err, ErrSampleWidth)

	_, ok := s.Stats("sda")
	assert.False(t, ok, "malformed sample must not create state")
}

func TestIngestDevicesAreIndependent(t *testing.T) {
	s := NewLoadSampleStore()
	_, _ = s.Ingest("sda", sample(0, 0))
	_, _ = s.Ingest("sdb", sample(0, 0))
	_, _ = s.Ingest("sda", sample(100, 100))

	st, err := s.Ingest("sdb", sample(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.ReadLoad)
	assert.Equal(t, uint64(1), st.MaxDelta[model.ReadLoadField])
}

func TestMaxDeltaMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewLoadSampleStore()
	cur := make(model.LoadSample, model.LoadSampleWidth)
	var prevMax [model.LoadSampleWidth]uint64

	for step := 0; step < 500; step++ {
		next := make(model.LoadSample, model.LoadSampleWidth)
		for i := range next {
			switch rng.Intn(10) {
			case 0:
				next[i] = 0 // wrap
			default:
				next[i] = cur[i] + uint64(rng.Intn(1000))
			}
		}
		cur = next

		st, err := s.Ingest("sdz", cur)
		require.NoError(t, err)
		for i := range st.MaxDelta {
			require.GreaterOrEqual(t, st.MaxDelta[i], uint64(1))
			require.GreaterOrEqual(t, st.MaxDelta[i], prevMax[i])
		}
		require.GreaterOrEqual(t, st.ReadLoad, 0.0)
		require.LessOrEqual(t, st.ReadLoad, 1.0)
		require.GreaterOrEqual(t, st.WriteLoad, 0.0)
		require.LessOrEqual(t, st.WriteLoad, 1.0)
		prevMax = st.MaxDelta
	}
}

func TestStatsReturnsCopy(t *testing.T) {
	s := NewLoadSampleStore()
	_, _ = s.Ingest("sda", sample(1, 1))
	st, ok := s.Stats("sda")
	require.True(t, ok)
	st.Current[0] = 999

	again, _ := s.Stats("sda")
	assert.Equal(t, uint64(1), again.Current[0])
}
