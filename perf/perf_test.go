package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/input"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestLaneSamplerSpacing(t *testing.T) {
	ctx := context.Background()
	w := sandbox.New(sandbox.DefaultOptions())
	ego := w.Ego()
	require.NoError(t, w.SetLocation(ctx, ego.ID, r3.Vec{X: 5, Y: 0.5}))

	s := NewLaneSampler(0.25)
	taken := 0
	// 以0.125秒步长推进2秒
	for i := range 16 {
		ok, err := s.Sample(ctx, w, ego.ID, float64(i)*0.125)
		require.NoError(t, err)
		if ok {
			taken++
		}
	}
	assert.Equal(t, 8, taken)
	for i := 1; i < len(s.Samples()); i++ {
		assert.GreaterOrEqual(t, s.Samples()[i].T-s.Samples()[i-1].T, 0.25)
	}
	assert.InDelta(t, 0.5, s.Offsets()[0], 1e-9)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4}, 2)
	assert.Equal(t, 4, s.Samples)
	assert.InDelta(t, 2.5, s.MeanOffset, 1e-12)
	assert.InDelta(t, 1.2909944487358056, s.SDLP, 1e-12)
	assert.Equal(t, 4.0, s.MaxOffset)
	assert.Equal(t, 2, s.Collisions)

	assert.Equal(t, Summary{}, Summarize(nil, 0))
	assert.Equal(t, 0.7, Summarize([]float64{0.7}, 0).MeanOffset)
}

func TestCollisionRecorder(t *testing.T) {
	ctx := context.Background()
	w := sandbox.New(sandbox.DefaultOptions())
	r, err := ListenCollisions(ctx, w, w.Ego().ID)
	require.NoError(t, err)
	w.InjectCollision(entity.Actor{ID: 42, TypeID: "static.prop.buffalo"})
	require.NoError(t, r.Poll(ctx))
	require.NoError(t, r.Poll(ctx))
	require.Len(t, r.Events(), 1)

	sampler := NewLaneSampler(0.2)
	sampler.Add(0, 0.3)
	rec := NewRecord("s1", input.Settings{ParticipantID: "001"}, "ACR", sampler, r)
	assert.Equal(t, 1, rec.Summary.Collisions)
	require.Len(t, rec.Samples, 1)
	assert.Equal(t, 0.3, rec.Samples[0].Offset)
}
