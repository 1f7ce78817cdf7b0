package vehicle_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/takeover-sim/task"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

func newContext(t *testing.T) (*task.Context, *sandbox.World) {
	t.Helper()
	w := sandbox.New(sandbox.DefaultOptions())
	rc := config.NewRuntimeConfig(config.Default())
	tc := task.NewContext(sandbox.NewClient(w), rc, randengine.New(7), nil)
	require.NoError(t, tc.Init(context.Background(), 2, -400))
	return tc, w
}

func ids(bps []entity.Blueprint) []string {
	return lo.Map(bps, func(b entity.Blueprint, _ int) string { return b.ID })
}

func TestFilterGeneration(t *testing.T) {
	bps := []entity.Blueprint{
		{ID: "a", Attributes: map[string]entity.Attribute{"generation": {Value: "1"}}},
		{ID: "b", Attributes: map[string]entity.Attribute{"generation": {Value: "2"}}},
		{ID: "c"},
	}
	assert.Len(t, vehicle.FilterGeneration(bps, "All"), 3)
	assert.Len(t, vehicle.FilterGeneration(bps, "all"), 3)
	assert.Equal(t, []string{"a"}, ids(vehicle.FilterGeneration(bps, "1")))
	assert.Equal(t, []string{"b"}, ids(vehicle.FilterGeneration(bps, "2")))
	assert.Empty(t, vehicle.FilterGeneration(bps, "3"))
	assert.Empty(t, vehicle.FilterGeneration(bps, "x"))
	// 只有一个蓝图时忽略代际
	assert.Len(t, vehicle.FilterGeneration(bps[2:], "1"), 1)
}

func TestTrafficBlueprints(t *testing.T) {
	ctx := context.Background()
	w := sandbox.New(sandbox.DefaultOptions())
	bps, err := vehicle.TrafficBlueprints(ctx, w, "vehicle.*", "All")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"vehicle.audi.tt",
		"vehicle.chevrolet.impala",
		"vehicle.ford.mustang",
		"vehicle.tesla.model3",
	}, ids(bps))

	bps, err = vehicle.TrafficBlueprints(ctx, w, "vehicle.*", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicle.ford.mustang", "vehicle.tesla.model3"}, ids(bps))
}

func TestFindEgo(t *testing.T) {
	ctx := context.Background()
	w := sandbox.New(sandbox.DefaultOptions())
	ego, err := vehicle.FindEgo(ctx, w, sandbox.EgoTypeID)
	require.NoError(t, err)
	assert.Equal(t, w.Ego(), ego)

	_, err = vehicle.FindEgo(ctx, w, "vehicle.none.*")
	assert.Error(t, err)
}

func TestSpawnTraffic(t *testing.T) {
	ctx := context.Background()
	tc, w := newContext(t)
	spawned, err := vehicle.SpawnTraffic(ctx, tc, 5)
	require.NoError(t, err)
	assert.Len(t, spawned, 5)
	assert.ElementsMatch(t, spawned, tc.Tracked())
	for _, id := range spawned {
		assert.True(t, w.Autopilot(id))
	}

	// 出生点不足时取出生点数量
	tc, _ = newContext(t)
	spawned, err = vehicle.SpawnTraffic(ctx, tc, 1000)
	require.NoError(t, err)
	assert.Len(t, spawned, 60)
}

func TestSpawnAdjacent(t *testing.T) {
	ctx := context.Background()
	tc, w := newContext(t)
	left, right, err := vehicle.SpawnAdjacent(ctx, tc, vehicle.AdjacentOptions{Start: -50, Pairs: 3})
	require.NoError(t, err)
	require.Len(t, left, 3)
	require.Len(t, right, 3)
	assert.Len(t, tc.Tracked(), 6)

	check := func(side []entity.Actor, y float64) {
		prev := 0.0
		for i, a := range side {
			loc, err := w.Location(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, y, loc.Y)
			assert.Equal(t, 1.0, loc.Z)
			assert.True(t, w.Autopilot(a.ID))
			if i > 0 {
				assert.Less(t, loc.X, prev)
			}
			prev = loc.X
		}
	}
	check(left, -3.5)
	check(right, 3.5)
}

func TestConvoyStopNear(t *testing.T) {
	ctx := context.Background()
	tc, w := newContext(t)
	_, right, err := vehicle.SpawnAdjacent(ctx, tc, vehicle.AdjacentOptions{Start: 0, Pairs: 2})
	require.NoError(t, err)
	require.Len(t, right, 2)
	convoy := &vehicle.Convoy{Vehicles: right}

	front, err := w.Location(ctx, right[0].ID)
	require.NoError(t, err)
	far := front
	far.X += 100
	stopped, err := convoy.StopNear(ctx, tc, far, 15)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.False(t, convoy.Stopped())

	stopped, err = convoy.StopNear(ctx, tc, front, 15)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.True(t, convoy.Stopped())
	assert.False(t, w.Autopilot(right[0].ID))
	assert.Equal(t, entity.FullBrake, w.Control(right[0].ID))

	// 已停车时不再处理
	stopped, err = convoy.StopNear(ctx, tc, front, 15)
	require.NoError(t, err)
	assert.False(t, stopped)
}
