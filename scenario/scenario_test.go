package scenario_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/scenario"
	"github.com/tsinghua-fib-lab/takeover-sim/task"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

func newContext(t *testing.T, sc scenario.Scenario) (*task.Context, *sandbox.World) {
	t.Helper()
	w := sandbox.New(sandbox.DefaultOptions())
	rc := config.NewRuntimeConfig(config.Default())
	tc := task.NewContext(sandbox.NewClient(w), rc, randengine.New(1), nil)
	p := sc.Profile()
	require.NoError(t, tc.Init(context.Background(), p.LeadingDistance, p.SpeedDifference))
	return tc, w
}

func actorsOf(w *sandbox.World, typeID string) []entity.Actor {
	return lo.Filter(w.Alive(), func(a entity.Actor, _ int) bool {
		return a.TypeID == typeID
	})
}

func location(t *testing.T, w *sandbox.World, a entity.Actor) r3.Vec {
	t.Helper()
	loc, err := w.Location(context.Background(), a.ID)
	require.NoError(t, err)
	return loc
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, "EW", scenario.New(1).Profile().Code)
	assert.Equal(t, "LVAD", scenario.New(2).Profile().Code)
	assert.Equal(t, "CSA", scenario.New(3).Profile().Code)
	assert.Equal(t, "ACR", scenario.New(4).Profile().Code)
	assert.Equal(t, "ACR", scenario.New(0).Profile().Code)
	assert.Equal(t, "ACR", scenario.New(17).Profile().Code)

	codes := lo.Map(scenario.Profiles(), func(p scenario.Profile, _ int) string { return p.Code })
	assert.Equal(t, []string{"EW", "LVAD", "CSA", "ACR"}, codes)
	assert.Panics(t, func() { scenario.Register(scenario.ACRID, scenario.NewACR) })
}

func TestProfiles(t *testing.T) {
	ew := scenario.New(scenario.ExtremeWeatherID).Profile()
	assert.Equal(t, -500.0, ew.SpeedDifference)
	assert.Equal(t, 100.0, ew.Approach)

	lvad := scenario.New(scenario.LVADID).Profile()
	assert.Equal(t, 0.1, lvad.LeadingDistance)
	assert.Equal(t, 50.0, lvad.Approach)
	assert.Equal(t, 25, lvad.TTSAdjustment)

	acr := scenario.New(scenario.ACRID).Profile()
	assert.Equal(t, 125.0, acr.Approach)
	assert.True(t, acr.AlwaysNarrate)
	assert.True(t, acr.RestartNarration)
	assert.False(t, lvad.AlwaysNarrate)
}

func TestExtremeWeather(t *testing.T) {
	ctx := context.Background()
	sc := scenario.New(scenario.ExtremeWeatherID)
	tc, w := newContext(t, sc)

	hazard, err := sc.Setup(ctx, tc)
	require.NoError(t, err)
	assert.InDelta(t, scenario.HazardDistance, hazard.X, 1)
	assert.NotEmpty(t, tc.Tracked())

	original, err := w.Weather(ctx)
	require.NoError(t, err)
	start, _ := tc.Clock().Now()
	require.NoError(t, sc.Trigger(ctx, tc))
	ramped, _ := tc.Clock().Now()
	assert.InDelta(t, 4.5, ramped-start, 0.15)

	fog := lo.Map(w.WeatherHistory(), func(v entity.Weather, _ int) float64 { return v.FogDensity })
	assert.Equal(t, []float64{20, 25, 30, 35, 40, 45, 50, 55, 60}, fog[len(fog)-9:])
	last := w.WeatherHistory()[len(fog)-1]
	assert.Equal(t, original.Precipitation, last.Precipitation)

	ok, err := sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tc.Wait(ctx, 10))
	ok, err = sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sc.Restore(ctx, tc))
	restored, err := w.Weather(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestLVAD(t *testing.T) {
	ctx := context.Background()
	sc := scenario.New(scenario.LVADID)
	tc, w := newContext(t, sc)

	hazard, err := sc.Setup(ctx, tc)
	require.NoError(t, err)
	danger := actorsOf(w, "vehicle.ford.mustang")
	// 相邻车道车辆也可能随机到同一型号，危险车辆是位于主车车道的那一辆
	danger = lo.Filter(danger, func(a entity.Actor, _ int) bool { return location(t, w, a).Y == 0 })
	require.Len(t, danger, 1)
	assert.Equal(t, 1.0, hazard.Z)
	assert.Equal(t, hazard, location(t, w, danger[0]))

	require.NoError(t, tc.Wait(ctx, 1))
	assert.Equal(t, hazard, location(t, w, danger[0]))
	_, held := w.ConstantVelocity(danger[0].ID)
	assert.True(t, held)

	require.NoError(t, sc.Trigger(ctx, tc))
	ok, err := sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tc.Wait(ctx, 5))
	ok, err = sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sc.Restore(ctx, tc))
	_, held = w.ConstantVelocity(danger[0].ID)
	assert.False(t, held)
	assert.True(t, w.Autopilot(danger[0].ID))
}

func TestCSA(t *testing.T) {
	ctx := context.Background()
	sc := scenario.New(scenario.CSAID)
	tc, w := newContext(t, sc)

	hazard, err := sc.Setup(ctx, tc)
	require.NoError(t, err)

	barriers := actorsOf(w, "static.prop.laneblock")
	require.Len(t, barriers, 2)
	ys := lo.Map(barriers, func(a entity.Actor, _ int) float64 {
		loc := location(t, w, a)
		assert.Equal(t, hazard.X, loc.X)
		return loc.Y
	})
	assert.ElementsMatch(t, []float64{3.5, -3.5}, ys)

	jcbs := actorsOf(w, "static.prop.jcb")
	require.Len(t, jcbs, 2)
	assert.Equal(t, r3.Vec{X: hazard.X + 6, Y: 3.5}, location(t, w, jcbs[0]))
	assert.Equal(t, r3.Vec{X: hazard.X, Y: -3.5}, location(t, w, jcbs[1]))

	front := actorsOf(w, "vehicle.chevrolet.impala")
	require.NotEmpty(t, front)
	assert.True(t, w.Autopilot(front[0].ID))

	require.NoError(t, sc.Approach(ctx, tc))
	require.NoError(t, sc.Trigger(ctx, tc))
	ok, err := sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.True(t, ok)

	ego := tc.Ego()
	require.NoError(t, w.SetLocation(ctx, ego.ID, r3.Vec{X: hazard.X + 15}))
	ok, err = sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, w.SetLocation(ctx, ego.ID, r3.Vec{X: hazard.X + 25}))
	ok, err = sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestACR(t *testing.T) {
	ctx := context.Background()
	sc := scenario.New(scenario.ACRID)
	tc, w := newContext(t, sc)

	hazard, err := sc.Setup(ctx, tc)
	require.NoError(t, err)
	animals := actorsOf(w, "static.prop.buffalo")
	require.Len(t, animals, 3)
	for i, a := range animals {
		loc := location(t, w, a)
		assert.InDelta(t, hazard.X+5*float64(i), loc.X, 1e-9)
		assert.Equal(t, 3.5, loc.Y)
		assert.Equal(t, 0.1, loc.Z)
	}

	require.NoError(t, sc.Trigger(ctx, tc))
	ok, err := sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.5, location(t, w, animals[0]).Y)
	assert.InDelta(t, 3.45, location(t, w, animals[1]).Y, 1e-9)
	assert.InDelta(t, 3.4, location(t, w, animals[2]).Y, 1e-9)

	require.NoError(t, w.SetLocation(ctx, tc.Ego().ID, r3.Vec{X: hazard.X + 25}))
	ok, err = sc.Measuring(ctx, tc)
	require.NoError(t, err)
	assert.False(t, ok)
	// 结束后不再移动
	assert.InDelta(t, 3.45, location(t, w, animals[1]).Y, 1e-9)
}
