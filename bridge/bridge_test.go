package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"gonum.org/v1/gonum/spatial/r3"
)

func newBridge(t *testing.T, json bool) (*Client, *sandbox.World, *sandbox.Client) {
	w := sandbox.New(sandbox.DefaultOptions())
	sc := sandbox.NewClient(w)
	mux := http.NewServeMux()
	Register(mux, sc)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := config.Default().Simulator
	c.JSON = json
	cl := NewClient(srv.URL, c, srv.Client())
	t.Cleanup(func() { cl.Close() })
	return cl, w, sc
}

func TestWorldRoundTrip(t *testing.T) {
	for _, json := range []bool{false, true} {
		cl, w, _ := newBridge(t, json)
		ctx := context.Background()
		rw := cl.World()

		require.NoError(t, rw.ApplySettings(ctx, entity.WorldSettings{SynchronousMode: true, FixedDeltaSeconds: 0.0125}))
		s, err := rw.Settings(ctx)
		require.NoError(t, err)
		assert.True(t, s.SynchronousMode)
		assert.Equal(t, 0.0125, s.FixedDeltaSeconds)

		frame, err := rw.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), frame)

		egos, err := rw.Actors(ctx, sandbox.EgoTypeID)
		require.NoError(t, err)
		require.Len(t, egos, 1)
		assert.Equal(t, w.Ego(), egos[0])

		bps, err := rw.Blueprints(ctx, "vehicle.audi.*")
		require.NoError(t, err)
		require.Len(t, bps, 1)
		assert.Equal(t, []string{"17,37,78", "255,255,255"}, bps[0].Attributes["color"].RecommendedValues)

		wp, err := rw.Waypoint(ctx, r3.Vec{X: 3, Y: 0.2})
		require.NoError(t, err)
		assert.Equal(t, entity.LaneChangeBoth, wp.LaneChange)
		next, err := rw.WaypointNext(ctx, wp, 100)
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.Equal(t, 103.0, next[0].Transform.Location.X)
		right, ok, err := rw.RightLane(ctx, next[0])
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3.5, right.Transform.Location.Y)
		_, ok, err = rw.RightLane(ctx, right)
		require.NoError(t, err)
		assert.False(t, ok)

		a, ok, err := rw.TrySpawnActor(ctx, "static.prop.buffalo", right.Transform)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, rw.SetLocation(ctx, a.ID, r3.Vec{X: 1, Y: 2, Z: 3}))
		loc, err := rw.Location(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, loc)

		res, err := rw.ApplyBatch(ctx, []entity.SpawnCommand{{
			Blueprint:  "vehicle.audi.tt",
			Attributes: map[string]string{"color": "17,37,78"},
			Transform:  entity.Transform{Location: r3.Vec{X: 300}},
			Autopilot:  true,
			TMPort:     8000,
		}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Empty(t, res[0].Error)
		assert.True(t, w.Autopilot(res[0].ActorID))

		require.NoError(t, rw.ApplyControl(ctx, res[0].ActorID, entity.FullBrake))
		assert.Equal(t, entity.FullBrake, w.Control(res[0].ActorID))
		require.NoError(t, rw.DestroyActors(ctx, []entity.ActorID{a.ID, res[0].ActorID}))
		assert.ElementsMatch(t, []entity.ActorID{a.ID, res[0].ActorID}, w.Destroyed())

		sensor, err := rw.ListenCollisions(ctx, w.Ego().ID)
		require.NoError(t, err)
		w.InjectCollision(entity.Actor{ID: 77, TypeID: "vehicle.tesla.model3"})
		events, err := rw.CollisionEvents(ctx, sensor)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, entity.ActorID(77), events[0].OtherActor.ID)

		require.NoError(t, rw.SetWeatherPreset(ctx, "MidRainyNoon"))
		weather, err := rw.Weather(ctx)
		require.NoError(t, err)
		assert.Equal(t, 60.0, weather.Precipitation)
		weather.FogDensity = 40
		require.NoError(t, rw.SetWeather(ctx, weather))
		hist := w.WeatherHistory()
		assert.Equal(t, 40.0, hist[len(hist)-1].FogDensity)
	}
}

func TestTrafficManager(t *testing.T) {
	cl, _, sc := newBridge(t, false)
	ctx := context.Background()
	tm := cl.TrafficManager(8000)
	assert.Equal(t, 8000, tm.Port())
	require.NoError(t, tm.SetSynchronousMode(ctx, true))
	require.NoError(t, tm.SetGlobalDistanceToLeadingVehicle(ctx, 2))
	require.NoError(t, tm.GlobalPercentageSpeedDifference(ctx, -400))
	require.NoError(t, tm.AutoLaneChange(ctx, 1, false))

	st := sc.Sandbox(8000)
	assert.True(t, st.Synchronous)
	assert.Equal(t, 2.0, st.LeadingDistance)
	assert.Equal(t, -400.0, st.SpeedDifference)
	assert.Equal(t, false, st.LaneChange[1])
}

func TestRemoteErrors(t *testing.T) {
	cl, _, _ := newBridge(t, false)
	ctx := context.Background()
	_, err := cl.World().Location(ctx, 12345)
	require.Error(t, err)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))

	err = cl.World().SetWeatherPreset(ctx, "Nope")
	assert.Error(t, err)
}
