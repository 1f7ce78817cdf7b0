package bridge

import (
	"context"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// World 远程仿真世界，实现entity.IWorld
type World struct {
	c *Client
}

type frameResponse struct {
	Frame uint64
}

type okResponse[T any] struct {
	OK    bool
	Value T
}

func (w *World) Tick(ctx context.Context) (uint64, error) {
	var res frameResponse
	if err := w.c.call(ctx, TickProcedure, nil, &res); err != nil {
		return 0, err
	}
	return res.Frame, nil
}

func (w *World) Settings(ctx context.Context) (entity.WorldSettings, error) {
	var res entity.WorldSettings
	err := w.c.call(ctx, GetSettingsProcedure, nil, &res)
	return res, err
}

func (w *World) ApplySettings(ctx context.Context, s entity.WorldSettings) error {
	return w.c.call(ctx, ApplySettingsProcedure, encodeSettings(s), nil)
}

func (w *World) Weather(ctx context.Context) (entity.Weather, error) {
	var res entity.Weather
	err := w.c.call(ctx, GetWeatherProcedure, nil, &res)
	return res, err
}

func (w *World) SetWeather(ctx context.Context, weather entity.Weather) error {
	return w.c.call(ctx, SetWeatherProcedure, encodeWeather(weather), nil)
}

func (w *World) SetWeatherPreset(ctx context.Context, name string) error {
	return w.c.call(ctx, SetWeatherPresetProcedure, map[string]any{"name": name}, nil)
}

func (w *World) Blueprints(ctx context.Context, filter string) ([]entity.Blueprint, error) {
	var res struct{ Blueprints []entity.Blueprint }
	err := w.c.call(ctx, GetBlueprintsProcedure, map[string]any{"filter": filter}, &res)
	return res.Blueprints, err
}

func (w *World) Actors(ctx context.Context, filter string) ([]entity.Actor, error) {
	var res struct{ Actors []entity.Actor }
	err := w.c.call(ctx, GetActorsProcedure, map[string]any{"filter": filter}, &res)
	return res.Actors, err
}

func (w *World) SpawnActor(ctx context.Context, blueprint string, t entity.Transform, parent entity.ActorID) (entity.Actor, error) {
	var res entity.Actor
	err := w.c.call(ctx, SpawnActorProcedure, map[string]any{
		"blueprint": blueprint,
		"transform": encodeTransform(t),
		"parent":    uint32(parent),
	}, &res)
	return res, err
}

func (w *World) TrySpawnActor(ctx context.Context, blueprint string, t entity.Transform) (entity.Actor, bool, error) {
	var res okResponse[entity.Actor]
	err := w.c.call(ctx, TrySpawnActorProcedure, map[string]any{
		"blueprint": blueprint,
		"transform": encodeTransform(t),
	}, &res)
	return res.Value, res.OK, err
}

func (w *World) ApplyBatch(ctx context.Context, cmds []entity.SpawnCommand) ([]entity.SpawnResult, error) {
	var res struct{ Results []entity.SpawnResult }
	err := w.c.call(ctx, ApplyBatchProcedure, map[string]any{
		"commands": encodeList(cmds, encodeSpawnCommand),
	}, &res)
	return res.Results, err
}

func (w *World) DestroyActors(ctx context.Context, ids []entity.ActorID) error {
	return w.c.call(ctx, DestroyActorsProcedure, map[string]any{"actor_ids": encodeIDs(ids)}, nil)
}

func (w *World) SpawnPoints(ctx context.Context) ([]entity.Transform, error) {
	var res struct{ Transforms []entity.Transform }
	err := w.c.call(ctx, GetSpawnPointsProcedure, nil, &res)
	return res.Transforms, err
}

func (w *World) Waypoint(ctx context.Context, loc r3.Vec) (entity.Waypoint, error) {
	var res entity.Waypoint
	err := w.c.call(ctx, GetWaypointProcedure, map[string]any{"location": encodeVec(loc)}, &res)
	return res, err
}

func (w *World) WaypointNext(ctx context.Context, wp entity.Waypoint, distance float64) ([]entity.Waypoint, error) {
	var res struct{ Waypoints []entity.Waypoint }
	err := w.c.call(ctx, WaypointNextProcedure, map[string]any{"waypoint": encodeWaypoint(wp), "distance": distance}, &res)
	return res.Waypoints, err
}

func (w *World) WaypointPrevious(ctx context.Context, wp entity.Waypoint, distance float64) ([]entity.Waypoint, error) {
	var res struct{ Waypoints []entity.Waypoint }
	err := w.c.call(ctx, WaypointPreviousProcedure, map[string]any{"waypoint": encodeWaypoint(wp), "distance": distance}, &res)
	return res.Waypoints, err
}

func (w *World) LeftLane(ctx context.Context, wp entity.Waypoint) (entity.Waypoint, bool, error) {
	var res okResponse[entity.Waypoint]
	err := w.c.call(ctx, LeftLaneProcedure, map[string]any{"waypoint": encodeWaypoint(wp)}, &res)
	return res.Value, res.OK, err
}

func (w *World) RightLane(ctx context.Context, wp entity.Waypoint) (entity.Waypoint, bool, error) {
	var res okResponse[entity.Waypoint]
	err := w.c.call(ctx, RightLaneProcedure, map[string]any{"waypoint": encodeWaypoint(wp)}, &res)
	return res.Value, res.OK, err
}

func (w *World) Location(ctx context.Context, id entity.ActorID) (r3.Vec, error) {
	var res r3.Vec
	err := w.c.call(ctx, GetLocationProcedure, map[string]any{"actor_id": uint32(id)}, &res)
	return res, err
}

func (w *World) SetLocation(ctx context.Context, id entity.ActorID, loc r3.Vec) error {
	return w.c.call(ctx, SetLocationProcedure, map[string]any{"actor_id": uint32(id), "location": encodeVec(loc)}, nil)
}

func (w *World) SetAutopilot(ctx context.Context, id entity.ActorID, enabled bool, tmPort int) error {
	return w.c.call(ctx, SetAutopilotProcedure, map[string]any{"actor_id": uint32(id), "enabled": enabled, "tm_port": tmPort}, nil)
}

func (w *World) ApplyControl(ctx context.Context, id entity.ActorID, c entity.VehicleControl) error {
	return w.c.call(ctx, ApplyControlProcedure, map[string]any{"actor_id": uint32(id), "control": encodeControl(c)}, nil)
}

func (w *World) EnableConstantVelocity(ctx context.Context, id entity.ActorID, v r3.Vec) error {
	return w.c.call(ctx, EnableConstantVelocityProcedure, map[string]any{"actor_id": uint32(id), "velocity": encodeVec(v)}, nil)
}

func (w *World) DisableConstantVelocity(ctx context.Context, id entity.ActorID) error {
	return w.c.call(ctx, DisableConstantVelocityProcedure, map[string]any{"actor_id": uint32(id)}, nil)
}

func (w *World) ListenCollisions(ctx context.Context, parent entity.ActorID) (entity.ActorID, error) {
	var res struct{ SensorID entity.ActorID }
	err := w.c.call(ctx, ListenCollisionsProcedure, map[string]any{"parent": uint32(parent)}, &res)
	return res.SensorID, err
}

func (w *World) CollisionEvents(ctx context.Context, sensor entity.ActorID) ([]entity.CollisionEvent, error) {
	var res struct{ Events []entity.CollisionEvent }
	err := w.c.call(ctx, CollisionEventsProcedure, map[string]any{"sensor_id": uint32(sensor)}, &res)
	return res.Events, err
}

func (w *World) EyeTrackerData(ctx context.Context, sensor entity.ActorID) (entity.EyeData, error) {
	var res entity.EyeData
	err := w.c.call(ctx, EyeTrackerDataProcedure, map[string]any{"sensor_id": uint32(sensor)}, &res)
	return res, err
}
