// Package sandbox 内存中的直道仿真世界
// 功能：在没有外部仿真器时提供一个可推进的世界，用于实验流程彩排（sim子命令）与测试
// 说明：道路沿+x方向延伸，车道中心线平行于x轴，左侧车道y更小
package sandbox

import (
	"context"
	"fmt"
	"math"
	"path"
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	EgoTypeID        = "vehicle.dreyevr.egovehicle"
	EyeTrackerTypeID = "sensor.dreyevr.dreyevrsensor"
	CollisionTypeID  = "sensor.other.collision"

	defaultDT = 1.0 / 80
)

// Options 世界参数
type Options struct {
	Lanes     int     // 车道数
	LaneWidth float64 // 车道宽度（米）
	Speed     float64 // 自动驾驶车速（米/秒）
	// 主车手动驾驶时的横向偏移（相对车道中心），为空则不偏移
	EgoLateral func(t float64) float64
}

// DefaultOptions 三车道、3.5米车道宽、30米/秒
func DefaultOptions() Options {
	return Options{Lanes: 3, LaneWidth: 3.5, Speed: 30}
}

type actor struct {
	entity.Actor
	loc       r3.Vec
	rot       entity.Rotation
	autopilot bool
	control   entity.VehicleControl
	constVel  *r3.Vec
	laneY     float64 // 生成时所在车道中心
}

// World 内存世界，实现entity.IWorld
type World struct {
	opts Options

	mtx       sync.Mutex
	settings  entity.WorldSettings
	weather   entity.Weather
	frame     uint64
	t         float64
	nextID    entity.ActorID
	actors    map[entity.ActorID]*actor
	order     []entity.ActorID
	sensors   map[entity.ActorID][]entity.CollisionEvent
	destroyed []entity.ActorID
	weathers  []entity.Weather
	eye       entity.EyeData
}

// New 创建世界，主车位于原点所在车道（中间车道）并挂载眼动仪
func New(opts Options) *World {
	if opts.Lanes <= 0 {
		opts.Lanes = 3
	}
	if opts.LaneWidth <= 0 {
		opts.LaneWidth = 3.5
	}
	w := &World{
		opts:    opts,
		actors:  make(map[entity.ActorID]*actor),
		sensors: make(map[entity.ActorID][]entity.CollisionEvent),
		nextID:  1,
		weather: presets["ClearNoon"],
	}
	ego := w.add(EgoTypeID, entity.Transform{Location: r3.Vec{X: 0, Y: w.laneCenter(opts.Lanes / 2)}}, 0)
	w.add(EyeTrackerTypeID, entity.Transform{}, ego.ID)
	w.eye = entity.EyeData{
		LeftOrigin:  r3.Vec{X: 0, Y: -3, Z: 0},
		RightOrigin: r3.Vec{X: 0, Y: 3, Z: 0},
		LeftDir:     r3.Vec{X: 1, Y: 0.03, Z: 0},
		RightDir:    r3.Vec{X: 1, Y: -0.03, Z: 0},
	}
	return w
}

func (w *World) add(typeID string, t entity.Transform, parent entity.ActorID) *actor {
	a := &actor{
		Actor: entity.Actor{ID: w.nextID, TypeID: typeID, Parent: parent},
		loc:   t.Location,
		rot:   t.Rotation,
		laneY: t.Location.Y,
	}
	w.nextID++
	w.actors[a.ID] = a
	w.order = append(w.order, a.ID)
	return a
}

func (w *World) laneCenter(i int) float64 {
	return (float64(i) - float64(w.opts.Lanes-1)/2) * w.opts.LaneWidth
}

func (w *World) laneIndex(y float64) int {
	i := int(math.Round(y/w.opts.LaneWidth + float64(w.opts.Lanes-1)/2))
	return lo.Clamp(i, 0, w.opts.Lanes-1)
}

func (w *World) waypoint(x float64, lane int) entity.Waypoint {
	change := entity.LaneChangeBoth
	switch {
	case w.opts.Lanes == 1:
		change = entity.LaneChangeNone
	case lane == 0:
		change = entity.LaneChangeRight
	case lane == w.opts.Lanes-1:
		change = entity.LaneChangeLeft
	}
	return entity.Waypoint{
		ID:         uint64(lane)<<32 | uint64(uint32(int32(math.Round(x*100)))),
		Transform:  entity.Transform{Location: r3.Vec{X: x, Y: w.laneCenter(lane)}},
		RoadID:     1,
		LaneID:     -int32(lane + 1),
		S:          x,
		LaneChange: change,
	}
}

func (w *World) get(id entity.ActorID) (*actor, error) {
	a, ok := w.actors[id]
	if !ok {
		return nil, fmt.Errorf("actor %d not found", id)
	}
	return a, nil
}

func (w *World) dt() float64 {
	if w.settings.FixedDeltaSeconds > 0 {
		return w.settings.FixedDeltaSeconds
	}
	return defaultDT
}

// Tick 推进一帧
// 算法说明：
// 1. 定速对象按设定速度移动
// 2. 自动驾驶车辆沿x方向以设定车速行驶
// 3. 手动驾驶且未制动的车辆保持车速，主车叠加横向偏移
func (w *World) Tick(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mtx.Lock()
	defer w.mtx.Unlock()
	dt := w.dt()
	w.frame++
	w.t += dt
	for _, id := range w.order {
		a := w.actors[id]
		if a.Parent != 0 || !isVehicle(a.TypeID) {
			continue
		}
		switch {
		case a.constVel != nil:
			a.loc = r3.Add(a.loc, r3.Scale(dt, *a.constVel))
		case a.autopilot:
			a.loc.X += w.opts.Speed * dt
			a.loc.Y = a.laneY
		case a.control.Brake > 0:
		default:
			a.loc.X += w.opts.Speed * dt
			if a.TypeID == EgoTypeID && w.opts.EgoLateral != nil {
				a.loc.Y = a.laneY + w.opts.EgoLateral(w.t)
			}
		}
	}
	w.eye.Timestamp = w.t
	return w.frame, nil
}

func isVehicle(typeID string) bool {
	ok, _ := path.Match("vehicle.*", typeID)
	return ok
}

func (w *World) Settings(ctx context.Context) (entity.WorldSettings, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.settings, nil
}

func (w *World) ApplySettings(ctx context.Context, s entity.WorldSettings) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.settings = s
	return nil
}

func (w *World) Weather(ctx context.Context) (entity.Weather, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.weather, nil
}

func (w *World) SetWeather(ctx context.Context, weather entity.Weather) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.weather = weather
	w.weathers = append(w.weathers, weather)
	return nil
}

func (w *World) SetWeatherPreset(ctx context.Context, name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown weather preset %q", name)
	}
	return w.SetWeather(ctx, p)
}

func (w *World) Blueprints(ctx context.Context, filter string) ([]entity.Blueprint, error) {
	return lo.Filter(library, func(b entity.Blueprint, _ int) bool {
		ok, _ := path.Match(filter, b.ID)
		return ok
	}), nil
}

func (w *World) Actors(ctx context.Context, filter string) ([]entity.Actor, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	res := make([]entity.Actor, 0)
	for _, id := range w.order {
		a := w.actors[id]
		if ok, _ := path.Match(filter, a.TypeID); ok || filter == "" {
			res = append(res, a.Actor)
		}
	}
	return res, nil
}

func (w *World) occupied(loc r3.Vec) bool {
	for _, a := range w.actors {
		if a.Parent == 0 && isVehicle(a.TypeID) && entity.Distance(a.loc, loc) < 2 {
			return true
		}
	}
	return false
}

func (w *World) spawn(blueprint string, t entity.Transform, parent entity.ActorID) (*actor, error) {
	if !lo.ContainsBy(library, func(b entity.Blueprint) bool { return b.ID == blueprint }) {
		return nil, fmt.Errorf("unknown blueprint %q", blueprint)
	}
	if parent != 0 {
		if _, err := w.get(parent); err != nil {
			return nil, err
		}
	} else if isVehicle(blueprint) && w.occupied(t.Location) {
		return nil, fmt.Errorf("spawn failed because of collision at spawn position")
	}
	a := w.add(blueprint, t, parent)
	if parent == 0 && isVehicle(blueprint) {
		a.laneY = w.laneCenter(w.laneIndex(t.Location.Y))
	}
	return a, nil
}

func (w *World) SpawnActor(ctx context.Context, blueprint string, t entity.Transform, parent entity.ActorID) (entity.Actor, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.spawn(blueprint, t, parent)
	if err != nil {
		return entity.Actor{}, err
	}
	return a.Actor, nil
}

func (w *World) TrySpawnActor(ctx context.Context, blueprint string, t entity.Transform) (entity.Actor, bool, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.spawn(blueprint, t, 0)
	if err != nil {
		return entity.Actor{}, false, nil
	}
	return a.Actor, true, nil
}

func (w *World) ApplyBatch(ctx context.Context, cmds []entity.SpawnCommand) ([]entity.SpawnResult, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	res := make([]entity.SpawnResult, len(cmds))
	for i, c := range cmds {
		a, err := w.spawn(c.Blueprint, c.Transform, 0)
		if err != nil {
			res[i].Error = err.Error()
			continue
		}
		a.autopilot = c.Autopilot
		res[i].ActorID = a.ID
	}
	return res, nil
}

func (w *World) DestroyActors(ctx context.Context, ids []entity.ActorID) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for _, id := range ids {
		if _, ok := w.actors[id]; !ok {
			continue
		}
		delete(w.actors, id)
		delete(w.sensors, id)
		w.destroyed = append(w.destroyed, id)
	}
	w.order = lo.Filter(w.order, func(id entity.ActorID, _ int) bool {
		_, ok := w.actors[id]
		return ok
	})
	return nil
}

func (w *World) SpawnPoints(ctx context.Context) ([]entity.Transform, error) {
	res := make([]entity.Transform, 0)
	for k := range 20 {
		for i := range w.opts.Lanes {
			res = append(res, entity.Transform{Location: r3.Vec{X: 50 + 25*float64(k), Y: w.laneCenter(i), Z: 0.5}})
		}
	}
	return res, nil
}

func (w *World) Waypoint(ctx context.Context, loc r3.Vec) (entity.Waypoint, error) {
	return w.waypoint(loc.X, w.laneIndex(loc.Y)), nil
}

func (w *World) WaypointNext(ctx context.Context, wp entity.Waypoint, distance float64) ([]entity.Waypoint, error) {
	if distance <= 0 {
		return nil, fmt.Errorf("distance must be positive, got %v", distance)
	}
	l := wp.Transform.Location
	return []entity.Waypoint{w.waypoint(l.X+distance, w.laneIndex(l.Y))}, nil
}

func (w *World) WaypointPrevious(ctx context.Context, wp entity.Waypoint, distance float64) ([]entity.Waypoint, error) {
	if distance <= 0 {
		return nil, fmt.Errorf("distance must be positive, got %v", distance)
	}
	l := wp.Transform.Location
	return []entity.Waypoint{w.waypoint(l.X-distance, w.laneIndex(l.Y))}, nil
}

func (w *World) LeftLane(ctx context.Context, wp entity.Waypoint) (entity.Waypoint, bool, error) {
	i := w.laneIndex(wp.Transform.Location.Y)
	if i == 0 {
		return entity.Waypoint{}, false, nil
	}
	return w.waypoint(wp.Transform.Location.X, i-1), true, nil
}

func (w *World) RightLane(ctx context.Context, wp entity.Waypoint) (entity.Waypoint, bool, error) {
	i := w.laneIndex(wp.Transform.Location.Y)
	if i == w.opts.Lanes-1 {
		return entity.Waypoint{}, false, nil
	}
	return w.waypoint(wp.Transform.Location.X, i+1), true, nil
}

func (w *World) Location(ctx context.Context, id entity.ActorID) (r3.Vec, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return r3.Vec{}, err
	}
	if a.Parent != 0 {
		if p, err := w.get(a.Parent); err == nil {
			return p.loc, nil
		}
	}
	return a.loc, nil
}

func (w *World) SetLocation(ctx context.Context, id entity.ActorID, loc r3.Vec) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return err
	}
	a.loc = loc
	return nil
}

func (w *World) SetAutopilot(ctx context.Context, id entity.ActorID, enabled bool, tmPort int) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return err
	}
	if !isVehicle(a.TypeID) {
		return fmt.Errorf("actor %d is not a vehicle", id)
	}
	a.autopilot = enabled
	if enabled {
		a.control = entity.VehicleControl{}
		a.loc.Y = a.laneY
	}
	return nil
}

func (w *World) ApplyControl(ctx context.Context, id entity.ActorID, c entity.VehicleControl) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return err
	}
	a.control = c
	return nil
}

func (w *World) EnableConstantVelocity(ctx context.Context, id entity.ActorID, v r3.Vec) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return err
	}
	a.constVel = &v
	return nil
}

func (w *World) DisableConstantVelocity(ctx context.Context, id entity.ActorID) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(id)
	if err != nil {
		return err
	}
	a.constVel = nil
	return nil
}

func (w *World) ListenCollisions(ctx context.Context, parent entity.ActorID) (entity.ActorID, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.spawn(CollisionTypeID, entity.Transform{}, parent)
	if err != nil {
		return 0, err
	}
	w.sensors[a.ID] = make([]entity.CollisionEvent, 0)
	return a.ID, nil
}

func (w *World) CollisionEvents(ctx context.Context, sensor entity.ActorID) ([]entity.CollisionEvent, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	events, ok := w.sensors[sensor]
	if !ok {
		return nil, fmt.Errorf("sensor %d is not listening", sensor)
	}
	w.sensors[sensor] = make([]entity.CollisionEvent, 0)
	return events, nil
}

func (w *World) EyeTrackerData(ctx context.Context, sensor entity.ActorID) (entity.EyeData, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, err := w.get(sensor)
	if err != nil {
		return entity.EyeData{}, err
	}
	if a.TypeID != EyeTrackerTypeID {
		return entity.EyeData{}, fmt.Errorf("actor %d is not an eye tracker", sensor)
	}
	return w.eye, nil
}
