package entity

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"
)

// 仿真器接口依赖倒置，实现见bridge（远程仿真器）与entity/sandbox（内存仿真）

// IWorld 仿真世界
type IWorld interface {
	// 同步模式下推进一帧，返回帧号
	Tick(ctx context.Context) (uint64, error)

	// 世界设置与天气

	Settings(ctx context.Context) (WorldSettings, error)
	ApplySettings(ctx context.Context, s WorldSettings) error
	Weather(ctx context.Context) (Weather, error)
	SetWeather(ctx context.Context, w Weather) error
	SetWeatherPreset(ctx context.Context, name string) error

	// 蓝图与对象

	Blueprints(ctx context.Context, filter string) ([]Blueprint, error)
	Actors(ctx context.Context, filter string) ([]Actor, error)
	SpawnActor(ctx context.Context, blueprint string, t Transform, parent ActorID) (Actor, error)
	// 生成失败（例如位置被占用）时返回ok=false而非错误
	TrySpawnActor(ctx context.Context, blueprint string, t Transform) (a Actor, ok bool, err error)
	ApplyBatch(ctx context.Context, cmds []SpawnCommand) ([]SpawnResult, error)
	DestroyActors(ctx context.Context, ids []ActorID) error

	// 地图

	SpawnPoints(ctx context.Context) ([]Transform, error)
	Waypoint(ctx context.Context, loc r3.Vec) (Waypoint, error)
	WaypointNext(ctx context.Context, wp Waypoint, distance float64) ([]Waypoint, error)
	WaypointPrevious(ctx context.Context, wp Waypoint, distance float64) ([]Waypoint, error)
	// 不存在相邻车道时ok=false
	LeftLane(ctx context.Context, wp Waypoint) (lane Waypoint, ok bool, err error)
	RightLane(ctx context.Context, wp Waypoint) (lane Waypoint, ok bool, err error)

	// 对象控制

	Location(ctx context.Context, id ActorID) (r3.Vec, error)
	SetLocation(ctx context.Context, id ActorID, loc r3.Vec) error
	SetAutopilot(ctx context.Context, id ActorID, enabled bool, tmPort int) error
	ApplyControl(ctx context.Context, id ActorID, c VehicleControl) error
	EnableConstantVelocity(ctx context.Context, id ActorID, v r3.Vec) error
	DisableConstantVelocity(ctx context.Context, id ActorID) error

	// 传感器

	// 在parent上挂载碰撞传感器并开始监听，返回传感器ID
	ListenCollisions(ctx context.Context, parent ActorID) (ActorID, error)
	// 取走自上次调用以来的碰撞事件
	CollisionEvents(ctx context.Context, sensor ActorID) ([]CollisionEvent, error)
	EyeTrackerData(ctx context.Context, sensor ActorID) (EyeData, error)
}

// ITrafficManager 交通管理器
type ITrafficManager interface {
	Port() int
	SetSynchronousMode(ctx context.Context, enabled bool) error
	SetGlobalDistanceToLeadingVehicle(ctx context.Context, meters float64) error
	GlobalPercentageSpeedDifference(ctx context.Context, percent float64) error
	VehiclePercentageSpeedDifference(ctx context.Context, id ActorID, percent float64) error
	AutoLaneChange(ctx context.Context, id ActorID, enabled bool) error
	UpdateVehicleLights(ctx context.Context, id ActorID, enabled bool) error
}

// IClient 仿真器客户端
type IClient interface {
	World() IWorld
	TrafficManager(port int) ITrafficManager
	Close() error
}
