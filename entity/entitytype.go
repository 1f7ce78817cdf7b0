package entity

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// 方位常量
const (
	LEFT  = 0 // 左侧
	RIGHT = 1 // 右侧
)

// ActorID 仿真器中的对象ID
type ActorID uint32

// Rotation 欧拉角（度）
type Rotation struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Transform 位姿
type Transform struct {
	Location r3.Vec
	Rotation Rotation
}

func (t Transform) String() string {
	return fmt.Sprintf("Transform{X=%.2f, Y=%.2f, Z=%.2f, Yaw=%.1f}", t.Location.X, t.Location.Y, t.Location.Z, t.Rotation.Yaw)
}

// Distance 两点间欧氏距离
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// LaneChange 车道允许的变道方向
type LaneChange int32

const (
	LaneChangeNone  LaneChange = 0
	LaneChangeRight LaneChange = 1
	LaneChangeLeft  LaneChange = 2
	LaneChangeBoth  LaneChange = 3
)

// AllowsRight 是否允许向右变道
func (c LaneChange) AllowsRight() bool {
	return c == LaneChangeRight || c == LaneChangeBoth
}

// AllowsLeft 是否允许向左变道
func (c LaneChange) AllowsLeft() bool {
	return c == LaneChangeLeft || c == LaneChangeBoth
}

// Waypoint 道路上的路点
// 说明：ID由仿真器分配，Next/Previous/LeftLane/RightLane等查询都以路点为起点
type Waypoint struct {
	ID         uint64
	Transform  Transform
	RoadID     int32
	SectionID  int32
	LaneID     int32
	S          float64
	LaneChange LaneChange
}

func (w Waypoint) String() string {
	return fmt.Sprintf("Waypoint{Road=%d, Lane=%d, S=%.2f, %v}", w.RoadID, w.LaneID, w.S, w.Transform)
}

// Attribute 蓝图属性
type Attribute struct {
	Value             string
	RecommendedValues []string
}

// Blueprint 对象蓝图
type Blueprint struct {
	ID         string
	Attributes map[string]Attribute
}

// HasAttribute 蓝图是否包含某属性
func (b Blueprint) HasAttribute(key string) bool {
	_, ok := b.Attributes[key]
	return ok
}

// IntAttribute 读取整数属性，缺失或非法时返回false
func (b Blueprint) IntAttribute(key string) (int, bool) {
	a, ok := b.Attributes[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(a.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Actor 仿真器中的对象
type Actor struct {
	ID     ActorID
	TypeID string
	Parent ActorID // 挂载的父对象，0表示无
}

func (a Actor) String() string {
	return fmt.Sprintf("Actor(id=%d, type=%s)", a.ID, a.TypeID)
}

// VehicleControl 车辆控制量
type VehicleControl struct {
	Throttle        float64
	Steer           float64
	Brake           float64
	HandBrake       bool
	Reverse         bool
	ManualGearShift bool
	Gear            int32
}

// FullBrake 全力制动且不挂挡
var FullBrake = VehicleControl{Throttle: 0, Brake: 1, ManualGearShift: false, Gear: 0}

// WorldSettings 世界设置
// 说明：FixedDeltaSeconds为0表示可变步长
type WorldSettings struct {
	SynchronousMode   bool
	NoRenderingMode   bool
	FixedDeltaSeconds float64
}

// Weather 天气参数
type Weather struct {
	Cloudiness              float64
	Precipitation           float64
	PrecipitationDeposits   float64
	WindIntensity           float64
	SunAzimuthAngle         float64
	SunAltitudeAngle        float64
	FogDensity              float64
	FogDistance             float64
	Wetness                 float64
	FogFalloff              float64
	ScatteringIntensity     float64
	MieScatteringScale      float64
	RayleighScatteringScale float64
}

// CollisionEvent 碰撞事件
type CollisionEvent struct {
	Timestamp  float64 // 仿真时间（秒）
	Frame      uint64
	OtherActor Actor
}

// SpawnCommand 批量生成命令
// 说明：Attributes覆盖蓝图属性（颜色、驾驶员等），Autopilot为真时生成后立即交给交通管理器
type SpawnCommand struct {
	Blueprint  string
	Attributes map[string]string
	Transform  Transform
	Autopilot  bool
	TMPort     int
}

// SpawnResult 批量生成结果，Error非空表示失败
type SpawnResult struct {
	ActorID ActorID
	Error   string
}

// EyeData 眼动仪数据（单位：厘米，与仿真器一致）
type EyeData struct {
	Timestamp   float64
	LeftOrigin  r3.Vec
	RightOrigin r3.Vec
	LeftDir     r3.Vec
	RightDir    r3.Vec
	GazeOrigin  r3.Vec
	GazeDir     r3.Vec
	Vergence    float64
}
