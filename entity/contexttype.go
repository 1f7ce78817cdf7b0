package entity

import (
	"context"

	"github.com/tsinghua-fib-lab/takeover-sim/clock"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

// ITaskContext 场景可见的任务上下文
type ITaskContext interface {
	Clock() *clock.Clock
	World() IWorld
	TrafficManager() ITrafficManager
	RuntimeConfig() *config.RuntimeConfig
	Rand() *randengine.Engine

	// 主车
	Ego() Actor
	// 过滤后的交通车蓝图（按ID排序）
	VehicleBlueprints() []Blueprint
	// 登记生成的对象，结束时统一销毁
	Track(ids ...ActorID)

	// 推进一帧并更新时钟
	Tick(ctx context.Context) error
	// 按仿真时间等待（期间持续推进）
	Wait(ctx context.Context, seconds float64) error
}
