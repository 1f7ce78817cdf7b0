package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tsinghua-fib-lab/takeover-sim/clock"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/takeover-sim/status"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

// HeartbeatInterval 心跳日志间隔步数，<=0时不输出
var HeartbeatInterval = 800

// 每隔多少步刷新一次状态板
const boardInterval = 8

// Context 仿真任务上下文
// 功能：包含一次接管试次的所有变量和状态，实现entity.ITaskContext
// 说明：管理时钟、仿真器连接、交通管理器、运行时配置、主车与生成对象登记表
type Context struct {
	// 时钟
	clock *clock.Clock

	// 仿真器连接
	client entity.IClient
	world  entity.IWorld
	tm     entity.ITrafficManager

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 随机数引擎
	rand *randengine.Engine
	// 状态板，可为空
	board *status.Board

	// 主车
	ego    entity.Actor
	hasEgo bool
	// 过滤后的交通车蓝图
	blueprints []entity.Blueprint

	// 需要在结束时销毁的对象
	mtx     sync.Mutex
	tracked []entity.ActorID
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - client: 仿真器客户端
//   - rc: 运行时配置
//   - rand: 随机数引擎
//   - board: 状态板，可为空
//
// 返回：未连接世界设置的Context实例，需要调用Init
func NewContext(client entity.IClient, rc *config.RuntimeConfig, rand *randengine.Engine, board *status.Board) *Context {
	return &Context{
		clock:         clock.New(rc.All.Simulator.FixedDeltaSeconds),
		client:        client,
		world:         client.World(),
		tm:            client.TrafficManager(rc.All.Simulator.TrafficManagerPort),
		runtimeConfig: rc,
		rand:          rand,
		board:         board,
		tracked:       make([]entity.ActorID, 0),
	}
}

// useClock 换用外部时钟，步长与配置保持一致
func (ctx *Context) useClock(c *clock.Clock) {
	c.DT = ctx.clock.DT
	c.Init()
	ctx.clock = c
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) World() entity.IWorld {
	return ctx.world
}

func (ctx *Context) TrafficManager() entity.ITrafficManager {
	return ctx.tm
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Rand() *randengine.Engine {
	return ctx.rand
}

func (ctx *Context) Ego() entity.Actor {
	return ctx.ego
}

func (ctx *Context) VehicleBlueprints() []entity.Blueprint {
	return ctx.blueprints
}

func (ctx *Context) Track(ids ...entity.ActorID) {
	ctx.mtx.Lock()
	defer ctx.mtx.Unlock()
	ctx.tracked = append(ctx.tracked, ids...)
}

// Tracked 已登记的对象
func (ctx *Context) Tracked() []entity.ActorID {
	ctx.mtx.Lock()
	defer ctx.mtx.Unlock()
	return slices.Clone(ctx.tracked)
}

// Tick 推进一帧
// 功能：推进仿真器并更新时钟，定期输出心跳日志与刷新状态板
func (ctx *Context) Tick(c context.Context) error {
	frame, err := ctx.world.Tick(c)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	ctx.clock.Advance(frame)
	t, step := ctx.clock.Now()
	if HeartbeatInterval > 0 && step%int32(HeartbeatInterval) == 0 {
		log.Infof("STEP: %d(%v) frame=%d", step, ctx.clock, frame)
	}
	if step%boardInterval == 0 {
		ctx.board.Update(func(s *status.Status) {
			s.SimTime = t
			s.Frame = frame
		})
	}
	return nil
}

// Wait 按仿真时间等待，期间持续推进
func (ctx *Context) Wait(c context.Context, seconds float64) error {
	deadline := ctx.clock.Deadline(seconds)
	for ctx.clock.Before(deadline) {
		if err := ctx.Tick(c); err != nil {
			return err
		}
	}
	return nil
}

// Init 连接后的公共准备
// 功能：设置天气与交通管理器，开启同步模式，筛选交通车蓝图，找到主车并交给交通管理器
// 参数：leadingDistance-全局跟车距离，speedDifference-全局速度差
// 算法说明：
// 1. 设置天气预设，交通管理器全局跟车距离与速度差
// 2. 交通管理器与世界都切换到同步模式，步长统一为时钟的DT，推进一帧
// 3. 取vehicle.*全部代际蓝图，去掉主车与两轮车并排序
// 4. 查找主车，关闭自动变道并开启自动驾驶
func (ctx *Context) Init(c context.Context, leadingDistance, speedDifference float64) error {
	sim := ctx.runtimeConfig.All.Simulator
	if err := ctx.world.SetWeatherPreset(c, sim.WeatherPreset); err != nil {
		log.Errorf("set weather %s: %v", sim.WeatherPreset, err)
	}
	if err := ctx.tm.SetGlobalDistanceToLeadingVehicle(c, leadingDistance); err != nil {
		return fmt.Errorf("set leading distance: %w", err)
	}
	if err := ctx.tm.GlobalPercentageSpeedDifference(c, speedDifference); err != nil {
		return fmt.Errorf("set speed difference: %w", err)
	}
	if err := ctx.tm.SetSynchronousMode(c, true); err != nil {
		return fmt.Errorf("traffic manager synchronous mode: %w", err)
	}
	settings, err := ctx.world.Settings(c)
	if err != nil {
		return fmt.Errorf("get world settings: %w", err)
	}
	// 时钟按DT计时，已处于同步模式时也要统一步长
	settings.SynchronousMode = true
	settings.FixedDeltaSeconds = ctx.clock.DT
	if err := ctx.world.ApplySettings(c, settings); err != nil {
		return fmt.Errorf("apply synchronous settings: %w", err)
	}
	if err := ctx.Tick(c); err != nil {
		return err
	}

	ctx.blueprints, err = vehicle.TrafficBlueprints(c, ctx.world, "vehicle.*", "All")
	if err != nil {
		return err
	}

	ego, err := vehicle.FindEgo(c, ctx.world, sim.EgoFilter)
	if err != nil {
		return err
	}
	ctx.ego, ctx.hasEgo = ego, true
	if err := ctx.tm.AutoLaneChange(c, ego.ID, false); err != nil {
		log.Warnf("disable auto lane change of ego: %v", err)
	}
	if err := ctx.world.SetAutopilot(c, ego.ID, true, ctx.tm.Port()); err != nil {
		return fmt.Errorf("enable ego autopilot: %w", err)
	}
	log.Infof("successfully set autopilot on ego vehicle %v", ego)
	return nil
}

// Cleanup 尽力恢复仿真器状态
// 功能：恢复异步模式，销毁登记的对象，主车关闭自动驾驶、清零定速并全力制动
// 说明：每一步都会执行，错误合并返回；ctx被取消时仍然执行
func (ctx *Context) Cleanup(c context.Context) error {
	c = context.WithoutCancel(c)
	var errs []error
	settings, err := ctx.world.Settings(c)
	if err != nil {
		errs = append(errs, fmt.Errorf("get world settings: %w", err))
	}
	settings.SynchronousMode = false
	settings.NoRenderingMode = false
	settings.FixedDeltaSeconds = 0
	if err := ctx.world.ApplySettings(c, settings); err != nil {
		errs = append(errs, fmt.Errorf("restore asynchronous mode: %w", err))
	}

	tracked := ctx.Tracked()
	log.Infof("destroying %d non-ego actors", len(tracked))
	if err := ctx.world.DestroyActors(c, tracked); err != nil {
		errs = append(errs, fmt.Errorf("destroy actors: %w", err))
	} else {
		ctx.mtx.Lock()
		ctx.tracked = ctx.tracked[:0]
		ctx.mtx.Unlock()
	}

	if ctx.hasEgo {
		if err := vehicle.Release(c, ctx.world, ctx.ego.ID, ctx.tm.Port()); err != nil {
			errs = append(errs, fmt.Errorf("release ego: %w", err))
		} else {
			log.Info("successfully set manual control on ego vehicle")
		}
	}
	return errors.Join(errs...)
}

// Close 关闭仿真器连接
func (ctx *Context) Close() error {
	return ctx.client.Close()
}
