package vehicle

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

var zero r3.Vec

// SpawnTraffic 在随机出生点批量生成自动驾驶车辆
// 功能：随机蓝图、颜色与驾驶员，生成后立即交给交通管理器并打开车灯
// 参数：n-期望数量，出生点不足时取出生点数量
// 返回：成功生成的对象ID
// 说明：单个车辆生成失败只记录错误
func SpawnTraffic(ctx context.Context, tc entity.ITaskContext, n int) ([]entity.ActorID, error) {
	w := tc.World()
	tm := tc.TrafficManager()
	points, err := w.SpawnPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("get spawn points: %w", err)
	}
	if n < len(points) {
		randengine.Shuffle(tc.Rand(), points)
	} else if n > len(points) {
		log.Warnf("requested %d vehicles, but could only find %d spawn points", n, len(points))
		n = len(points)
	}
	bps := tc.VehicleBlueprints()
	if len(bps) == 0 {
		return nil, fmt.Errorf("no vehicle blueprints to spawn traffic")
	}
	cmds := make([]entity.SpawnCommand, 0, n)
	for _, t := range points[:n] {
		bp, _ := randengine.Choice(tc.Rand(), bps)
		attrs := make(map[string]string)
		for _, key := range []string{"color", "driver_id"} {
			if a, ok := bp.Attributes[key]; ok {
				if v, ok := randengine.Choice(tc.Rand(), a.RecommendedValues); ok {
					attrs[key] = v
				}
			}
		}
		cmds = append(cmds, entity.SpawnCommand{
			Blueprint:  bp.ID,
			Attributes: attrs,
			Transform:  t,
			Autopilot:  true,
			TMPort:     tm.Port(),
		})
	}
	results, err := w.ApplyBatch(ctx, cmds)
	if err != nil {
		return nil, fmt.Errorf("apply spawn batch: %w", err)
	}
	ids := make([]entity.ActorID, 0, len(results))
	for _, r := range results {
		if r.Error != "" {
			log.Error(r.Error)
			continue
		}
		ids = append(ids, r.ActorID)
	}
	tc.Track(ids...)
	for _, id := range ids {
		if err := tm.UpdateVehicleLights(ctx, id, true); err != nil {
			log.Warnf("update lights of %d: %v", id, err)
		}
	}
	log.Infof("spawned %d of %d traffic vehicles", len(ids), n)
	return ids, nil
}

// AdjacentOptions 相邻车道车辆生成参数
type AdjacentOptions struct {
	Start int  // 第一对车辆之前的起始偏移（米，负数表示在主车后方）
	Pairs int  // 生成的对数
	Tick  bool // 每次生成后推进一帧
}

// SpawnAdjacent 在主车左右相邻车道生成自动驾驶车辆
// 算法说明：
// 1. 左右各自从Start开始，每对累加[15, 30)米的随机间隔，偏移为0时取1
// 2. 偏移为负时沿路点向后取，否则向前取，再取左/右相邻车道，抬高1米
// 3. 生成成功的车辆打开自动驾驶、关闭自动变道，并登记以便结束时销毁
// 返回：左右两侧的车辆，最靠前的在最前
func SpawnAdjacent(ctx context.Context, tc entity.ITaskContext, opts AdjacentOptions) (left, right []entity.Actor, err error) {
	w := tc.World()
	egoLoc, err := w.Location(ctx, tc.Ego().ID)
	if err != nil {
		return nil, nil, fmt.Errorf("ego location: %w", err)
	}
	egoWp, err := w.Waypoint(ctx, egoLoc)
	if err != nil {
		return nil, nil, fmt.Errorf("ego waypoint: %w", err)
	}
	left = make([]entity.Actor, 0, opts.Pairs)
	right = make([]entity.Actor, 0, opts.Pairs)
	leftNext, rightNext := opts.Start, opts.Start
	for range opts.Pairs {
		leftNext = nonZero(leftNext + tc.Rand().IntRange(15, 30))
		rightNext = nonZero(rightNext + tc.Rand().IntRange(15, 30))
		if a, ok := spawnBeside(ctx, tc, egoWp, leftNext, entity.LEFT); ok {
			left = append([]entity.Actor{a}, left...)
		}
		if opts.Tick {
			if err := tc.Tick(ctx); err != nil {
				return left, right, err
			}
		}
		if a, ok := spawnBeside(ctx, tc, egoWp, rightNext, entity.RIGHT); ok {
			right = append([]entity.Actor{a}, right...)
		}
		if opts.Tick {
			if err := tc.Tick(ctx); err != nil {
				return left, right, err
			}
		}
	}
	log.Infof("spawned %d left and %d right adjacent vehicles", len(left), len(right))
	return left, right, nil
}

func nonZero(v int) int {
	if v == 0 {
		return 1
	}
	return v
}

// spawnBeside 在距离主车路点offset米处的相邻车道生成一辆车，失败时记录并返回false
func spawnBeside(ctx context.Context, tc entity.ITaskContext, egoWp entity.Waypoint, offset int, side int) (entity.Actor, bool) {
	w := tc.World()
	tm := tc.TrafficManager()
	var wps []entity.Waypoint
	var err error
	if offset < 0 {
		wps, err = w.WaypointPrevious(ctx, egoWp, float64(-offset))
	} else {
		wps, err = w.WaypointNext(ctx, egoWp, float64(offset))
	}
	if err != nil || len(wps) == 0 {
		log.Warnf("no waypoint %d m from ego: %v", offset, err)
		return entity.Actor{}, false
	}
	var lane entity.Waypoint
	var ok bool
	if side == entity.LEFT {
		lane, ok, err = w.LeftLane(ctx, wps[0])
	} else {
		lane, ok, err = w.RightLane(ctx, wps[0])
	}
	if err != nil || !ok {
		log.Warnf("no adjacent lane (side %d) %d m from ego: %v", side, offset, err)
		return entity.Actor{}, false
	}
	bp, ok := randengine.Choice(tc.Rand(), tc.VehicleBlueprints())
	if !ok {
		log.Warn("no vehicle blueprints to spawn adjacent vehicle")
		return entity.Actor{}, false
	}
	t := lane.Transform
	t.Location.Z += 1
	a, ok, err := w.TrySpawnActor(ctx, bp.ID, t)
	if err != nil || !ok {
		log.Warnf("failed to spawn %s at %v: %v", bp.ID, t, err)
		return entity.Actor{}, false
	}
	tc.Track(a.ID)
	if err := w.SetAutopilot(ctx, a.ID, true, tm.Port()); err != nil {
		log.Warnf("set autopilot on %v: %v", a, err)
	}
	if err := tm.AutoLaneChange(ctx, a.ID, false); err != nil {
		log.Warnf("disable lane change on %v: %v", a, err)
	}
	return a, true
}

// Convoy 同一车道上的一列车辆，最靠前的在最前
type Convoy struct {
	Vehicles []entity.Actor
	stopped  bool
}

// Stopped 是否已经停车
func (c *Convoy) Stopped() bool {
	return c.stopped
}

// StopNear 当最前车辆进入point的radius范围内时让整列车停下
// 功能：最前车辆关闭自动驾驶并制动，其余车辆速度差设为-100%
// 返回：本次是否执行了停车
func (c *Convoy) StopNear(ctx context.Context, tc entity.ITaskContext, point r3.Vec, radius float64) (bool, error) {
	if c.stopped || len(c.Vehicles) == 0 {
		return false, nil
	}
	w := tc.World()
	loc, err := w.Location(ctx, c.Vehicles[0].ID)
	if err != nil {
		return false, fmt.Errorf("location of %v: %w", c.Vehicles[0], err)
	}
	if entity.Distance(loc, point) > radius {
		return false, nil
	}
	tm := tc.TrafficManager()
	if err := Release(ctx, w, c.Vehicles[0].ID, tm.Port()); err != nil {
		return false, err
	}
	for _, v := range c.Vehicles[1:] {
		if err := tm.VehiclePercentageSpeedDifference(ctx, v.ID, -100); err != nil {
			return false, fmt.Errorf("slow down %v: %w", v, err)
		}
	}
	c.stopped = true
	log.Infof("stopped %d vehicles near %v", len(c.Vehicles), point)
	return true, nil
}
