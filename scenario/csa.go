package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/vehicle"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	csaFrontBlueprint   = "vehicle.chevrolet.impala"
	csaBarrierBlueprint = "static.prop.laneblock"
	csaJCBBlueprint     = "static.prop.jcb"

	csaFrontDistance = 20
	csaJCBOffset     = 6  // 右侧挖掘机在最右侧路障之后的距离（米）
	csaStopRadius    = 15 // 相邻车道车辆在路障多远处停车（米）
)

// CSA 施工区封道场景
// 功能：除主车车道外，路障封住左右所有车道，两端各停一台挖掘机；
// 相邻车道车辆靠近路障时停车，主车越过路障一段距离后结束测量
type CSA struct {
	base
	barrier  entity.Waypoint
	convoys  []*vehicle.Convoy
	passage  *passage
	barriers []entity.Actor
}

// NewCSA 创建施工区封道场景
func NewCSA() Scenario {
	return &CSA{base: base{profile: Profile{
		ID:              CSAID,
		Code:            "CSA",
		Name:            "construction site ahead",
		LeadingDistance: 2,
		SpeedDifference: -400,
		Approach:        100,
	}}}
}

func (s *CSA) Setup(ctx context.Context, tc entity.ITaskContext) (r3.Vec, error) {
	w := tc.World()
	if err := s.spawnFront(ctx, tc); err != nil {
		log.Errorf("spawn front vehicle: %v", err)
	}
	left, right, err := vehicle.SpawnAdjacent(ctx, tc, vehicle.AdjacentOptions{Start: -50, Pairs: 3})
	if err != nil {
		log.Errorf("spawn adjacent vehicles: %v", err)
	}
	s.convoys = []*vehicle.Convoy{{Vehicles: left}, {Vehicles: right}}

	barrierBp, err := findBlueprint(ctx, w, csaBarrierBlueprint)
	if err != nil {
		return r3.Vec{}, err
	}
	jcbBp, err := findBlueprint(ctx, w, csaJCBBlueprint)
	if err != nil {
		return r3.Vec{}, err
	}
	s.barrier, err = ahead(ctx, tc, HazardDistance)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("barrier waypoint: %w", err)
	}

	rightmost, err := s.blockLanes(ctx, tc, barrierBp.ID, entity.RIGHT)
	if err != nil {
		return r3.Vec{}, err
	}
	jcbWp, err := next(ctx, w, rightmost, csaJCBOffset)
	if err != nil {
		return r3.Vec{}, err
	}
	t := jcbWp.Transform
	t.Rotation.Yaw += 90
	if _, err := spawn(ctx, tc, jcbBp.ID, t); err != nil {
		return r3.Vec{}, err
	}
	if err := tc.Tick(ctx); err != nil {
		return r3.Vec{}, err
	}

	leftmost, err := s.blockLanes(ctx, tc, barrierBp.ID, entity.LEFT)
	if err != nil {
		return r3.Vec{}, err
	}
	t = leftmost.Transform
	t.Rotation.Yaw -= 90
	if _, err := spawn(ctx, tc, jcbBp.ID, t); err != nil {
		return r3.Vec{}, err
	}
	if err := tc.Tick(ctx); err != nil {
		return r3.Vec{}, err
	}
	log.Infof("spawned the construction site with %d barriers at %v", len(s.barriers), s.barrier)
	return s.barrier.Transform.Location, nil
}

func (s *CSA) spawnFront(ctx context.Context, tc entity.ITaskContext) error {
	wp, err := ahead(ctx, tc, csaFrontDistance)
	if err != nil {
		return err
	}
	t := wp.Transform
	t.Location.Z += 1
	front, err := spawn(ctx, tc, csaFrontBlueprint, t)
	if err != nil {
		return err
	}
	return tc.World().SetAutopilot(ctx, front.ID, true, tc.TrafficManager().Port())
}

// blockLanes 从路障路点向一侧逐条车道放置路障（偏航+90度），直到该侧不允许再变道
// 返回：最外侧车道的路点
func (s *CSA) blockLanes(ctx context.Context, tc entity.ITaskContext, blueprint string, side int) (entity.Waypoint, error) {
	w := tc.World()
	lane := s.barrier
	for {
		var ok bool
		var err error
		if side == entity.RIGHT {
			if !lane.LaneChange.AllowsRight() {
				return lane, nil
			}
			lane, ok, err = w.RightLane(ctx, lane)
		} else {
			if !lane.LaneChange.AllowsLeft() {
				return lane, nil
			}
			lane, ok, err = w.LeftLane(ctx, lane)
		}
		if err != nil {
			return lane, fmt.Errorf("adjacent lane of barrier: %w", err)
		}
		if !ok {
			return lane, fmt.Errorf("lane change allowed but no adjacent lane (side %d)", side)
		}
		t := lane.Transform
		t.Rotation.Yaw += 90
		a, err := spawn(ctx, tc, blueprint, t)
		if err != nil {
			return lane, err
		}
		s.barriers = append(s.barriers, a)
	}
}

// stopConvoys 相邻车道车队的最前车辆靠近路障时停车
func (s *CSA) stopConvoys(ctx context.Context, tc entity.ITaskContext) error {
	var errs []error
	for _, c := range s.convoys {
		if _, err := c.StopNear(ctx, tc, s.barrier.Transform.Location, csaStopRadius); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *CSA) Approach(ctx context.Context, tc entity.ITaskContext) error {
	if err := s.stopConvoys(ctx, tc); err != nil {
		log.Warnf("stop vehicles at barrier: %v", err)
	}
	return nil
}

func (s *CSA) Trigger(ctx context.Context, tc entity.ITaskContext) error {
	p, err := newPassage(ctx, tc, s.barrier.Transform.Location, PassMargin)
	if err != nil {
		return err
	}
	s.passage = p
	return nil
}

func (s *CSA) Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	if s.passage == nil {
		return false, nil
	}
	if err := s.stopConvoys(ctx, tc); err != nil {
		log.Warnf("stop vehicles at barrier: %v", err)
	}
	passed, err := s.passage.Passed(ctx, tc)
	if err != nil {
		return false, err
	}
	if passed {
		log.Info("ego vehicle passed the barrier")
	}
	return !passed, nil
}
