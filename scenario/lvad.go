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
	lvadBlueprint = "vehicle.ford.mustang"
	lvadWindow    = 5.0
)

// LVAD 前车急停场景
// 功能：主车两侧生成三对相邻车道车辆，前方1300米处停着一辆车，接管后测量固定时长，
// 恢复时前车解除定速并交给交通管理器
type LVAD struct {
	base
	danger   entity.Actor
	deadline float64
}

// NewLVAD 创建前车急停场景
func NewLVAD() Scenario {
	return &LVAD{base: base{profile: Profile{
		ID:              LVADID,
		Code:            "LVAD",
		Name:            "lead vehicle abrupt deceleration",
		LeadingDistance: 0.1,
		SpeedDifference: -400,
		Approach:        50,
		TTSAdjustment:   25,
	}}}
}

func (s *LVAD) Setup(ctx context.Context, tc entity.ITaskContext) (r3.Vec, error) {
	if _, _, err := vehicle.SpawnAdjacent(ctx, tc, vehicle.AdjacentOptions{Start: -50, Pairs: 3, Tick: true}); err != nil {
		log.Errorf("spawn adjacent vehicles: %v", err)
	}
	wp, err := ahead(ctx, tc, HazardDistance)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("danger waypoint: %w", err)
	}
	t := wp.Transform
	t.Location.Z += 1
	danger, err := spawn(ctx, tc, lvadBlueprint, t)
	if err != nil {
		return r3.Vec{}, err
	}
	// 定速为零，使其停在原地
	if err := tc.World().EnableConstantVelocity(ctx, danger.ID, r3.Vec{}); err != nil {
		return r3.Vec{}, fmt.Errorf("hold %v: %w", danger, err)
	}
	s.danger = danger
	log.Infof("spawned danger vehicle %v at %v", danger, t)
	return t.Location, nil
}

func (s *LVAD) Trigger(ctx context.Context, tc entity.ITaskContext) error {
	s.deadline = tc.Clock().Deadline(lvadWindow)
	return nil
}

func (s *LVAD) Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	return tc.Clock().Before(s.deadline), nil
}

func (s *LVAD) Restore(ctx context.Context, tc entity.ITaskContext) error {
	if s.danger.ID == 0 {
		return nil
	}
	w := tc.World()
	return errors.Join(
		w.DisableConstantVelocity(ctx, s.danger.ID),
		w.SetAutopilot(ctx, s.danger.ID, true, tc.TrafficManager().Port()),
	)
}
