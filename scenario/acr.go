package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/vehicle"
	"gonum.org/v1/gonum/spatial/r3"
)

const acrBlueprint = "static.prop.buffalo"

// 三头动物在主车前方的距离（米）与每帧横穿步长（米），步长为0表示静止
var (
	acrDistances = [...]float64{HazardDistance, HazardDistance + 5, HazardDistance + 10}
	acrSteps     = [...]float64{0, 0.05, 0.1}
)

// animal 横穿道路的动物
type animal struct {
	actor entity.Actor
	dir   r3.Vec // 右侧车道指向左侧车道的单位向量
	step  float64
}

// ACR 动物横穿场景
// 功能：右侧车道放置三头动物，接管后后两头以不同速度向左侧车道移动，主车越过第一头动物一段距离后结束测量
type ACR struct {
	base
	hazard  r3.Vec
	animals []animal
	passage *passage
}

// NewACR 创建动物横穿场景
func NewACR() Scenario {
	return &ACR{base: base{profile: Profile{
		ID:               ACRID,
		Code:             "ACR",
		Name:             "animal crossing road",
		LeadingDistance:  2,
		SpeedDifference:  -400,
		Approach:         125,
		TTSAdjustment:    25,
		AlwaysNarrate:    true,
		RestartNarration: true,
	}}}
}

func (s *ACR) Setup(ctx context.Context, tc entity.ITaskContext) (r3.Vec, error) {
	w := tc.World()
	if _, _, err := vehicle.SpawnAdjacent(ctx, tc, vehicle.AdjacentOptions{Start: -10, Pairs: 2}); err != nil {
		log.Errorf("spawn adjacent vehicles: %v", err)
	}
	bp, err := findBlueprint(ctx, w, acrBlueprint)
	if err != nil {
		return r3.Vec{}, err
	}
	s.animals = make([]animal, 0, len(acrDistances))
	for i, d := range acrDistances {
		mid, err := ahead(ctx, tc, d)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("animal waypoint: %w", err)
		}
		if i == 0 {
			s.hazard = mid.Transform.Location
		}
		left, okLeft, errLeft := w.LeftLane(ctx, mid)
		right, okRight, errRight := w.RightLane(ctx, mid)
		if err := errors.Join(errLeft, errRight); err != nil {
			return r3.Vec{}, fmt.Errorf("lanes beside %v: %w", mid, err)
		}
		if !okLeft || !okRight {
			return r3.Vec{}, fmt.Errorf("animal crossing needs lanes on both sides of %v", mid)
		}
		from, to := right.Transform, left.Transform
		from.Location.Z, to.Location.Z = 0.1, 0.1
		from.Rotation.Yaw += 180
		a, err := spawn(ctx, tc, bp.ID, from)
		if err != nil {
			return r3.Vec{}, err
		}
		s.animals = append(s.animals, animal{
			actor: a,
			dir:   r3.Unit(r3.Sub(to.Location, from.Location)),
			step:  acrSteps[i],
		})
	}
	log.Infof("spawned %d animals at %v", len(s.animals), s.hazard)
	return s.hazard, nil
}

func (s *ACR) Trigger(ctx context.Context, tc entity.ITaskContext) error {
	p, err := newPassage(ctx, tc, s.hazard, PassMargin)
	if err != nil {
		return err
	}
	s.passage = p
	return nil
}

// Measuring 主车未越过动物时，移动的动物沿车道方向前进一步
func (s *ACR) Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	if s.passage == nil {
		return false, nil
	}
	passed, err := s.passage.Passed(ctx, tc)
	if err != nil || passed {
		return false, err
	}
	w := tc.World()
	for _, a := range s.animals {
		if a.step == 0 {
			continue
		}
		loc, err := w.Location(ctx, a.actor.ID)
		if err != nil {
			return false, fmt.Errorf("animal location: %w", err)
		}
		if err := w.SetLocation(ctx, a.actor.ID, r3.Add(loc, r3.Scale(a.step, a.dir))); err != nil {
			return false, fmt.Errorf("move animal: %w", err)
		}
	}
	return true, nil
}
