package scenario

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// HazardDistance 危险点在主车前方的道路距离（米）
const HazardDistance = 1300

// PassMargin 主车越过危险点多远后结束测量（米）
const PassMargin = 20

// ahead 主车所在路点前方distance米处的路点
func ahead(ctx context.Context, tc entity.ITaskContext, distance float64) (entity.Waypoint, error) {
	w := tc.World()
	loc, err := w.Location(ctx, tc.Ego().ID)
	if err != nil {
		return entity.Waypoint{}, fmt.Errorf("ego location: %w", err)
	}
	wp, err := w.Waypoint(ctx, loc)
	if err != nil {
		return entity.Waypoint{}, fmt.Errorf("ego waypoint: %w", err)
	}
	return next(ctx, w, wp, distance)
}

func next(ctx context.Context, w entity.IWorld, wp entity.Waypoint, distance float64) (entity.Waypoint, error) {
	wps, err := w.WaypointNext(ctx, wp, distance)
	if err != nil {
		return entity.Waypoint{}, fmt.Errorf("waypoint %v m after %v: %w", distance, wp, err)
	}
	if len(wps) == 0 {
		return entity.Waypoint{}, fmt.Errorf("no waypoint %v m after %v", distance, wp)
	}
	return wps[0], nil
}

// findBlueprint 查找唯一匹配的蓝图
func findBlueprint(ctx context.Context, w entity.IWorld, filter string) (entity.Blueprint, error) {
	bps, err := w.Blueprints(ctx, filter)
	if err != nil {
		return entity.Blueprint{}, fmt.Errorf("get blueprints %s: %w", filter, err)
	}
	if len(bps) != 1 {
		return entity.Blueprint{}, fmt.Errorf("expected exactly one blueprint %s, found %d", filter, len(bps))
	}
	return bps[0], nil
}

// spawn 生成对象并登记
func spawn(ctx context.Context, tc entity.ITaskContext, blueprint string, t entity.Transform) (entity.Actor, error) {
	a, err := tc.World().SpawnActor(ctx, blueprint, t, 0)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("spawn %s at %v: %w", blueprint, t, err)
	}
	tc.Track(a.ID)
	return a, nil
}

// passage 判断主车是否已越过某点
// 说明：以接管时主车位置为原点，主车行驶距离超过原点到目标点的距离margin米即视为越过
type passage struct {
	origin r3.Vec
	target r3.Vec
	margin float64
}

func newPassage(ctx context.Context, tc entity.ITaskContext, target r3.Vec, margin float64) (*passage, error) {
	origin, err := tc.World().Location(ctx, tc.Ego().ID)
	if err != nil {
		return nil, fmt.Errorf("ego location: %w", err)
	}
	return &passage{origin: origin, target: target, margin: margin}, nil
}

// Passed 主车是否已越过目标点
func (p *passage) Passed(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	loc, err := tc.World().Location(ctx, tc.Ego().ID)
	if err != nil {
		return false, fmt.Errorf("ego location: %w", err)
	}
	return entity.Distance(p.origin, loc)-entity.Distance(p.origin, p.target) > p.margin, nil
}
