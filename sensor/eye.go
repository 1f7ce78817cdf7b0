package sensor

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
)

// EyeTracker 主车上的眼动仪
type EyeTracker struct {
	world entity.IWorld
	actor entity.Actor
}

// FindEyeTracker 按类型过滤查找眼动仪
func FindEyeTracker(ctx context.Context, w entity.IWorld, filter string) (*EyeTracker, error) {
	actors, err := w.Actors(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list eye trackers: %w", err)
	}
	if len(actors) == 0 {
		return nil, fmt.Errorf("no eye tracker matches %q", filter)
	}
	if len(actors) > 1 {
		log.Warnf("%d eye trackers match %q, using %v", len(actors), filter, actors[0])
	}
	return &EyeTracker{world: w, actor: actors[0]}, nil
}

func (e *EyeTracker) Actor() entity.Actor {
	return e.actor
}

// Read 读取一帧眼动数据并计算辐辏距离
func (e *EyeTracker) Read(ctx context.Context) (entity.EyeData, error) {
	d, err := e.world.EyeTrackerData(ctx, e.actor.ID)
	if err != nil {
		return d, fmt.Errorf("read eye tracker %v: %w", e.actor, err)
	}
	d.Vergence = Vergence(d.LeftOrigin, d.RightOrigin, d.LeftDir, d.RightDir)
	return d, nil
}
