// Package vehicle 车辆相关的公共操作：查找主车、筛选蓝图、生成交通车辆
package vehicle

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
)

// FindFirst 查找第一个类型匹配filter的对象
// 返回：对象、是否找到、错误信息
func FindFirst(ctx context.Context, w entity.IWorld, filter string) (entity.Actor, bool, error) {
	actors, err := w.Actors(ctx, filter)
	if err != nil {
		return entity.Actor{}, false, fmt.Errorf("list actors %s: %w", filter, err)
	}
	if len(actors) == 0 {
		return entity.Actor{}, false, nil
	}
	if len(actors) > 1 {
		log.Warnf("found %d actors matching %s, using %v", len(actors), filter, actors[0])
	}
	return actors[0], true, nil
}

// FindEgo 查找主车，找不到时返回错误
func FindEgo(ctx context.Context, w entity.IWorld, filter string) (entity.Actor, error) {
	ego, ok, err := FindFirst(ctx, w, filter)
	if err != nil {
		return entity.Actor{}, err
	}
	if !ok {
		return entity.Actor{}, fmt.Errorf("unable to find ego vehicle %s in world", filter)
	}
	return ego, nil
}

// FilterGeneration 按代际筛选蓝图
// 功能：generation为"All"（不区分大小写）时不过滤；只有一个蓝图时认为就是所需的，忽略代际；
// 合法代际为1和2，其余取值一律返回空
func FilterGeneration(bps []entity.Blueprint, generation string) []entity.Blueprint {
	if strings.ToLower(generation) == "all" || len(bps) == 1 {
		return bps
	}
	g, err := strconv.Atoi(generation)
	if err != nil || (g != 1 && g != 2) {
		log.Warnf("actor generation %q is not valid, no actor will be spawned", generation)
		return []entity.Blueprint{}
	}
	return lo.Filter(bps, func(b entity.Blueprint, _ int) bool {
		v, ok := b.IntAttribute("generation")
		return ok && v == g
	})
}

// TrafficBlueprints 交通车蓝图
// 功能：取vehicle.*中指定代际的蓝图，去掉主车型号与两轮车，按ID排序
func TrafficBlueprints(ctx context.Context, w entity.IWorld, filter, generation string) ([]entity.Blueprint, error) {
	bps, err := w.Blueprints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get blueprints %s: %w", filter, err)
	}
	bps = FilterGeneration(bps, generation)
	bps = lo.Filter(bps, func(b entity.Blueprint, _ int) bool {
		if strings.Contains(b.ID, "dreyevr") {
			return false
		}
		wheels, ok := b.IntAttribute("number_of_wheels")
		return !ok || wheels != 2
	})
	slices.SortFunc(bps, func(a, b entity.Blueprint) int {
		return strings.Compare(a.ID, b.ID)
	})
	return bps, nil
}

// Release 关闭自动驾驶并全力制动
// 说明：先清零定速再施加制动，保证车辆停下
func Release(ctx context.Context, w entity.IWorld, id entity.ActorID, tmPort int) error {
	if err := w.SetAutopilot(ctx, id, false, tmPort); err != nil {
		return fmt.Errorf("disable autopilot: %w", err)
	}
	if err := w.EnableConstantVelocity(ctx, id, zero); err != nil {
		return fmt.Errorf("zero constant velocity: %w", err)
	}
	if err := w.ApplyControl(ctx, id, entity.FullBrake); err != nil {
		return fmt.Errorf("apply brake: %w", err)
	}
	return nil
}
