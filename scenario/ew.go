package scenario

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/vehicle"
	"gonum.org/v1/gonum/spatial/r3"
)

// 浓雾参数
const (
	FogStart    = 20  // 起始雾浓度
	FogEnd      = 60  // 最终雾浓度
	FogStep     = 5   // 每次增加
	FogInterval = 0.5 // 两次增加之间的仿真时间（秒）

	extremeWeatherTraffic = 40
	extremeWeatherWindow  = 10.0
)

// ExtremeWeather 极端天气场景
// 功能：在全图随机生成自动驾驶车流，接管时雾浓度逐级升高，测量固定时长后恢复原天气
type ExtremeWeather struct {
	base
	original entity.Weather
	ramped   bool
	deadline float64
}

// NewExtremeWeather 创建极端天气场景
func NewExtremeWeather() Scenario {
	return &ExtremeWeather{base: base{profile: Profile{
		ID:              ExtremeWeatherID,
		Code:            "EW",
		Name:            "extreme weather",
		LeadingDistance: 2,
		SpeedDifference: -500,
		Approach:        100,
	}}}
}

func (s *ExtremeWeather) Setup(ctx context.Context, tc entity.ITaskContext) (r3.Vec, error) {
	if _, err := vehicle.SpawnTraffic(ctx, tc, extremeWeatherTraffic); err != nil {
		log.Errorf("spawn traffic: %v", err)
	}
	wp, err := ahead(ctx, tc, HazardDistance)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("tor waypoint: %w", err)
	}
	return wp.Transform.Location, nil
}

// Trigger 逐级加雾
// 算法说明：保留原天气的其余参数，雾浓度从FogStart到FogEnd每次加FogStep，每级之间推进FogInterval秒
func (s *ExtremeWeather) Trigger(ctx context.Context, tc entity.ITaskContext) error {
	w := tc.World()
	old, err := w.Weather(ctx)
	if err != nil {
		return fmt.Errorf("get weather: %w", err)
	}
	s.original = old
	s.ramped = true
	for density := FogStart; density <= FogEnd; density += FogStep {
		weather := old
		weather.FogDensity = float64(density)
		if err := w.SetWeather(ctx, weather); err != nil {
			return fmt.Errorf("set fog density %d: %w", density, err)
		}
		if err := tc.Wait(ctx, FogInterval); err != nil {
			return err
		}
	}
	log.Info("extreme weather set")
	s.deadline = tc.Clock().Deadline(extremeWeatherWindow)
	return nil
}

func (s *ExtremeWeather) Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	return tc.Clock().Before(s.deadline), nil
}

func (s *ExtremeWeather) Restore(ctx context.Context, tc entity.ITaskContext) error {
	if !s.ramped {
		return nil
	}
	if err := tc.World().SetWeather(ctx, s.original); err != nil {
		return fmt.Errorf("restore weather: %w", err)
	}
	return nil
}
