// Package perf 接管绩效采样：车道偏移与碰撞
package perf

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/input"
	"gonum.org/v1/gonum/stat"
)

// Sample 一次车道偏移采样
type Sample struct {
	T        float64 // 仿真时间（秒）
	Offset   float64 // 与车道中心线的距离（米）
	Vergence float64 // 注视辐辏距离（米），没有眼动数据时为0
}

// LaneSampler 车道偏移采样器
// 说明：两次采样的仿真时间间隔不小于spacing
type LaneSampler struct {
	spacing float64
	last    float64
	samples []Sample
}

// NewLaneSampler 创建采样器
func NewLaneSampler(spacing float64) *LaneSampler {
	return &LaneSampler{spacing: spacing, last: math.Inf(-1), samples: make([]Sample, 0)}
}

// Due 当前时刻是否需要采样
func (s *LaneSampler) Due(now float64) bool {
	return now-s.last >= s.spacing
}

// Sample 在时刻now采样主车的车道偏移
// 返回：本次是否采样
func (s *LaneSampler) Sample(ctx context.Context, w entity.IWorld, ego entity.ActorID, now float64) (bool, error) {
	if !s.Due(now) {
		return false, nil
	}
	loc, err := w.Location(ctx, ego)
	if err != nil {
		return false, fmt.Errorf("ego location: %w", err)
	}
	wp, err := w.Waypoint(ctx, loc)
	if err != nil {
		return false, fmt.Errorf("ego waypoint: %w", err)
	}
	s.Add(now, entity.Distance(loc, wp.Transform.Location))
	return true, nil
}

// Add 直接记录一次采样
func (s *LaneSampler) Add(now, offset float64) {
	s.samples = append(s.samples, Sample{T: now, Offset: offset})
	s.last = now
}

// Annotate 为最近一次采样补充注视辐辏距离
func (s *LaneSampler) Annotate(vergence float64) {
	if len(s.samples) == 0 {
		return
	}
	s.samples[len(s.samples)-1].Vergence = vergence
}

// Samples 全部采样
func (s *LaneSampler) Samples() []Sample {
	return s.samples
}

// Offsets 全部偏移值
func (s *LaneSampler) Offsets() []float64 {
	res := make([]float64, len(s.samples))
	for i, v := range s.samples {
		res[i] = v.Offset
	}
	return res
}

// CollisionRecorder 碰撞记录器
type CollisionRecorder struct {
	w      entity.IWorld
	sensor entity.ActorID
	events []entity.CollisionEvent
}

// ListenCollisions 在parent上挂载碰撞传感器
func ListenCollisions(ctx context.Context, w entity.IWorld, parent entity.ActorID) (*CollisionRecorder, error) {
	sensor, err := w.ListenCollisions(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("listen collisions: %w", err)
	}
	return &CollisionRecorder{w: w, sensor: sensor, events: make([]entity.CollisionEvent, 0)}, nil
}

// Sensor 碰撞传感器ID
func (r *CollisionRecorder) Sensor() entity.ActorID {
	return r.sensor
}

// Poll 取走传感器上新的碰撞事件
func (r *CollisionRecorder) Poll(ctx context.Context) error {
	events, err := r.w.CollisionEvents(ctx, r.sensor)
	if err != nil {
		return fmt.Errorf("poll collisions: %w", err)
	}
	for _, e := range events {
		log.Infof("collision with %v at %.2fs", e.OtherActor, e.Timestamp)
	}
	r.events = append(r.events, events...)
	return nil
}

// Events 已记录的碰撞事件
func (r *CollisionRecorder) Events() []entity.CollisionEvent {
	return r.events
}

// Summary 一次接管的绩效汇总
type Summary struct {
	Samples    int
	MeanOffset float64
	SDLP       float64 // 车道位置标准差
	MaxOffset  float64
	Collisions int
}

// Summarize 计算汇总
func Summarize(offsets []float64, collisions int) Summary {
	s := Summary{Samples: len(offsets), Collisions: collisions}
	if len(offsets) == 0 {
		return s
	}
	if len(offsets) == 1 {
		s.MeanOffset = offsets[0]
	} else {
		s.MeanOffset, s.SDLP = stat.MeanStdDev(offsets, nil)
	}
	for _, v := range offsets {
		s.MaxOffset = math.Max(s.MaxOffset, v)
	}
	return s
}

// Record 一次试次的绩效记录
type Record struct {
	Session    string // 运行ID
	Settings   input.Settings
	Scenario   string // 场景代码
	Samples    []Sample
	Collisions []entity.CollisionEvent
	Summary    Summary
	CreatedAt  time.Time
}

// NewRecord 组装绩效记录
func NewRecord(session string, settings input.Settings, scenario string, sampler *LaneSampler, collisions *CollisionRecorder) Record {
	events := make([]entity.CollisionEvent, 0)
	if collisions != nil {
		events = collisions.Events()
	}
	return Record{
		Session:    session,
		Settings:   settings,
		Scenario:   scenario,
		Samples:    sampler.Samples(),
		Collisions: events,
		Summary:    Summarize(sampler.Offsets(), len(events)),
		CreatedAt:  time.Now(),
	}
}
