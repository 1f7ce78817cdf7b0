package sandbox

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// 以下方法供彩排与测试检查世界状态

// Ego 主车
func (w *World) Ego() entity.Actor {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for _, id := range w.order {
		if w.actors[id].TypeID == EgoTypeID {
			return w.actors[id].Actor
		}
	}
	return entity.Actor{}
}

// Frame 当前帧号与仿真时间
func (w *World) Frame() (uint64, float64) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.frame, w.t
}

// Alive 当前存在的对象
func (w *World) Alive() []entity.Actor {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return lo.Map(w.order, func(id entity.ActorID, _ int) entity.Actor {
		return w.actors[id].Actor
	})
}

// Destroyed 已被销毁的对象ID
func (w *World) Destroyed() []entity.ActorID {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return append([]entity.ActorID(nil), w.destroyed...)
}

// Autopilot 对象是否处于自动驾驶
func (w *World) Autopilot(id entity.ActorID) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, ok := w.actors[id]
	return ok && a.autopilot
}

// Control 对象最近一次的控制量
func (w *World) Control(id entity.ActorID) entity.VehicleControl {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if a, ok := w.actors[id]; ok {
		return a.control
	}
	return entity.VehicleControl{}
}

// ConstantVelocity 对象的定速设置
func (w *World) ConstantVelocity(id entity.ActorID) (r3.Vec, bool) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	a, ok := w.actors[id]
	if !ok || a.constVel == nil {
		return r3.Vec{}, false
	}
	return *a.constVel, true
}

// WeatherHistory 设置过的天气序列
func (w *World) WeatherHistory() []entity.Weather {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return append([]entity.Weather(nil), w.weathers...)
}

// InjectCollision 向所有正在监听的碰撞传感器注入一次碰撞
func (w *World) InjectCollision(other entity.Actor) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for id := range w.sensors {
		w.sensors[id] = append(w.sensors[id], entity.CollisionEvent{Timestamp: w.t, Frame: w.frame, OtherActor: other})
	}
}

// SetEyeRays 设置眼动仪返回的左右眼射线
func (w *World) SetEyeRays(l0, r0, ld, rd r3.Vec) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.eye.LeftOrigin, w.eye.RightOrigin, w.eye.LeftDir, w.eye.RightDir = l0, r0, ld, rd
}

func (w *World) String() string {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return fmt.Sprintf("sandbox.World{frame=%d, t=%.2f, actors=%d}", w.frame, w.t, len(w.actors))
}
