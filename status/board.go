// Package status 供实验员查看的运行状态服务
//
// 运行器把当前阶段写入Board，Server通过Connect RPC与websocket对外只读发布。
package status

import (
	"sync"
	"time"

	"github.com/tsinghua-fib-lab/takeover-sim/signal"
)

// Phase 运行阶段
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSetup     Phase = "setup"      // 连接仿真器并布置场景
	PhaseReading   Phase = "reading"    // 自动驾驶中，被试进行阅读任务
	PhaseTOR       Phase = "tor"        // 已发出接管请求，正在测量
	PhaseResume    Phase = "resume"     // 恢复自动驾驶
	PhaseAwaitNDRT Phase = "await-ndrt" // 等待阅读任务完成
	PhaseCleanup   Phase = "cleanup"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Status 运行状态快照
type Status struct {
	Session    string
	Scenario   string
	Phase      Phase
	Signal     signal.Signal
	SimTime    float64 // 仿真时间（秒）
	Frame      uint64
	Distance   float64 // 主车到危险点的距离（米），未知时为负
	Samples    int     // 已采集的车道偏移样本数
	Collisions int
	Error      string
	UpdatedAt  time.Time
}

func (s Status) toMap() map[string]any {
	return map[string]any{
		"session":    s.Session,
		"scenario":   s.Scenario,
		"phase":      string(s.Phase),
		"signal":     int(s.Signal),
		"sim_time":   s.SimTime,
		"frame":      s.Frame,
		"distance":   s.Distance,
		"samples":    s.Samples,
		"collisions": s.Collisions,
		"error":      s.Error,
		"updated_at": s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Board 线程安全的状态板
// 说明：nil Board的所有方法都是空操作，运行器无需判断是否启用了状态服务
type Board struct {
	mtx    sync.RWMutex
	status Status
	subs   map[chan Status]struct{}
}

func NewBoard() *Board {
	return &Board{
		status: Status{Phase: PhaseIdle, Signal: signal.Reset, Distance: -1, UpdatedAt: time.Now()},
		subs:   make(map[chan Status]struct{}),
	}
}

// Snapshot 当前状态
func (b *Board) Snapshot() Status {
	if b == nil {
		return Status{}
	}
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.status
}

// Update 修改状态并通知订阅者
func (b *Board) Update(fn func(s *Status)) {
	if b == nil {
		return
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	fn(&b.status)
	b.status.UpdatedAt = time.Now()
	for ch := range b.subs {
		// 订阅者处理不过来时丢弃旧状态
		select {
		case ch <- b.status:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- b.status:
			default:
			}
		}
	}
}

// SetPhase 切换阶段
func (b *Board) SetPhase(p Phase) {
	b.Update(func(s *Status) { s.Phase = p })
}

// Subscribe 订阅状态变化，返回的通道会先收到当前状态
func (b *Board) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	b.mtx.Lock()
	b.subs[ch] = struct{}{}
	ch <- b.status
	b.mtx.Unlock()
	return ch, func() {
		b.mtx.Lock()
		defer b.mtx.Unlock()
		delete(b.subs, ch)
	}
}
