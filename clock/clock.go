package clock

import (
	"fmt"
	"sync"
)

// Clock 仿真时钟
// 功能：记录同步模式下仿真器已推进的帧数与仿真时间
// 说明：同步模式下仿真器只有在客户端调用tick时才前进固定步长DT，
// 因此所有等待、测量窗口与采样间隔都以本时钟的仿真时间为准
type Clock struct {
	DT float64 // 每帧固定时间间隔（秒）

	T            float64 // 当前仿真时间（秒），从Init开始计
	InternalStep int32   // 当前内部步数
	Frame        uint64  // 仿真器最近一次返回的帧号

	mtx sync.RWMutex
}

// New 根据固定步长创建时钟
// 功能：创建时钟实例并完成初始化
// 参数：dt-每帧时间间隔（秒），不大于0时使用1/80
// 返回：初始化完成的时钟实例
func New(dt float64) *Clock {
	if dt <= 0 {
		dt = DefaultDT
	}
	c := &Clock{DT: dt}
	c.Init()
	return c
}

// DefaultDT 默认固定步长，与实验场景中设置的fixed_delta_seconds一致
const DefaultDT = 1.0 / 80

// Init 重置时钟状态
func (c *Clock) Init() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.InternalStep = 0
	c.T = 0
	c.Frame = 0
}

// Advance 推进一帧
// 功能：在一次tick成功后更新步数、仿真时间与帧号
// 参数：frame-仿真器返回的帧号
func (c *Clock) Advance(frame uint64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
	c.Frame = frame
}

// Now 线程安全地获取当前仿真时间与步数
func (c *Clock) Now() (t float64, step int32) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.T, c.InternalStep
}

// Deadline 返回从当前时刻起经过d秒后的仿真时间
func (c *Clock) Deadline(d float64) float64 {
	t, _ := c.Now()
	return t + d
}

// Before 判断当前仿真时间是否仍早于deadline
func (c *Clock) Before(deadline float64) bool {
	t, _ := c.Now()
	return t < deadline
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串
// 返回：格式化的时间字符串（HH:MM:SS.ss）
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%05.2f", hour, minute, second)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 功能：将当前时间分解为小时、分钟、秒三个部分
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t, _ := c.Now()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
