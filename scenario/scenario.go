// Package scenario 四种接管场景的交通布置、危险触发、测量窗口与恢复
//
// 场景只描述自己特有的部分，连接仿真器、信号文件、朗读进程与数据输出等公共流程见task包。
package scenario

import (
	"context"
	"fmt"
	"slices"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// Profile 场景参数
type Profile struct {
	ID              int
	Code            string  // 写入Scenario.csv的场景代码
	Name            string  // 可读名称
	LeadingDistance float64 // 交通管理器全局跟车距离（米）
	SpeedDifference float64 // 交通管理器全局速度差（%，负数表示超速）
	Approach        float64 // 主车与危险点距离不大于该值时发出接管请求（米）
	TTSAdjustment   int     // 朗读速度下调量（WPM）

	// 无论是否开启TTS都启动朗读子进程（TTS关闭时静音），RSVP依赖其单词流
	AlwaysNarrate bool
	// RSVP开启时，接管请求终止朗读并清空单词流，恢复时从句子边界重新朗读
	RestartNarration bool
}

// Narrated 本场景是否启动朗读子进程
func (p Profile) Narrated(tts bool) bool {
	return tts || p.AlwaysNarrate
}

// StreamDriven 阅读任务是否跟随朗读词流推进
// 说明：静音朗读只为RSVP提供词流，滚动文本仍按WPM推进
func (p Profile) StreamDriven(rsvp, tts bool) bool {
	return tts || (p.AlwaysNarrate && rsvp)
}

func (p Profile) String() string {
	return fmt.Sprintf("%d:%s(%s)", p.ID, p.Code, p.Name)
}

// Scenario 接管场景
// 说明：除Setup外各方法都在同步推进的主循环中调用，方法内部需要等待时通过tc.Wait推进仿真
type Scenario interface {
	Profile() Profile
	// Setup 布置交通与危险源，返回判断接管时机所用的危险点
	Setup(ctx context.Context, tc entity.ITaskContext) (hazard r3.Vec, err error)
	// Approach 接近危险点期间每帧调用
	Approach(ctx context.Context, tc entity.ITaskContext) error
	// Trigger 发出接管请求并关闭主车自动驾驶后触发危险
	Trigger(ctx context.Context, tc entity.ITaskContext) error
	// Measuring 测量期间每帧调用，返回false时测量结束
	Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error)
	// Restore 测量结束后恢复场景
	Restore(ctx context.Context, tc entity.ITaskContext) error
}

// base 场景公共部分
type base struct {
	profile Profile
}

func (b *base) Profile() Profile {
	return b.profile
}

func (b *base) Approach(ctx context.Context, tc entity.ITaskContext) error {
	return nil
}

func (b *base) Restore(ctx context.Context, tc entity.ITaskContext) error {
	return nil
}

// 场景编号
const (
	ExtremeWeatherID = 1
	LVADID           = 2
	CSAID            = 3
	ACRID            = 4

	DefaultID = ACRID
)

var registry = make(map[int]func() Scenario)

// Register 注册场景构造函数，编号重复时panic
func Register(id int, f func() Scenario) {
	if _, ok := registry[id]; ok {
		log.Panicf("scenario %d registered twice", id)
	}
	registry[id] = f
}

func init() {
	Register(ExtremeWeatherID, NewExtremeWeather)
	Register(LVADID, NewLVAD)
	Register(CSAID, NewCSA)
	Register(ACRID, NewACR)
}

// New 按编号创建场景，未知编号运行ACR
func New(id int) Scenario {
	f, ok := registry[id]
	if !ok {
		log.Warnf("unknown scenario %d, running ACR", id)
		f = registry[DefaultID]
	}
	return f()
}

// Profiles 全部已注册场景的参数，按编号排序
func Profiles() []Profile {
	res := make([]Profile, 0, len(registry))
	for _, f := range registry {
		res = append(res, f().Profile())
	}
	slices.SortFunc(res, func(a, b Profile) int {
		return a.ID - b.ID
	})
	return res
}
