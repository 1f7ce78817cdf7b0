// 随机数引擎，包装了golang.org/x/exp/rand，提供了实验编排中常用的随机方法
package randengine

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Engine 随机数引擎
// 功能：提供可复现（固定种子）且线程安全的随机数生成
// 说明：种子为0时使用当前时间，与原实验每次运行都重新随机一致
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
	seed       uint64
}

// New 创建随机数引擎
// 参数：seed-随机数种子，0表示使用当前时间
// 返回：随机数引擎指针
func New(seed uint64) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{Rand: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed 返回实际使用的种子，便于记录后复现
func (e *Engine) Seed() uint64 {
	return e.seed
}

// IntRange 在[low, high)内随机生成整数（线程安全）
// 说明：high<=low时直接返回low
func (e *Engine) IntRange(low, high int) int {
	if high <= low {
		return low
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return low + e.Intn(high-low)
}

// IntnSafe 随机生成[0, n)内的整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// PTrue 以指定概率返回true（线程安全）
func (e *Engine) PTrue(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64() < p
}

// Shuffle 原地打乱切片（线程安全）
// 功能：Fisher-Yates洗牌
func Shuffle[T any](e *Engine, s []T) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.Rand.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// Choice 从切片中随机选择一个元素（线程安全）
// 返回：选中的元素，切片为空时返回零值与false
func Choice[T any](e *Engine, s []T) (T, bool) {
	var zero T
	if len(s) == 0 {
		return zero, false
	}
	return s[e.IntnSafe(len(s))], true
}
