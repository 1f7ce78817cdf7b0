package reading

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
)

// Prepare 阅读任务启动时复位信号文件与朗读词流
func Prepare(out *signal.File, streamFile string) error {
	if err := out.Write(signal.Reset); err != nil {
		return err
	}
	return narration.ResetStream(streamFile)
}

// FileStream 返回读取朗读词流文件的函数，读取失败时返回空串
func FileStream(path string) func() string {
	return func() string {
		b, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

// Run 按固定帧率驱动状态机直到任务完成或ctx结束
// 参数：src-信号来源，尚未读到有效信号时视为复位；frame-帧间隔
func Run(ctx context.Context, e *Engine, src SignalSource, frame time.Duration) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		sig, ok := src.Latest()
		if !ok {
			sig = signal.Reset
		}
		e.Step(time.Since(start).Seconds(), sig)
		if e.Complete() {
			return nil
		}
	}
}
