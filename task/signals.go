package task

import (
	"context"
	"time"

	"github.com/tsinghua-fib-lab/takeover-sim/signal"
)

// Signals 与阅读任务之间的信号通道
type Signals interface {
	Write(s signal.Signal) error
	// Latest 阅读任务一侧最新的信号，尚未读到有效值时ok=false
	Latest() (s signal.Signal, ok bool)
	Close() error
}

// fileSignals 基于信号文件的通道
// 说明：监视器创建失败时退化为每次直接读取文件
type fileSignals struct {
	file    *signal.File
	watcher *signal.Watcher
	last    signal.Signal
	ok      bool
}

// OpenSignals 打开信号文件通道
// 参数：poll-监视器轮询兜底间隔
func OpenSignals(ctx context.Context, path string, poll time.Duration) Signals {
	f := signal.NewFile(path)
	s := &fileSignals{file: f}
	w, err := signal.Watch(ctx, f, poll)
	if err != nil {
		log.Errorf("watch signal file, falling back to polling on every tick: %v", err)
	} else {
		s.watcher = w
	}
	return s
}

func (s *fileSignals) Write(sig signal.Signal) error {
	if err := s.file.Write(sig); err != nil {
		return err
	}
	if s.watcher != nil {
		s.watcher.Sync()
	}
	return nil
}

func (s *fileSignals) Latest() (signal.Signal, bool) {
	if s.watcher != nil {
		return s.watcher.Latest()
	}
	v, err := s.file.Read()
	if err != nil {
		log.Debugf("keep previous signal: %v", err)
		return s.last, s.ok
	}
	s.last, s.ok = v, true
	return v, true
}

func (s *fileSignals) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
