package signal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 信号文件监视器
// 功能：监听信号文件所在目录的变化并缓存最新信号，同时按固定间隔轮询兜底
// 说明：读取失败时保留上一次的值
type Watcher struct {
	file   *File
	latest atomic.Int64 // 最新信号，-1表示尚未读到

	mtx     sync.Mutex
	changed chan struct{} // 每次信号变化时关闭并替换

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch 开始监视信号文件
// 参数：poll-轮询兜底间隔，<=0时只依赖文件系统事件
func Watch(ctx context.Context, f *File, poll time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// 监视目录：写入方通过重命名替换文件
	if err := fsw.Add(filepath.Dir(f.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		file:    f,
		changed: make(chan struct{}),
		fsw:     fsw,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	w.latest.Store(-1)
	w.refresh()
	go w.loop(ctx, poll)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, poll time.Duration) {
	defer close(w.done)
	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}
	target := filepath.Clean(w.file.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == target && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				w.refresh()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("signal watcher: %v", err)
		case <-tick:
			w.refresh()
		}
	}
}

// refresh 重新读取信号文件，值变化时通知等待者
// 说明：读取与更新在锁内完成，先读到的旧值不会覆盖后读到的新值
func (w *Watcher) refresh() {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	s, err := w.file.Read()
	if err != nil {
		log.Debugf("keep previous signal: %v", err)
		return
	}
	if old := w.latest.Swap(int64(s)); old != int64(s) {
		log.Debugf("signal changed %d -> %v", old, s)
		close(w.changed)
		w.changed = make(chan struct{})
	}
}

// Sync 立即重新读取信号文件
// 说明：写入方在写入后调用，保证随后的Latest不会返回写入前的旧值
func (w *Watcher) Sync() {
	w.refresh()
}

// Latest 最新信号，尚未读到有效值时ok=false
func (w *Watcher) Latest() (Signal, bool) {
	v := w.latest.Load()
	if v < 0 {
		return 0, false
	}
	return Signal(v), true
}

// Is 最新信号是否为s
func (w *Watcher) Is(s Signal) bool {
	v, ok := w.Latest()
	return ok && v == s
}

// changes 返回在下一次信号变化时关闭的通道
func (w *Watcher) changes() <-chan struct{} {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.changed
}

// Wait 阻塞直到信号变为s或ctx结束
func (w *Watcher) Wait(ctx context.Context, s Signal) error {
	for {
		ch := w.changes()
		if w.Is(s) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Close 停止监视
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}
