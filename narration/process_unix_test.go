//go:build unix

package narration

import (
	"context"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeForwardsControlSignals(t *testing.T) {
	dir := t.TempDir()
	n := NewNarrator(filepath.Join(dir, "stream.txt"), filepath.Join(dir, "index.txt"), "one two", 0)
	sp := &fakeSpeaker{block: true, started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := ListenControl()
	defer ctrl.Stop()
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, n, sp, ctrl) }()
	<-sp.started

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, func() bool {
		sp.mtx.Lock()
		defer sp.mtx.Unlock()
		return sp.paused == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2))
	assert.Eventually(t, func() bool {
		sp.mtx.Lock()
		defer sp.mtx.Unlock()
		return sp.resumed == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestServePausedBeforeStart(t *testing.T) {
	dir := t.TempDir()
	n := NewNarrator(filepath.Join(dir, "stream.txt"), filepath.Join(dir, "index.txt"), "one two", 0)
	sp := &fakeSpeaker{block: true, started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接朗读引擎之前收到暂停，进程不能被默认处理结束
	ctrl := ListenControl()
	defer ctrl.Stop()
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, func() bool { return len(ctrl.ch) == 1 }, time.Second, 10*time.Millisecond)

	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, n, sp, ctrl) }()
	select {
	case <-sp.started:
		t.Fatal("narration started while paused")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2))
	select {
	case <-sp.started:
	case <-time.After(time.Second):
		t.Fatal("narration did not start after resume")
	}
	sp.mtx.Lock()
	assert.Zero(t, sp.paused)
	sp.mtx.Unlock()

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestProcessTerminate(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	p, err := StartCommand(exec.Command(sleep, "30"))
	require.NoError(t, err)
	assert.False(t, p.Exited())
	assert.Positive(t, p.Pid())

	require.NoError(t, p.Terminate(2*time.Second))
	assert.True(t, p.Exited())
	assert.ErrorIs(t, p.Suspend(), errExited)
	assert.ErrorIs(t, p.Resume(), errExited)
	require.NoError(t, p.Terminate(time.Second))
}
