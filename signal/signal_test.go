package signal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "SignalFile.txt"))
	_, err := f.Read()
	assert.Error(t, err)

	for _, s := range []Signal{Reading, TOR, Resume, NDRTDone, Reset} {
		require.NoError(t, f.Write(s))
		got, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	b, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "5", string(b))
}

func TestParse(t *testing.T) {
	s, err := Parse(" 2\n")
	require.NoError(t, err)
	assert.Equal(t, Resume, s)
	_, err = Parse("x")
	assert.Error(t, err)
	assert.Equal(t, "tor", TOR.String())
}

func TestWatcher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := NewFile(filepath.Join(t.TempDir(), "SignalFile.txt"))
	w, err := Watch(ctx, f, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	_, ok := w.Latest()
	assert.False(t, ok)

	require.NoError(t, f.Write(Reading))
	require.NoError(t, w.Wait(ctx, Reading))

	// 非法内容不覆盖上一次的值
	require.NoError(t, os.WriteFile(f.Path(), []byte("garbage"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, w.Is(Reading))

	go func() {
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, f.Write(NDRTDone))
	}()
	require.NoError(t, w.Wait(ctx, NDRTDone))
	s, ok := w.Latest()
	assert.True(t, ok)
	assert.Equal(t, NDRTDone, s)
}

func TestWatcherSyncAfterWrite(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "SignalFile.txt"))
	require.NoError(t, f.Write(Reset))
	w, err := Watch(context.Background(), f, time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	// 轮询协程与Sync并发读取，Sync之后必须看到刚写入的值
	for i := 0; i < 200; i++ {
		s := Signal(i % 4)
		require.NoError(t, f.Write(s))
		w.Sync()
		require.True(t, w.Is(s), "write %d: latest is not %v", i, s)
	}
}

func TestWatcherWaitCancelled(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "SignalFile.txt"))
	w, err := Watch(context.Background(), f, 0)
	require.NoError(t, err)
	defer w.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Wait(ctx, NDRTDone), context.DeadlineExceeded)
}
