package narration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpeaker struct {
	mtx     sync.Mutex
	paused  int
	resumed int
	spoken  []int
	started chan struct{}
	block   bool
}

func (f *fakeSpeaker) Speak(ctx context.Context, words []Word, onWord func(i int)) error {
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	for i := range words {
		f.mtx.Lock()
		f.spoken = append(f.spoken, i)
		f.mtx.Unlock()
		onWord(i)
	}
	return nil
}

func (f *fakeSpeaker) Pause() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.paused++
	return nil
}

func (f *fakeSpeaker) Resume() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.resumed++
	return nil
}

func (f *fakeSpeaker) Close() error { return nil }

func TestTokenize(t *testing.T) {
	text := "Hello world. How are\tyou?  \"Fine.\" Thanks"
	words := Tokenize(text)
	require.Len(t, words, 7)
	assert.Equal(t, Word{Text: "Hello", Start: 0, Sentence: 0}, words[0])
	assert.Equal(t, Word{Text: "world.", Start: 6, Sentence: 0}, words[1])
	assert.Equal(t, Word{Text: "How", Start: 13, Sentence: 13}, words[2])
	assert.Equal(t, Word{Text: "you?", Start: 21, Sentence: 13}, words[4])
	assert.Equal(t, Word{Text: `"Fine."`, Start: 27, Sentence: 27}, words[5])
	assert.Equal(t, Word{Text: "Thanks", Start: 35, Sentence: 35}, words[6])
	for _, w := range words {
		assert.Equal(t, w.Text, text[w.Start:w.Start+len(w.Text)])
	}
	assert.Empty(t, Tokenize(" \n\t "))
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0, Rate(DefaultWPM))
	assert.Equal(t, 100, Rate(MaxWPM))
	assert.Equal(t, -100, Rate(MinWPM))
	assert.Equal(t, 100, Rate(600))
	assert.Equal(t, -100, Rate(10))
	assert.Equal(t, 12, Rate(200))
	assert.Equal(t, -26, Rate(150))
	assert.Equal(t, 150, Speed(175, 25))

	assert.Equal(t, 100, Volume(1))
	assert.Equal(t, -100, Volume(0))
	assert.Equal(t, 0, Volume(0.5))
}

func TestSSML(t *testing.T) {
	ssml := SSML(Tokenize("a <b> & c"))
	assert.Equal(t, `<speak><mark name="0"/>a <mark name="1"/>&lt;b&gt; <mark name="2"/>&amp; <mark name="3"/>c </speak>`, ssml)
}

func TestNarratorRun(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "TTSStreamFile.txt")
	index := filepath.Join(dir, "SentenceIndexFile.txt")
	full := "First one. Second sentence here. Third."
	base := len("First one. ")
	n := NewNarrator(stream, index, full[base:], base)

	var sentences []string
	sp := &fakeSpeaker{}
	require.NoError(t, n.Run(context.Background(), wrapSpeaker{sp, func() {
		b, _ := os.ReadFile(index)
		sentences = append(sentences, string(b))
	}}))

	b, err := os.ReadFile(stream)
	require.NoError(t, err)
	assert.Equal(t, Over, string(b))
	assert.Equal(t, []int{0, 1, 2, 3}, sp.spoken)

	off, err := ReadSentenceIndex(index)
	require.NoError(t, err)
	assert.Equal(t, len("First one. Second sentence here. "), off)
	assert.Equal(t, "Third.", full[off:])
	assert.Equal(t, []string{"11", "11", "11", "33"}, sentences)

	w, ok := n.spoken()
	require.True(t, ok)
	assert.Equal(t, "Third.", w.Text)
}

// wrapSpeaker 在每个词回调之后执行after
type wrapSpeaker struct {
	*fakeSpeaker
	after func()
}

func (w wrapSpeaker) Speak(ctx context.Context, words []Word, onWord func(i int)) error {
	return w.fakeSpeaker.Speak(ctx, words, func(i int) {
		onWord(i)
		w.after()
	})
}

func TestNarratorCanceled(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "stream.txt")
	index := filepath.Join(dir, "index.txt")
	require.NoError(t, ResetStream(stream))
	n := NewNarrator(stream, index, "Some words.", 0)

	ctx, cancel := context.WithCancel(context.Background())
	sp := &fakeSpeaker{block: true, started: make(chan struct{})}
	go func() {
		<-sp.started
		cancel()
	}()
	err := n.Run(ctx, sp)
	assert.ErrorIs(t, err, context.Canceled)

	b, err := os.ReadFile(stream)
	require.NoError(t, err)
	assert.Empty(t, string(b))
	_, ok := n.spoken()
	assert.False(t, ok)
}

func TestNarratorEmptyText(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "stream.txt")
	n := NewNarrator(stream, filepath.Join(dir, "index.txt"), "   ", 0)
	require.NoError(t, n.Run(context.Background(), &fakeSpeaker{}))
	b, err := os.ReadFile(stream)
	require.NoError(t, err)
	assert.Equal(t, Over, string(b))
}

func TestReadSentenceIndexInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "index.txt")
	_, err := ReadSentenceIndex(p)
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(p, []byte("abc"), 0o644))
	_, err = ReadSentenceIndex(p)
	assert.Error(t, err)
}

func TestArgv(t *testing.T) {
	args := Args{ConfigPath: "run.yml", Offset: 42, Adjustment: 25, Muted: true}
	assert.Equal(t, []string{"tts", "--offset", "42", "--adjustment", "25", "--config", "run.yml", "--muted"}, args.Argv())
	assert.Equal(t, []string{"tts", "--offset", "0", "--adjustment", "0"}, Args{}.Argv())
}
