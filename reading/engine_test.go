package reading

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
)

type recorder struct {
	texts  []string
	alerts []Alert
}

func (r *recorder) ShowText(text string) { r.texts = append(r.texts, text) }
func (r *recorder) ShowAlert(a Alert)    { r.alerts = append(r.alerts, a) }

func (r *recorder) lastText() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *recorder) lastAlert() (Alert, bool) {
	if len(r.alerts) == 0 {
		return 0, false
	}
	return r.alerts[len(r.alerts)-1], true
}

type signals struct {
	written []signal.Signal
}

func (s *signals) Write(v signal.Signal) error {
	s.written = append(s.written, v)
	return nil
}

func TestRSVPTimed(t *testing.T) {
	d, out := &recorder{}, &signals{}
	e := New("a b c", Options{RSVP: true, WPM: 60}, d, out, nil)

	e.Step(0, signal.Reset)
	assert.Empty(t, d.texts)

	e.Step(0, signal.Reading)
	assert.Equal(t, "a", d.lastText())
	e.Step(0.5, signal.Reading)
	assert.Equal(t, []string{"a"}, d.texts)
	e.Step(1, signal.Reading)
	assert.Equal(t, "b", d.lastText())
	e.Step(2, signal.Reading)
	assert.Equal(t, "c", d.lastText())
	e.Step(2.5, signal.Reading)
	assert.False(t, e.Complete())

	e.Step(3, signal.Reading)
	assert.True(t, e.Complete())
	assert.Equal(t, []signal.Signal{signal.NDRTDone}, out.written)
	a, ok := d.lastAlert()
	require.True(t, ok)
	assert.Equal(t, AlertComplete, a)

	// 完成后只写一次信号
	e.Step(4, signal.NDRTDone)
	assert.Len(t, out.written, 1)
}

func TestPauseAndResume(t *testing.T) {
	d, out := &recorder{}, &signals{}
	e := New("a b c", Options{RSVP: true, WPM: 60}, d, out, nil)
	e.Step(0, signal.Reading)

	e.Step(0.5, signal.TOR)
	assert.True(t, e.Paused())
	a, _ := d.lastAlert()
	assert.Equal(t, AlertTOR, a)

	e.Step(1.5, signal.TOR)
	assert.Equal(t, []string{"a"}, d.texts)

	e.Step(2, signal.Resume)
	a, _ = d.lastAlert()
	assert.Equal(t, AlertResuming, a)
	e.Step(4.9, signal.Resume)
	assert.True(t, e.Paused())

	e.Step(5, signal.Resume)
	assert.False(t, e.Paused())
	assert.Equal(t, "", d.lastText())

	e.Step(5.1, signal.Resume)
	assert.Equal(t, "b", d.lastText())
	assert.Empty(t, out.written)
}

func TestSTPTimed(t *testing.T) {
	d, out := &recorder{}, &signals{}
	e := New("aaaa bbbb cccc dddd eeee ffff", Options{WPM: 60}, d, out, nil)

	e.Step(0, signal.Reading)
	assert.Equal(t, " \n \naaaa bbbb cccc dddd eeee \nffff \n\n\n", d.lastText())
	assert.Equal(t, []float64{5, 1, 0, 0}, e.intervals)
	assert.False(t, e.Complete())

	e.Step(4.9, signal.Reading)
	assert.Len(t, d.texts, 1)

	e.Step(5, signal.Reading)
	assert.Equal(t, " \naaaa bbbb cccc dddd eeee \nffff \n\n\n\n", d.lastText())
	assert.True(t, e.Complete())
	assert.Equal(t, []signal.Signal{signal.NDRTDone}, out.written)
}

func TestSTPLongWord(t *testing.T) {
	d := &recorder{}
	e := New("abcdefghijklmnopqrstuvwxyz end", Options{WPM: 60}, d, &signals{}, nil)
	e.Step(0, signal.Reading)
	assert.Equal(t, " \n \nabcdefghijklmnopqrstuvwxyz \nend \n\n\n", d.lastText())
}

func TestSTPStream(t *testing.T) {
	d, out := &recorder{}, &signals{}
	word := ""
	e := New("one two three four five six seven eight nine ten", Options{TTS: true, WPM: 175}, d, out, func() string { return word })

	e.Step(0, signal.Reading)
	initial := " \n \none two three four five \nsix seven eight nine ten \n\n"
	assert.Equal(t, initial, d.lastText())

	for _, w := range []string{"one", "two"} {
		word = w
		e.Step(0.1, signal.Reading)
	}
	assert.Len(t, d.texts, 1)

	word = "six"
	e.Step(0.2, signal.Reading)
	assert.Equal(t, " \none two three four five \nsix seven eight nine ten \n\n\n", d.lastText())

	word = "Seven"
	e.Step(0.3, signal.Reading)
	assert.Len(t, d.texts, 2)

	word = narration.Over
	e.Step(0.4, signal.Reading)
	assert.True(t, e.Complete())
	assert.Equal(t, []signal.Signal{signal.NDRTDone}, out.written)
}

func TestRSVPStream(t *testing.T) {
	d, out := &recorder{}, &signals{}
	word := "hello"
	e := New("ignored", Options{RSVP: true, TTS: true}, d, out, func() string { return word })
	e.Step(0, signal.Reading)
	assert.Equal(t, "hello", d.lastText())
	word = narration.Over
	e.Step(0.1, signal.Reading)
	assert.True(t, e.Complete())
	assert.Equal(t, []signal.Signal{signal.NDRTDone}, out.written)
}

func TestConsole(t *testing.T) {
	var b bytes.Buffer
	c := NewConsole(&b)
	c.ShowText("a\n")
	c.ShowText("a")
	c.ShowAlert(AlertTOR)
	assert.Equal(t, "a\n!! EMERGENCY Take Manual Control\n", b.String())
}

type fixedSource signal.Signal

func (s fixedSource) Latest() (signal.Signal, bool) { return signal.Signal(s), true }

func TestRunWithFiles(t *testing.T) {
	dir := t.TempDir()
	sig := signal.NewFile(filepath.Join(dir, "SignalFile.txt"))
	stream := filepath.Join(dir, "TTSStreamFile.txt")
	require.NoError(t, Prepare(sig, stream))
	s, err := sig.Read()
	require.NoError(t, err)
	assert.Equal(t, signal.Reset, s)
	assert.Equal(t, "", FileStream(stream)())

	e := New("a b", Options{RSVP: true, WPM: 6000}, &recorder{}, sig, FileStream(stream))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, e, fixedSource(signal.Reading), time.Millisecond))
	s, err = sig.Read()
	require.NoError(t, err)
	assert.Equal(t, signal.NDRTDone, s)
}
