// Package reading 非驾驶相关阅读任务（NDRT）的呈现逻辑
//
// 支持逐词快速呈现（RSVP）与滚动文本（STP）两种方式，节奏可以由固定的每词时间预算决定，
// 也可以跟随朗读子进程写入的词流。任务由信号文件驱动：0开始、1暂停并提示接管、2在提示3秒后继续，
// 完成时写入3。
package reading

import (
	"strings"

	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
)

const (
	CharacterLimit = 22 // 滚动文本每行字符数上限
	VisibleLines   = 4  // 滚动文本可见行数
	blankLines     = 2  // 滚动文本开头的空行
	ResumeNotice   = 3  // 接管完成后提示的持续时间（秒）
)

// SignalSource 信号来源，*signal.Watcher实现了该接口
type SignalSource interface {
	Latest() (signal.Signal, bool)
}

// SignalWriter 信号写入，*signal.File实现了该接口
type SignalWriter interface {
	Write(s signal.Signal) error
}

// Options 呈现方式
type Options struct {
	RSVP bool // true为逐词呈现，false为滚动文本
	TTS  bool // 跟随朗读词流（包括静音朗读），否则按WPM的时间预算推进
	WPM  int
}

// Engine 阅读任务状态机
type Engine struct {
	opts    Options
	words   []string
	display Display
	out     SignalWriter
	stream  func() string // 读取朗读词流

	started     bool
	paused      bool
	torComplete bool
	resumeAt    float64
	complete    bool

	first     bool
	next      int       // 下一个待呈现的词
	deadline  float64   // 下一次推进的时间
	lines     []string  // 滚动文本当前各行
	intervals []float64 // 每个生成行的停留时间预算
	interval  int       // 下一个要使用的停留时间预算
	exhausted int       // 文本耗尽后生成的行数
	matched   bool      // 词流已与当前行匹配过
}

// New 创建状态机
// 参数：text-阅读材料，display-显示接口，out-完成时写入信号3，stream-读取朗读词流（TTS为false时可为空）
func New(text string, opts Options, display Display, out SignalWriter, stream func() string) *Engine {
	if opts.WPM <= 0 {
		opts.WPM = narration.DefaultWPM
	}
	if stream == nil {
		stream = func() string { return "" }
	}
	return &Engine{
		opts:    opts,
		words:   strings.Fields(text),
		display: display,
		out:     out,
		stream:  stream,
		first:   true,
	}
}

// Complete 阅读任务是否已完成
func (e *Engine) Complete() bool {
	return e.complete
}

// Paused 是否处于接管暂停中
func (e *Engine) Paused() bool {
	return e.paused
}

// Step 处理一帧
// 参数：now-当前时间（秒），sig-当前信号
// 算法说明：
// 1. 信号0开始任务，信号1暂停任务并提示接管
// 2. 任务进行中按呈现方式推进
// 3. 暂停中收到信号2后提示3秒再继续
func (e *Engine) Step(now float64, sig signal.Signal) {
	switch sig {
	case signal.Reading:
		e.started = true
	case signal.TOR:
		if !e.paused {
			e.paused = true
			e.torComplete = false
			log.Info("reading task paused for takeover")
		}
	}
	if e.started && !e.complete && !e.paused {
		switch {
		case e.opts.RSVP && e.opts.TTS:
			e.rsvpStream()
		case e.opts.RSVP:
			e.rsvpTimed(now)
		case e.opts.TTS:
			e.stpStream()
		default:
			e.stpTimed(now)
		}
	}
	if e.paused {
		if !e.torComplete && sig == signal.Resume {
			e.torComplete = true
			e.resumeAt = now + ResumeNotice
		}
		switch {
		case !e.torComplete:
			e.display.ShowAlert(AlertTOR)
		case now < e.resumeAt:
			e.display.ShowAlert(AlertResuming)
		default:
			e.paused = false
			e.display.ShowText("")
			log.Info("reading task resumed")
		}
	} else if e.complete {
		e.display.ShowAlert(AlertComplete)
	}
}

func (e *Engine) finish() {
	if e.complete {
		return
	}
	e.complete = true
	log.Info("reading task complete")
	if err := e.out.Write(signal.NDRTDone); err != nil {
		log.Errorf("write signal file: %v", err)
	}
}

func (e *Engine) budget() float64 {
	return 60 / float64(e.opts.WPM)
}

func (e *Engine) rsvpTimed(now float64) {
	if len(e.words) == 0 {
		e.finish()
		return
	}
	if e.first || (e.deadline <= now && e.next < len(e.words)) {
		e.first = false
		e.display.ShowText(e.words[e.next])
		e.next++
		e.deadline = now + e.budget()
		return
	}
	// 最后一个词显示满时间预算后结束
	if e.next >= len(e.words) && e.deadline <= now {
		e.finish()
	}
}

func (e *Engine) rsvpStream() {
	w := e.stream()
	if w == narration.Over {
		e.finish()
		return
	}
	e.display.ShowText(w)
}

// generateLine 生成下一行，每行至少包含一个词
func (e *Engine) generateLine() string {
	var b strings.Builder
	sum, count := 0, 0
	for e.next < len(e.words) {
		w := e.words[e.next]
		sum += len([]rune(w))
		if sum >= CharacterLimit && count > 0 {
			break
		}
		b.WriteString(w)
		b.WriteString(" ")
		e.next++
		count++
	}
	b.WriteString("\n")
	e.intervals = append(e.intervals, e.budget()*float64(count))
	if e.next >= len(e.words) {
		e.exhausted++
	}
	return b.String()
}

func (e *Engine) showLines() {
	e.display.ShowText(strings.Join(e.lines, ""))
}

func (e *Engine) fillLines(n int) {
	e.lines = make([]string, 0, blankLines+n)
	for range blankLines {
		e.lines = append(e.lines, " \n")
	}
	for range n {
		e.lines = append(e.lines, e.generateLine())
	}
	e.showLines()
}

func (e *Engine) shift() {
	e.lines = append(e.lines[1:], e.generateLine())
	e.showLines()
}

func (e *Engine) stpTimed(now float64) {
	switch {
	case e.first:
		e.first = false
		e.fillLines(VisibleLines)
		e.deadline = now + e.intervals[e.interval]
		e.interval++
	case e.deadline <= now:
		e.shift()
		e.deadline = now + e.intervals[e.interval]
		e.interval++
	}
	if e.exhausted >= VisibleLines {
		e.finish()
	}
}

// stpStream 滚动文本跟随朗读词流
// 说明：词流为单个词、且不在当前行（第一行文本）中时上移一行；首次匹配之前不滚动
func (e *Engine) stpStream() {
	if e.first {
		e.first = false
		e.fillLines(VisibleLines - 1)
	} else {
		w := e.stream()
		if len(strings.Fields(w)) == 1 && w != narration.Over &&
			!strings.Contains(strings.ToLower(e.lines[blankLines]), strings.ToLower(w)) && e.matched {
			e.shift()
		} else {
			e.matched = true
		}
	}
	if e.stream() == narration.Over {
		e.finish()
	}
}
