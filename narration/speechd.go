package narration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	speechd "github.com/ilyapashuk/go-speechd"
	"github.com/ilyapashuk/go-speechd/ssip"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

// speech-dispatcher的SSML索引标记事件
const eventIndexMark = 700

var errCanceled = errors.New("speech canceled")

var markEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

// SSML 为每个词前插入以词序号命名的索引标记
func SSML(words []Word) string {
	var b strings.Builder
	b.WriteString("<speak>")
	for i, w := range words {
		fmt.Fprintf(&b, `<mark name="%d"/>%s `, i, markEscaper.Replace(w.Text))
	}
	b.WriteString("</speak>")
	return b.String()
}

// SpeechdSpeaker 基于speech-dispatcher的Speaker
// 说明：通过SSML索引标记事件得到逐词回调
type SpeechdSpeaker struct {
	session *speechd.SpeechdSession

	mtx    sync.Mutex
	onWord func(i int)
}

// NewSpeechdSpeaker 连接speech-dispatcher并完成会话设置
// 参数：c-朗读配置，wpm-朗读语速（词/分钟）
func NewSpeechdSpeaker(c config.Narration, wpm int) (*SpeechdSpeaker, error) {
	addr := speechd.GetSpeechdAddress()
	if c.Speechd != "" {
		addr = speechd.SpeechdAddress(c.Speechd)
	}
	if !strings.HasPrefix(string(addr), "unix_socket") && !strings.HasPrefix(string(addr), "inet_socket") {
		return nil, fmt.Errorf("invalid speechd address %q", addr)
	}
	session, err := speechd.NewSession(addr, c.Autospawn)
	if err != nil {
		return nil, fmt.Errorf("connect speechd %s: %w", addr, err)
	}
	s := &SpeechdSpeaker{session: session}
	session.RegisterEventHandler(s.handle)

	type step struct {
		name string
		fn   func() error
	}
	steps := []step{
		{"client name", func() error { return session.SetClientName("takeover", "takeover-sim", "narration") }},
		{"notifications", func() error { return session.SetEventNotifications(true) }},
		{"ssml mode", func() error { return session.Set("ssml_mode", "on") }},
		{"rate", func() error { return session.SetRate(Rate(wpm)) }},
		{"volume", func() error { return session.SetVolume(Volume(c.Volume)) }},
	}
	if c.Language != "" {
		steps = append(steps, step{"language", func() error { return session.SetLanguage(c.Language) }})
	}
	if c.Voice != "" {
		steps = append(steps, step{"voice", func() error { return session.SetSynthVoice(c.Voice) }})
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			session.Close()
			return nil, fmt.Errorf("speechd set %s: %w", st.name, err)
		}
	}
	log.Infof("speechd session ready at %s (wpm=%d, rate=%d)", addr, wpm, Rate(wpm))
	return s, nil
}

// handle 在会话的读协程中被调用
func (s *SpeechdSpeaker) handle(m ssip.SsipMessage) bool {
	if m.Code != eventIndexMark || len(m.Result) < 3 {
		return true
	}
	i, err := strconv.Atoi(strings.TrimSpace(m.Result[2]))
	if err != nil {
		log.Warnf("unexpected index mark %q", m.Result[2])
		return true
	}
	s.mtx.Lock()
	onWord := s.onWord
	s.mtx.Unlock()
	if onWord != nil {
		onWord(i)
	}
	return true
}

func (s *SpeechdSpeaker) Speak(ctx context.Context, words []Word, onWord func(i int)) error {
	s.mtx.Lock()
	s.onWord = onWord
	s.mtx.Unlock()
	defer func() {
		s.mtx.Lock()
		s.onWord = nil
		s.mtx.Unlock()
	}()

	msg, err := s.session.Speak(SSML(words))
	if err != nil {
		return fmt.Errorf("speechd speak: %w", err)
	}
	done := make(chan bool, 1)
	go func() { done <- msg.Wait() }()
	select {
	case spoken := <-done:
		if !spoken {
			return errCanceled
		}
		return nil
	case <-ctx.Done():
		s.session.Cancel()
		return ctx.Err()
	}
}

func (s *SpeechdSpeaker) command(cmd string) error {
	res, err := s.session.Command(cmd)
	if err != nil {
		return err
	}
	if res.Code < 200 || res.Code > 299 {
		return fmt.Errorf("speechd %s: %d %v", cmd, res.Code, res.Result)
	}
	return nil
}

func (s *SpeechdSpeaker) Pause() error {
	return s.command("pause self")
}

func (s *SpeechdSpeaker) Resume() error {
	return s.command("resume self")
}

func (s *SpeechdSpeaker) Close() error {
	s.session.Close()
	return nil
}
