package narration

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Over 朗读结束时写入流文件的标记
const Over = "TTSOver"

// Narrator 朗读状态
// 功能：把正在朗读的词写入流文件，把当前句子的起始偏移写入句子偏移文件
// 说明：偏移是相对完整文本的字节偏移（base+句内偏移），中断后可以从该偏移重新开始朗读
type Narrator struct {
	stream string
	index  string
	base   int
	words  []Word

	mtx      sync.Mutex
	current  int // 当前词序号，-1表示尚未开始
	sentence int // 最近一次写入的句子偏移（相对base）
}

// NewNarrator 创建朗读状态
// 参数：stream-流文件，index-句子偏移文件，text-待朗读文本，base-text在完整文本中的起始偏移
func NewNarrator(stream, index, text string, base int) *Narrator {
	return &Narrator{
		stream:   stream,
		index:    index,
		base:     base,
		words:    Tokenize(text),
		current:  -1,
		sentence: -1,
	}
}

func (n *Narrator) Words() []Word {
	return n.words
}

// spoken 当前正在朗读的词
func (n *Narrator) spoken() (Word, bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.current < 0 {
		return Word{}, false
	}
	return n.words[n.current], true
}

// OnWord 词开始发音时的回调
func (n *Narrator) OnWord(i int) {
	if i < 0 || i >= len(n.words) {
		log.Warnf("word index %d out of range [0, %d)", i, len(n.words))
		return
	}
	w := n.words[i]
	n.mtx.Lock()
	n.current = i
	newSentence := w.Sentence != n.sentence
	n.sentence = w.Sentence
	n.mtx.Unlock()

	if newSentence {
		if err := writeFile(n.index, strconv.Itoa(n.base+w.Sentence)); err != nil {
			log.Errorf("write sentence index file: %v", err)
		}
	}
	if err := writeFile(n.stream, w.Text); err != nil {
		log.Errorf("write stream file: %v", err)
	}
}

// Finish 写入结束标记
func (n *Narrator) Finish() error {
	if err := writeFile(n.stream, Over); err != nil {
		return fmt.Errorf("write stream file: %w", err)
	}
	return nil
}

// Run 朗读全部文本，正常结束后写入结束标记
// 说明：被取消或出错时不写结束标记
func (n *Narrator) Run(ctx context.Context, sp Speaker) error {
	if len(n.words) == 0 {
		return n.Finish()
	}
	n.mtx.Lock()
	n.sentence = n.words[0].Sentence
	n.mtx.Unlock()
	if err := writeFile(n.index, strconv.Itoa(n.base+n.words[0].Sentence)); err != nil {
		log.Errorf("write sentence index file: %v", err)
	}
	log.Infof("narrating %d words from offset %d", len(n.words), n.base)
	if err := sp.Speak(ctx, n.words, n.OnWord); err != nil {
		return err
	}
	return n.Finish()
}

// ResetStream 清空流文件
func ResetStream(path string) error {
	return writeFile(path, "")
}

// ReadSentenceIndex 读取句子偏移文件
func ReadSentenceIndex(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read sentence index file: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("invalid sentence index %q: %w", string(b), err)
	}
	return v, nil
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
