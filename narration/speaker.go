package narration

import "context"

// Speaker 语音合成后端
type Speaker interface {
	// Speak 朗读words并阻塞到朗读结束，每个词开始发音时以词序号调用onWord
	Speak(ctx context.Context, words []Word, onWord func(i int)) error
	// Pause 暂停当前朗读
	Pause() error
	// Resume 继续被暂停的朗读
	Resume() error
	Close() error
}
