package narration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Word 文本中的一个词
type Word struct {
	Text     string
	Start    int // 在文本中的字节偏移
	Sentence int // 所在句子起始的字节偏移
}

// Tokenize 按空白切分文本
// 功能：得到每个词的字节偏移与所在句子的起始偏移
// 说明：以.!?结尾（忽略其后的引号与右括号）的词结束一个句子
func Tokenize(text string) []Word {
	words := make([]Word, 0)
	sentence, newSentence := 0, true
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		j := i
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if newSentence {
			sentence, newSentence = i, false
		}
		w := text[i:j]
		words = append(words, Word{Text: w, Start: i, Sentence: sentence})
		if endsSentence(w) {
			newSentence = true
		}
		i = j
	}
	return words
}

func endsSentence(w string) bool {
	w = strings.TrimRight(w, `"')]”’`)
	return strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?")
}
