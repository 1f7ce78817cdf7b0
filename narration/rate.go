package narration

import (
	"math"

	"github.com/samber/lo"
)

// 语速映射的锚点（词/分钟）：speech-dispatcher的rate取值-100、0、100分别对应以下语速
const (
	MinWPM     = 80
	DefaultWPM = 175
	MaxWPM     = 390
)

// Rate 把语速（词/分钟）映射为speech-dispatcher的rate参数
// 说明：分段线性，超出[MinWPM, MaxWPM]的部分截断到±100
func Rate(wpm int) int {
	var r float64
	if wpm >= DefaultWPM {
		r = float64(wpm-DefaultWPM) * 100 / (MaxWPM - DefaultWPM)
	} else {
		r = float64(wpm-DefaultWPM) * 100 / (DefaultWPM - MinWPM)
	}
	return lo.Clamp(int(math.Round(r)), -100, 100)
}

// Volume 把[0, 1]音量映射为speech-dispatcher的volume参数[-100, 100]
func Volume(v float64) int {
	return lo.Clamp(int(math.Round(v*200-100)), -100, 100)
}

// Speed 朗读语速：被试设置的WPM减去场景的语速调整量
func Speed(wpm, adjustment int) int {
	return wpm - adjustment
}
