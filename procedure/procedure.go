// Package procedure 生成被试的试次编排
package procedure

import (
	"fmt"
	"os"
	"strings"

	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

const (
	FileName       = "procedure.txt"
	TrialsPerCell  = 2 // 每种音频辅助×呈现方式组合的试次数
	textFileCount  = 8
	preStudy       = "Pre-study questionnaire"
	comprehension  = "Comprehension Test"
	blockQuestions = "NASA-TLX\nUEQ"
)

var (
	Scenarios  = []string{"EW", "LVAD", "CSA", "ACR"} // 接管场景
	Techniques = []string{"STP", "RSVP"}             // 文本呈现方式
	Audio      = []string{"NAA", "AA"}               // 无/有音频辅助
)

// TextFiles 阅读材料文件名
func TextFiles() []string {
	files := make([]string, textFileCount)
	for i := range files {
		files[i] = fmt.Sprintf("TextFile%d.txt", i+1)
	}
	return files
}

// Trial 一个试次
type Trial struct {
	No        int
	Audio     string
	Technique string
	Scenario  string
	TextFile  string
}

func (t Trial) String() string {
	return fmt.Sprintf("Trial No:%d, Audio assistance:%s, Text Presentation Technique:%s, TOR Scenario:%s, Text File:%s",
		t.No, t.Audio, t.Technique, t.Scenario, t.TextFile)
}

// Block 同一呈现方式下连续的试次，结束后填写NASA-TLX与UEQ问卷
type Block struct {
	Trials []Trial
}

// Plan 被试的完整试次编排
type Plan struct {
	Seed   uint64
	Blocks []Block
}

// Generate 生成试次编排
// 算法说明：
// 1. 打乱场景、呈现方式、音频辅助与阅读材料的顺序
// 2. 按音频辅助×呈现方式依次生成区块，每个区块TrialsPerCell个试次
// 3. 第n个试次使用第(n-1)%4个场景与第n个阅读材料
// 4. 每完成一种音频辅助后重新打乱场景与呈现方式
func Generate(e *randengine.Engine) Plan {
	scenarios := append([]string(nil), Scenarios...)
	techniques := append([]string(nil), Techniques...)
	audio := append([]string(nil), Audio...)
	texts := TextFiles()
	randengine.Shuffle(e, scenarios)
	randengine.Shuffle(e, techniques)
	randengine.Shuffle(e, audio)
	randengine.Shuffle(e, texts)

	plan := Plan{Seed: e.Seed()}
	no := 1
	for _, a := range audio {
		for _, tech := range techniques {
			block := Block{Trials: make([]Trial, 0, TrialsPerCell)}
			for range TrialsPerCell {
				block.Trials = append(block.Trials, Trial{
					No:        no,
					Audio:     a,
					Technique: tech,
					Scenario:  scenarios[(no-1)%len(scenarios)],
					TextFile:  texts[(no-1)%len(texts)],
				})
				no++
			}
			plan.Blocks = append(plan.Blocks, block)
		}
		randengine.Shuffle(e, scenarios)
		randengine.Shuffle(e, techniques)
	}
	return plan
}

// Trials 按顺序返回全部试次
func (p Plan) Trials() []Trial {
	res := make([]Trial, 0)
	for _, b := range p.Blocks {
		res = append(res, b.Trials...)
	}
	return res
}

// String 生成procedure.txt的内容
func (p Plan) String() string {
	var b strings.Builder
	b.WriteString(preStudy + "\n")
	for _, block := range p.Blocks {
		for _, t := range block.Trials {
			b.WriteString(t.String())
			b.WriteString("\n" + comprehension + "\n")
		}
		b.WriteString(blockQuestions + "\n")
	}
	return b.String()
}

// Write 把编排写入文件
func Write(path string, p Plan) error {
	if err := os.WriteFile(path, []byte(p.String()), 0o644); err != nil {
		return fmt.Errorf("write procedure: %w", err)
	}
	log.Infof("wrote %d trials to %s (seed=%d)", len(p.Trials()), path, p.Seed)
	return nil
}
