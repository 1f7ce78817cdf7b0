package input

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// settingField 被试设置文件中的一个定长字段
type settingField struct {
	key   string
	width int
}

// 字段顺序即解析顺序，值从"KEY: "之后开始，宽度固定
var settingFields = []settingField{
	{"PARTICIPANT_ID", 3},
	{"TRIAL_NO", 1},
	{"IGNORE", 1},
	{"RSVP", 1},
	{"TTS", 1},
	{"WPM", 3},
	{"TEXTFILE", 5},
}

// Settings 被试设置
// 功能：保存config.txt中读出的原始字符串值
// 说明：值保持原样（包括可能的空格），CSV输出直接使用原始值
type Settings struct {
	ParticipantID string
	TrialNo       string
	Ignore        string
	RSVP          string
	TTS           string
	WPM           string
	TextFile      string
}

// ParseSettings 按定长偏移解析被试设置
// 功能：对每个键，取其首次出现位置之后第2个字符起的定宽子串
// 参数：content-config.txt的全部内容
// 返回：解析出的设置与错误信息
// 说明：键缺失或值被截断都视为错误
func ParseSettings(content string) (Settings, error) {
	values := make(map[string]string, len(settingFields))
	for _, f := range settingFields {
		pos := strings.Index(content, f.key)
		if pos < 0 {
			return Settings{}, fmt.Errorf("settings: missing key %s", f.key)
		}
		start := pos + len(f.key) + 2
		end := start + f.width
		if end > len(content) {
			return Settings{}, fmt.Errorf("settings: value of %s is truncated", f.key)
		}
		values[f.key] = content[start:end]
	}
	return Settings{
		ParticipantID: values["PARTICIPANT_ID"],
		TrialNo:       values["TRIAL_NO"],
		Ignore:        values["IGNORE"],
		RSVP:          values["RSVP"],
		TTS:           values["TTS"],
		WPM:           values["WPM"],
		TextFile:      values["TEXTFILE"],
	}, nil
}

// LoadSettings 读取并解析被试设置文件
func LoadSettings(path string) (Settings, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	return ParseSettings(string(file))
}

// Recorded 是否需要记录绩效数据（IGNORE为"0"）
func (s Settings) Recorded() bool {
	return s.Ignore == "0"
}

// RSVPEnabled 是否使用逐词呈现
func (s Settings) RSVPEnabled() bool {
	return strings.TrimSpace(s.RSVP) == "1"
}

// TTSEnabled 是否开启语音朗读
func (s Settings) TTSEnabled() bool {
	return strings.TrimSpace(s.TTS) == "1"
}

// WordsPerMinute 阅读/朗读速度
func (s Settings) WordsPerMinute() (int, error) {
	wpm, err := strconv.Atoi(strings.TrimSpace(s.WPM))
	if err != nil {
		return 0, fmt.Errorf("settings: invalid WPM %q: %w", s.WPM, err)
	}
	if wpm <= 0 {
		return 0, fmt.Errorf("settings: WPM must be positive, got %d", wpm)
	}
	return wpm, nil
}

// Header CSV行的前4列：被试编号、RSVP、TTS、试次
func (s Settings) Header() []string {
	return []string{s.ParticipantID, s.RSVP, s.TTS, s.TrialNo}
}

func (s Settings) String() string {
	return fmt.Sprintf("Settings{PARTICIPANT_ID=%s, TRIAL_NO=%s, IGNORE=%s, RSVP=%s, TTS=%s, WPM=%s, TEXTFILE=%s}",
		s.ParticipantID, s.TrialNo, s.Ignore, s.RSVP, s.TTS, s.WPM, s.TextFile)
}
