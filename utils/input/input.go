package input

import (
	"fmt"
	"os"

	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

// Input 一次试次的输入数据
// 功能：保存被试设置与阅读材料
type Input struct {
	Settings Settings
	Text     string // 阅读材料全文
	WPM      int
}

// Init 加载输入
// 功能：读取config.txt，确保数据目录存在，并加载阅读材料
// 参数：rc-运行时配置
// 返回：输入数据与错误信息
// 说明：阅读材料读取失败不致命（只影响朗读），此时Text为空并记录错误
func Init(rc *config.RuntimeConfig) (*Input, error) {
	settings, err := LoadSettings(rc.SettingsFile)
	if err != nil {
		return nil, err
	}
	log.Infof("extracted settings: %v", settings)
	wpm, err := settings.WordsPerMinute()
	if err != nil {
		return nil, err
	}
	res := &Input{Settings: settings, WPM: wpm}
	if settings.Recorded() {
		preCheckDir(rc.DataDir)
	}
	text, err := LoadText(rc.TextFile(settings.TextFile))
	if err != nil {
		log.Errorf("error opening the reading comprehension text file: %v", err)
	} else {
		res.Text = text
	}
	return res, nil
}

// LoadText 读取阅读材料
func LoadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return string(b), nil
}

// preCheckDir 检查数据目录，不存在则创建
func preCheckDir(dir string) bool {
	if stat, err := os.Stat(dir); err == nil {
		if !stat.IsDir() {
			log.Errorf("data dir %s is a file", dir)
			return false
		}
		return true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorf("failed to create data dir %s: %v", dir, err)
		return false
	}
	log.Infof("created data dir %s", dir)
	return true
}
