package reading

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Alert 提示类型
type Alert int

const (
	AlertTOR      Alert = iota // 接管请求，伴随提示音
	AlertResuming              // 自动驾驶已恢复，即将继续阅读
	AlertComplete              // 阅读任务完成
)

// 提示文本
var alertTexts = map[Alert]string{
	AlertTOR:      "EMERGENCY\nTake Manual Control",
	AlertResuming: "Autopilot Enabled\nResuming Reading Task",
	AlertComplete: "Reading Task\nis complete",
}

func (a Alert) String() string {
	return alertTexts[a]
}

// Display 阅读任务的显示接口
type Display interface {
	// ShowText 显示阅读内容（RSVP为单个词，滚动文本为多行）
	ShowText(text string)
	// ShowAlert 隐藏阅读内容并显示提示
	ShowAlert(a Alert)
}

// Console 把显示内容输出到终端，只在内容变化时输出
type Console struct {
	w    io.Writer
	mtx  sync.Mutex
	last string
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) show(s string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if s == c.last {
		return
	}
	c.last = s
	fmt.Fprintln(c.w, s)
}

func (c *Console) ShowText(text string) {
	c.show(strings.TrimRight(text, "\n"))
}

func (c *Console) ShowAlert(a Alert) {
	c.show("!! " + strings.ReplaceAll(a.String(), "\n", " "))
}
