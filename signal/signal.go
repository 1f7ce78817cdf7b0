// Package signal 实验运行器与阅读任务之间基于文件的信号协议
//
// 运行器依次写入0（开始阅读）、1（接管请求）、2（恢复阅读），阅读任务完成后写入3。
// 阅读任务启动时写入5作为复位值。
package signal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Signal 信号值
type Signal int

const (
	Reading  Signal = 0 // 开始/进行阅读任务
	TOR      Signal = 1 // 接管请求，暂停阅读任务
	Resume   Signal = 2 // 恢复自动驾驶与阅读任务
	NDRTDone Signal = 3 // 阅读任务完成
	Reset    Signal = 5 // 复位
)

func (s Signal) String() string {
	switch s {
	case Reading:
		return "reading"
	case TOR:
		return "tor"
	case Resume:
		return "resume"
	case NDRTDone:
		return "ndrt-done"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Parse 解析信号文件内容
func Parse(content string) (Signal, error) {
	v, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return 0, fmt.Errorf("invalid signal %q: %w", content, err)
	}
	return Signal(v), nil
}

// File 信号文件
type File struct {
	path string
}

// NewFile 创建信号文件句柄（不访问文件系统）
func NewFile(path string) *File {
	return &File{path: path}
}

// Path 信号文件路径
func (f *File) Path() string {
	return f.path
}

// Write 写入信号
// 说明：先写临时文件再重命名，读者不会看到半写的内容
func (f *File) Write(s Signal) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".signal-*")
	if err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	if _, err := tmp.WriteString(strconv.Itoa(int(s))); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write signal file: %w", err)
	}
	log.Debugf("wrote signal %v to %s", s, f.path)
	return nil
}

// Read 读取信号
func (f *File) Read() (Signal, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return 0, fmt.Errorf("read signal file: %w", err)
	}
	return Parse(string(b))
}

