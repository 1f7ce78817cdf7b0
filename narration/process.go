package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	ossignal "os/signal"
	"strconv"
	"time"
)

var errExited = errors.New("narration process has exited")

// Args 朗读子进程参数
type Args struct {
	ConfigPath string // 运行器YAML配置文件
	Offset     int    // 从完整文本的该字节偏移开始朗读
	Adjustment int    // 语速调整量（词/分钟）
	Muted      bool   // 静音朗读，仍然写词流
}

// Argv 子进程命令行（tts子命令）
func (a Args) Argv() []string {
	argv := []string{"tts", "--offset", strconv.Itoa(a.Offset), "--adjustment", strconv.Itoa(a.Adjustment)}
	if a.ConfigPath != "" {
		argv = append(argv, "--config", a.ConfigPath)
	}
	if a.Muted {
		argv = append(argv, "--muted")
	}
	return argv
}

// Process 朗读子进程
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Start 以当前可执行文件的tts子命令启动朗读子进程
func Start(args Args) (*Process, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return StartCommand(exec.Command(exe, args.Argv()...))
}

// StartCommand 启动给定命令作为朗读子进程，标准输出与错误继承自父进程
func StartCommand(cmd *exec.Cmd) (*Process, error) {
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start narration process: %w", err)
	}
	p := &Process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	log.Infof("narration process started, pid=%d", cmd.Process.Pid)
	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited 子进程是否已经退出
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Suspend 暂停朗读
func (p *Process) Suspend() error {
	if pauseSignal == nil {
		return errors.ErrUnsupported
	}
	if p.Exited() {
		return errExited
	}
	return p.cmd.Process.Signal(pauseSignal)
}

// Resume 继续朗读
func (p *Process) Resume() error {
	if resumeSignal == nil {
		return errors.ErrUnsupported
	}
	if p.Exited() {
		return errExited
	}
	return p.cmd.Process.Signal(resumeSignal)
}

// Terminate 结束子进程，超时未退出则强制杀死
func (p *Process) Terminate(timeout time.Duration) error {
	if p.Exited() {
		return nil
	}
	if err := terminate(p.cmd.Process); err != nil && !p.Exited() {
		return fmt.Errorf("terminate narration process: %w", err)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
		log.Warnf("narration process %d did not exit in %v, killing", p.Pid(), timeout)
		if err := p.cmd.Process.Kill(); err != nil && !p.Exited() {
			return fmt.Errorf("kill narration process: %w", err)
		}
		<-p.done
		return nil
	}
}

// Wait 等待子进程退出
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Control 子进程收到的暂停/继续信号
type Control struct {
	ch chan os.Signal
}

// ListenControl 注册暂停/继续信号
// 说明：应在子进程启动后立即调用，否则连接朗读引擎期间收到的信号会按默认处理结束进程
func ListenControl() *Control {
	c := &Control{ch: make(chan os.Signal, 4)}
	if pauseSignal != nil {
		ossignal.Notify(c.ch, pauseSignal, resumeSignal)
	}
	return c
}

// Stop 取消注册
func (c *Control) Stop() {
	ossignal.Stop(c.ch)
}

// pending 取出开始朗读前已收到的信号，返回最终是否处于暂停
func (c *Control) pending() bool {
	paused := false
	for {
		select {
		case s := <-c.ch:
			paused = s == pauseSignal
		default:
			return paused
		}
	}
}

// Serve 在子进程中朗读，并把父进程发来的暂停/继续信号转发给speaker
// 说明：开始朗读前已收到暂停时，等到继续信号后再开始
func Serve(ctx context.Context, n *Narrator, sp Speaker, ctrl *Control) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if ctrl.pending() {
		log.Info("narration paused before start")
	wait:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case s := <-ctrl.ch:
				if s == resumeSignal {
					break wait
				}
			}
		}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ctrl.ch:
				var err error
				if s == pauseSignal {
					err = sp.Pause()
				} else {
					err = sp.Resume()
				}
				if err != nil {
					log.Errorf("%v narration: %v", s, err)
				}
			}
		}
	}()
	return n.Run(ctx, sp)
}
