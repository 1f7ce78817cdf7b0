package task

import (
	"time"

	"github.com/tsinghua-fib-lab/takeover-sim/narration"
)

const terminateTimeout = 2 * time.Second

// Narration 朗读子进程的控制接口，实现见narration.Process
type Narration interface {
	Suspend() error
	Resume() error
	Terminate(timeout time.Duration) error
}

// Starter 启动朗读子进程
type Starter func(args narration.Args) (Narration, error)

// StartProcess 以tts子命令启动朗读子进程
func StartProcess(args narration.Args) (Narration, error) {
	p, err := narration.Start(args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// narrationSupervisor 按场景规则监管朗读子进程
// 说明：所有失败只记录日志，朗读不影响场景继续执行
type narrationSupervisor struct {
	start   Starter
	args    narration.Args
	proc    Narration
	restart bool // 暂停时终止进程，恢复时从句子偏移重新启动

	streamFile string
	indexFile  string
}

func (n *narrationSupervisor) Start() {
	proc, err := n.start(n.args)
	if err != nil {
		log.Errorf("unable to start TTS process: %v", err)
		return
	}
	n.proc = proc
}

// Pause 接管请求时暂停朗读
func (n *narrationSupervisor) Pause() {
	if n.proc == nil {
		return
	}
	if !n.restart {
		if err := n.proc.Suspend(); err != nil {
			log.Errorf("unable to pause TTS process: %v", err)
		}
		return
	}
	if err := n.proc.Terminate(terminateTimeout); err != nil {
		log.Errorf("unable to terminate TTS process: %v", err)
	}
	n.proc = nil
	if err := narration.ResetStream(n.streamFile); err != nil {
		log.Errorf("reset stream file: %v", err)
	}
}

// Resume 恢复朗读
func (n *narrationSupervisor) Resume() {
	if !n.restart {
		if n.proc == nil {
			return
		}
		if err := n.proc.Resume(); err != nil {
			log.Errorf("unable to resume TTS process: %v", err)
		}
		return
	}
	offset, err := narration.ReadSentenceIndex(n.indexFile)
	if err != nil {
		log.Errorf("unable to restart TTS process: %v", err)
		return
	}
	n.args.Offset = offset
	log.Infof("restarting narration from offset %d", offset)
	n.Start()
}

// Stop 结束仍在运行的子进程
func (n *narrationSupervisor) Stop() error {
	if n.proc == nil {
		return nil
	}
	err := n.proc.Terminate(terminateTimeout)
	n.proc = nil
	return err
}
