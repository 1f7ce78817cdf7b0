//go:build unix

package narration

import (
	"os"
	"syscall"
)

var (
	pauseSignal  os.Signal = syscall.SIGUSR1
	resumeSignal os.Signal = syscall.SIGUSR2
)

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// TerminationSignals 朗读子进程应当响应的退出信号
func TerminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
