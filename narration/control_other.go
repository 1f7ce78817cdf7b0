//go:build !unix

package narration

import "os"

// 不支持暂停与继续
var pauseSignal, resumeSignal os.Signal

func terminate(p *os.Process) error {
	return p.Kill()
}

func TerminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
