package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/heliod-project/heliconf/internal/domain"
)

// UnixProcessManager implements domain.ProcessManager with gopsutil for
// liveness and x/sys/unix for process-group signal delivery.
type UnixProcessManager struct{}

// NewProcessManager creates a process manager.
func NewProcessManager() *UnixProcessManager {
	return &UnixProcessManager{}
}

// IsRunning checks if a PID exists and is running.
func (pm *UnixProcessManager) IsRunning(pid int) bool {
	// On Unix, FindProcess always succeeds; check with signal 0.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Children returns PIDs of live descendants of pid, recursively. Used to
// detect helpers a daemon spawned that would outlive a pid-only kill.
func (pm *UnixProcessManager) Children(pid int) ([]int, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	kids, err := p.Children()
	if err != nil {
		// gopsutil reports an error when there are no children.
		return nil, nil
	}
	var pids []int
	for _, k := range kids {
		pids = append(pids, int(k.Pid))
		sub, err := pm.Children(int(k.Pid))
		if err == nil {
			pids = append(pids, sub...)
		}
	}
	return pids, nil
}

// SignalGroup delivers sig to the whole process group of pid. Daemons may
// spawn detached helper children; signaling only the single pid risks
// orphaning them, so termination always targets the group.
func (pm *UnixProcessManager) SignalGroup(pid int, sig os.Signal) error {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return err
	}
	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGKILL
	}
	return unix.Kill(-pgid, s)
}

// Ensure UnixProcessManager implements domain.ProcessManager.
var _ domain.ProcessManager = (*UnixProcessManager)(nil)
