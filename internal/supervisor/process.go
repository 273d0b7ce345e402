package supervisor

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/heliod-project/heliconf/internal/domain"
)

// ManagedProcess is one supervised daemon instance. It is owned exclusively
// by the supervisor that created it and stays in the active-process
// registry until its termination is confirmed.
//
// Stderr is redirected to a seekable temp file, never a pipe: a pipe
// deadlocks the daemon once it emits more than the OS buffer while nobody
// drains it, and a file can be inspected at any time.
type ManagedProcess struct {
	cmd        *exec.Cmd
	pid        int
	pgid       int
	stderrPath string
	stderrFile *os.File

	done     chan struct{} // closed when Wait returns
	exitCode int

	mu    sync.Mutex
	state domain.ProcState
}

// spawn launches the binary detached into its own process group with
// stderr captured to a temp file. The caller registers the process.
func spawn(binary string, args []string, env []string) (*ManagedProcess, error) {
	stderrFile, err := os.CreateTemp("", "heliconf-daemon-stderr-")
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = env
	cmd.Stdout = nil // discard
	cmd.Stderr = stderrFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stderrFile.Close()
		os.Remove(stderrFile.Name())
		return nil, err
	}

	p := &ManagedProcess{
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		stderrPath: stderrFile.Name(),
		stderrFile: stderrFile,
		done:       make(chan struct{}),
		state:      domain.ProcStarting,
	}
	if pgid, err := unix.Getpgid(p.pid); err == nil {
		p.pgid = pgid
	} else {
		p.pgid = p.pid
	}

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.state != domain.ProcKilled {
			p.state = domain.ProcExited
		}
		p.mu.Unlock()
		if err == nil {
			p.exitCode = 0
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			p.exitCode = exitErr.ExitCode()
		} else {
			p.exitCode = -1
		}
		close(p.done)
	}()

	return p, nil
}

// PID returns the daemon's process id.
func (p *ManagedProcess) PID() int { return p.pid }

// PGID returns the daemon's process-group id.
func (p *ManagedProcess) PGID() int { return p.pgid }

// State returns the current lifecycle state.
func (p *ManagedProcess) State() domain.ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ManagedProcess) setState(s domain.ProcState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Alive reports whether the process has not yet been reaped.
func (p *ManagedProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code once the process has been reaped.
func (p *ManagedProcess) ExitCode() int {
	<-p.done
	return p.exitCode
}

// WaitTimeout blocks until the process exits or d elapses. Reports whether
// the process exited in time.
func (p *ManagedProcess) WaitTimeout(d time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(d):
		return false
	}
}

// Signal delivers sig to the process itself (not the group). Termination
// checks target the single pid; escalation targets the group.
func (p *ManagedProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

// SignalGroup delivers sig to the whole process group.
func (p *ManagedProcess) SignalGroup(sig syscall.Signal) error {
	return unix.Kill(-p.pgid, sig)
}

// Output returns everything the daemon has written to stderr so far. The
// capture file is read from the start; safe while the daemon is running.
func (p *ManagedProcess) Output() string {
	raw, err := os.ReadFile(p.stderrPath)
	if err != nil {
		return ""
	}
	return string(raw)
}

// OutputTail returns the last n non-empty-trimmed lines of captured output,
// used as failure diagnostics.
func (p *ManagedProcess) OutputTail(n int) string {
	lines := strings.Split(strings.TrimSpace(p.Output()), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// forceKill SIGKILLs the process group and waits briefly for the reap.
func (p *ManagedProcess) forceKill() {
	_ = p.SignalGroup(syscall.SIGKILL)
	p.setState(domain.ProcKilled)
	p.WaitTimeout(2 * time.Second)
}

// cleanupFiles closes and removes the stderr capture file. Best effort;
// called on every termination path.
func (p *ManagedProcess) cleanupFiles() {
	if p.stderrFile != nil {
		_ = p.stderrFile.Close()
	}
	if p.stderrPath != "" {
		_ = os.Remove(p.stderrPath)
	}
}
