// Package supervisor starts, signals, and reclaims long-running daemon
// processes under test. Every process it creates lives in an explicit
// active-process registry so a single shutdown hook can reap anything that
// survives its test, however the harness exits.
package supervisor

import (
	"sync"

	"go.uber.org/zap"
)

// Registry is the process-wide record of live managed processes. It exists
// solely for crash-safe cleanup, never for coordination between tests. Its
// only operations are register, unregister, and drain-and-kill-all.
type Registry struct {
	mu     sync.Mutex
	procs  map[int]*ManagedProcess
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		procs:  make(map[int]*ManagedProcess),
		logger: logger,
	}
}

// Register records a managed process.
func (r *Registry) Register(p *ManagedProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[p.PID()] = p
}

// Unregister removes a process, typically after confirmed termination.
func (r *Registry) Unregister(p *ManagedProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, p.PID())
}

// Len returns the number of registered processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// DrainKillAll force-kills every process still registered and releases
// their capture files. This is the harness's blanket safety net against
// leaked daemons; all errors are swallowed.
func (r *Registry) DrainKillAll() {
	r.mu.Lock()
	procs := make([]*ManagedProcess, 0, len(r.procs))
	for _, p := range r.procs {
		procs = append(procs, p)
	}
	r.procs = make(map[int]*ManagedProcess)
	r.mu.Unlock()

	for _, p := range procs {
		r.logger.Warn("reaping leaked daemon process", zap.Int("pid", p.PID()))
		p.forceKill()
		p.cleanupFiles()
	}
}
