// Package why reconstructs the causal chain behind a running process:
// its ancestry back to init, the supervisory mechanism that launched it,
// and auxiliary context such as version-control state and listening
// sockets. It answers the question "why does this process exist?" from a
// single point-in-time snapshot.
package why

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProcessInfo is a normalized, point-in-time record describing one
// process. Records are created by a Provider, never mutated afterwards,
// and discarded when the query completes.
type ProcessInfo struct {
	PID        int       // Process ID
	PPID       int       // Parent process ID (0 for the root)
	Command    string    // Short command name (e.g., "node")
	Cmdline    string    // Full command line
	User       string    // Username owning the process
	StartedAt  time.Time // Process start time (zero when unknown)
	WorkingDir string    // Current working directory ("" if inaccessible)
	RSS        uint64    // Resident set size in bytes (0 when unknown)
	HasTTY     bool      // A controlling terminal is attached
	Stub       bool      // Only PID/PPID/Command are known (process exited mid-traversal)
}

// ListeningSocket is one listening endpoint owned by a process.
type ListeningSocket struct {
	PID  int
	IP   string
	Port int
}

// ManagedProcess is one entry of a process-manager registry (e.g. a pm2
// app), keyed in the registry by the pid it currently runs as.
type ManagedProcess struct {
	Name     string
	Restarts int
}

// ContainerInfo identifies the container a process runs in.
type ContainerInfo struct {
	Name  string
	Image string
}

// Result is the complete outcome of one query.
type Result struct {
	Fact         ProcessInfo
	Ancestry     AncestryChain
	Source       Source
	Warnings     []Warning
	GitRepo      string
	GitBranch    string
	Container    *ContainerInfo
	Listening    []ListeningSocket
	RestartCount int
}

// Engine wires a fact provider and the auxiliary collaborators into the
// read-only query operations. The engine holds no per-query state: every
// call starts from a fresh snapshot of system state and discards it on
// completion, so results can never go stale across queries.
type Engine struct {
	Provider   Provider
	Sockets    SocketLister
	Manager    ProcessManager
	Containers ContainerRuntime
	Services   ServiceManager
	Registry   *SupervisorRegistry
	Log        *slog.Logger
}

// NewEngine returns an engine using the platform's default supervisor
// registry. Auxiliary collaborators are optional and may be left nil.
func NewEngine(provider Provider) *Engine {
	return &Engine{
		Provider: provider,
		Registry: DefaultRegistry(),
		Log:      slog.Default(),
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Investigate resolves everything known about one pid: its fact, ancestry,
// source attribution, auxiliary context, and warnings. A merely-degraded
// query (truncated chain, unreachable registries) still returns a result;
// only a missing target pid fails.
func (e *Engine) Investigate(ctx context.Context, pid int) (*Result, error) {
	chain, err := e.ResolveAncestry(ctx, pid)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Fact:     chain.Target(),
		Ancestry: chain,
	}

	if e.Sockets != nil {
		socks, err := e.Sockets.ListListening(ctx)
		if err != nil {
			e.logger().Debug("socket listing unavailable", "err", err)
		}
		for _, s := range socks {
			if s.PID == pid {
				res.Listening = append(res.Listening, s)
			}
		}
	}

	// Memoize the registry and container lookups so classification and
	// detail resolution share a single external call per query.
	var manager ProcessManager
	if e.Manager != nil {
		manager = &registryCache{inner: e.Manager}
	}
	var containers ContainerRuntime
	if e.Containers != nil {
		containers = &containerCache{inner: e.Containers}
	}

	cls := &Classifier{
		Registry:   e.Registry,
		Manager:    manager,
		Containers: containers,
		Services:   e.Services,
		Log:        e.logger(),
	}
	res.Source = cls.Classify(ctx, chain)

	res.RestartCount = restartCountFromChain(chain)
	if res.Source.Type == SourceProcessManager && manager != nil {
		if reg, err := manager.Registry(ctx); err == nil {
			if entry, ok := reg[pid]; ok {
				res.RestartCount = entry.Restarts
			}
		}
	}
	if res.Source.Type == SourceContainer && containers != nil {
		if info, err := containers.Inspect(ctx, pid); err == nil {
			res.Container = info
		}
	}

	if res.Fact.WorkingDir != "" {
		res.GitRepo, res.GitBranch = DetectGitContext(res.Fact.WorkingDir)
	}

	res.Warnings = EvaluateWarnings(WarningInput{
		Fact:         res.Fact,
		Source:       res.Source,
		Listening:    res.Listening,
		RestartCount: res.RestartCount,
		Now:          time.Now(),
	})
	return res, nil
}

// restartCountFromChain counts repeated adjacent command names in the
// ancestry, a cheap respawn heuristic used when no process-manager
// registry claims the target.
func restartCountFromChain(chain AncestryChain) int {
	count := 0
	last := ""
	for _, p := range chain.Procs {
		if p.Command != "" && p.Command == last {
			count++
		}
		last = p.Command
	}
	return count
}

// registryCache memoizes a single process-manager registry fetch for the
// lifetime of one query.
type registryCache struct {
	inner ProcessManager
	once  sync.Once
	reg   map[int]ManagedProcess
	err   error
}

func (r *registryCache) Registry(ctx context.Context) (map[int]ManagedProcess, error) {
	r.once.Do(func() {
		r.reg, r.err = r.inner.Registry(ctx)
	})
	return r.reg, r.err
}

// containerCache memoizes per-pid container inspections within one query.
type containerCache struct {
	inner ContainerRuntime

	mu      sync.Mutex
	results map[int]*ContainerInfo
	errs    map[int]error
}

func (c *containerCache) Inspect(ctx context.Context, pid int) (*ContainerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[int]*ContainerInfo)
		c.errs = make(map[int]error)
	}
	if info, ok := c.results[pid]; ok {
		return info, c.errs[pid]
	}
	info, err := c.inner.Inspect(ctx, pid)
	c.results[pid] = info
	c.errs[pid] = err
	return info, err
}
