// Package facts implements the OS-facing collaborator contracts consumed
// by the engine in internal/why: process fact providers, listening-socket
// enumeration, and the docker/pm2/systemd registries. All platform text
// parsing and command invocation lives here; the engine never touches
// the OS directly.
package facts

import (
	"context"
	"fmt"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/w31r4/gowhy/internal/why"
)

// Native reads process tables directly: go-ps for the cheap bulk listing
// and gopsutil for per-pid facts.
type Native struct{}

// ListAll returns every visible process in one pass over the kernel
// process table.
func (Native) ListAll(ctx context.Context) ([]why.ProcessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}
	records := make([]why.ProcessRecord, 0, len(procs))
	for _, p := range procs {
		records = append(records, why.ProcessRecord{
			PID:     p.Pid(),
			PPID:    p.PPid(),
			Command: p.Executable(),
		})
	}
	return records, nil
}

// FetchFact assembles the full fact for one pid. Individual attributes
// are best-effort: an inaccessible cwd or unreadable memory info leaves
// the field empty rather than failing the fetch.
func (Native) FetchFact(ctx context.Context, pid int) (why.ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return why.ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, why.ErrNotFound)
	}

	info := why.ProcessInfo{PID: pid}

	name, err := p.NameWithContext(ctx)
	if err != nil {
		return why.ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, why.ErrNotFound)
	}
	info.Command = name

	if ppid, err := p.PpidWithContext(ctx); err == nil {
		info.PPID = int(ppid)
	}
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil && cmdline != "" {
		info.Cmdline = cmdline
	} else {
		info.Cmdline = name
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		info.User = user
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		info.StartedAt = time.UnixMilli(created)
	}
	if cwd, err := p.CwdWithContext(ctx); err == nil {
		info.WorkingDir = cwd
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.RSS = mem.RSS
	}
	if term, err := p.TerminalWithContext(ctx); err == nil {
		info.HasTTY = term != "" && term != "?" && term != "??"
	}
	return info, nil
}

// Environ returns the target's environment variables.
func (Native) Environ(ctx context.Context, pid int) ([]string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, why.ErrNotFound)
	}
	return p.EnvironWithContext(ctx)
}
