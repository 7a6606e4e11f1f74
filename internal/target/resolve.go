// Package target turns user-supplied selectors (pid, name, port) into
// concrete processes to investigate.
package target

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/w31r4/gowhy/internal/why"
)

// Resolver locates candidate processes for a query.
type Resolver struct {
	Provider why.Provider
	Sockets  why.SocketLister

	// SelfPID is excluded from name matches so a query never finds the
	// tool itself.
	SelfPID int
}

// ByPID resolves a single pid.
func (r *Resolver) ByPID(ctx context.Context, pid int) (why.ProcessInfo, error) {
	return r.Provider.FetchFact(ctx, pid)
}

// ByName finds processes by command name, fuzzily unless exact is set.
// Candidates come back ordered best match first.
func (r *Resolver) ByName(ctx context.Context, name string, exact bool) ([]why.ProcessInfo, error) {
	records, err := r.Provider.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int
	if exact {
		for _, rec := range records {
			if rec.PID != r.SelfPID && strings.EqualFold(rec.Command, name) {
				pids = append(pids, rec.PID)
			}
		}
	} else {
		names := make([]string, len(records))
		for i, rec := range records {
			names[i] = rec.Command
		}
		for _, match := range fuzzy.Find(name, names) {
			if pid := records[match.Index].PID; pid != r.SelfPID {
				pids = append(pids, pid)
			}
		}
	}
	return r.fetchAll(ctx, pids)
}

// ByPort finds the processes listening on a TCP port.
func (r *Resolver) ByPort(ctx context.Context, port int) ([]why.ProcessInfo, error) {
	if r.Sockets == nil {
		return nil, fmt.Errorf("socket enumeration unavailable")
	}
	socks, err := r.Sockets.ListListening(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sockets: %w", err)
	}

	seen := make(map[int]bool)
	var pids []int
	for _, s := range socks {
		if s.Port == port && s.PID > 0 && !seen[s.PID] {
			seen[s.PID] = true
			pids = append(pids, s.PID)
		}
	}
	sort.Ints(pids)
	return r.fetchAll(ctx, pids)
}

// fetchAll resolves facts for the candidate pids, skipping any that
// exited between listing and fetch.
func (r *Resolver) fetchAll(ctx context.Context, pids []int) ([]why.ProcessInfo, error) {
	procs := make([]why.ProcessInfo, 0, len(pids))
	for _, pid := range pids {
		fact, err := r.Provider.FetchFact(ctx, pid)
		if err != nil {
			continue
		}
		procs = append(procs, fact)
	}
	return procs, nil
}
