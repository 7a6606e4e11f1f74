package why

import (
	"context"
	"fmt"
	"sync"
)

// ProcessTree is a process fact plus its children in discovery order.
type ProcessTree struct {
	ProcessInfo
	Children []*ProcessTree
}

// Snapshot caches the process facts and parent→children adjacency derived
// from one bulk listing call. A snapshot is owned by the query that
// created it and must never be shared across queries.
type Snapshot struct {
	provider Provider
	records  map[int]ProcessRecord
	children map[int][]int

	mu    sync.Mutex
	facts map[int]ProcessInfo
}

// NewSnapshot issues exactly one bulk listing call and inverts it into
// the parent→children index in a single linear pass.
func (e *Engine) NewSnapshot(ctx context.Context) (*Snapshot, error) {
	recs, err := e.Provider.ListAll(ctx)
	if err != nil {
		return nil, &ProviderUnavailableError{Op: "list", Err: err}
	}

	s := &Snapshot{
		provider: e.Provider,
		records:  make(map[int]ProcessRecord, len(recs)),
		children: make(map[int][]int),
		facts:    make(map[int]ProcessInfo),
	}
	for _, r := range recs {
		s.records[r.PID] = r
		s.children[r.PPID] = append(s.children[r.PPID], r.PID)
	}
	return s, nil
}

// Has reports whether pid was visible in the listing.
func (s *Snapshot) Has(pid int) bool {
	_, ok := s.records[pid]
	return ok
}

// Fact returns the memoized full fact for pid. Each pid is fetched from
// the provider at most once per snapshot, no matter how often it is
// referenced.
func (s *Snapshot) Fact(ctx context.Context, pid int) (ProcessInfo, error) {
	s.mu.Lock()
	if f, ok := s.facts[pid]; ok {
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	f, err := s.provider.FetchFact(ctx, pid)
	if err != nil {
		return ProcessInfo{}, err
	}

	s.mu.Lock()
	if cached, ok := s.facts[pid]; ok {
		f = cached
	} else {
		s.facts[pid] = f
	}
	s.mu.Unlock()
	return f, nil
}

// BuildTree expands the full descendant subtree of rootPID breadth-first
// over the snapshot's adjacency index. It fails with ErrNotFound only
// when rootPID was not in the listing. A child whose full-fact fetch
// fails — the process exited between the listing and the fetch — becomes
// a stub node rather than disappearing or failing the traversal.
func (s *Snapshot) BuildTree(ctx context.Context, rootPID int) (*ProcessTree, error) {
	rec, ok := s.records[rootPID]
	if !ok {
		return nil, fmt.Errorf("build tree for pid %d: %w", rootPID, ErrNotFound)
	}

	root := &ProcessTree{ProcessInfo: s.factOrStub(ctx, rec)}
	visited := map[int]bool{rootPID: true}
	queue := []*ProcessTree{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		childPIDs := s.children[node.PID]
		// Fetch this node's children in parallel; Fact serializes memo
		// writes. Attachment order stays the listing order regardless of
		// fetch completion order.
		slots := make([]*ProcessTree, len(childPIDs))
		var wg sync.WaitGroup
		for i, cpid := range childPIDs {
			if visited[cpid] {
				continue
			}
			visited[cpid] = true
			crec := s.records[cpid]
			wg.Add(1)
			go func(i int, crec ProcessRecord) {
				defer wg.Done()
				slots[i] = &ProcessTree{ProcessInfo: s.factOrStub(ctx, crec)}
			}(i, crec)
		}
		wg.Wait()

		for _, child := range slots {
			if child == nil {
				continue
			}
			node.Children = append(node.Children, child)
			queue = append(queue, child)
		}
	}
	return root, nil
}

// factOrStub degrades a failed fact fetch into a stub node carrying what
// the listing knew.
func (s *Snapshot) factOrStub(ctx context.Context, rec ProcessRecord) ProcessInfo {
	f, err := s.Fact(ctx, rec.PID)
	if err != nil {
		return ProcessInfo{
			PID:     rec.PID,
			PPID:    rec.PPID,
			Command: rec.Command,
			Stub:    true,
		}
	}
	return f
}
