package why

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// maxAncestryDepth caps the parent walk as a final safety stop. Real
// process forests are far shallower.
const maxAncestryDepth = 50

// rootSentinelPID is the system init process.
const rootSentinelPID = 1

// AncestryChain is the ordered sequence of process facts from the root to
// the target (root first, target last). Chains are never empty on success.
type AncestryChain struct {
	Procs []ProcessInfo
	// Truncated is set when the walk stopped before reaching the root:
	// an unreachable parent, a repeated pid, or the depth cap. A
	// truncated chain is a chain property, not an error.
	Truncated bool
}

// Target returns the investigated process (last entry).
func (c AncestryChain) Target() ProcessInfo {
	return c.Procs[len(c.Procs)-1]
}

// Root returns the first entry of the chain.
func (c AncestryChain) Root() ProcessInfo {
	return c.Procs[0]
}

// ResolveAncestry walks parent links from pid to the root using
// independent per-pid fetches (no bulk listing on this path) and returns
// the chain in root-to-target order. Only the initial pid produces an
// error; anything that goes wrong further up marks the chain truncated.
func (e *Engine) ResolveAncestry(ctx context.Context, pid int) (AncestryChain, error) {
	target, err := e.Provider.FetchFact(ctx, pid)
	if err != nil {
		return AncestryChain{}, fmt.Errorf("resolve ancestry for pid %d: %w", pid, err)
	}

	chain := AncestryChain{Procs: []ProcessInfo{target}}
	seen := map[int]bool{pid: true}
	current := target

	for depth := 1; ; depth++ {
		if current.PID == rootSentinelPID || current.PPID <= 0 {
			break
		}
		if depth >= maxAncestryDepth {
			chain.Truncated = true
			break
		}
		// Cycle guard: a reported parent we have already visited means
		// the provider's forest invariant is broken. Stop, never loop.
		if seen[current.PPID] {
			chain.Truncated = true
			break
		}

		parent, err := e.Provider.FetchFact(ctx, current.PPID)
		if err != nil {
			chain.Truncated = true
			break
		}
		seen[parent.PID] = true
		chain.Procs = append(chain.Procs, parent)
		current = parent
	}

	reverseChain(chain.Procs)
	return chain, nil
}

// reverseChain reverses the slice in place (the walk collects
// target-to-root, callers want root-to-target).
func reverseChain(procs []ProcessInfo) {
	for i, j := 0, len(procs)-1; i < j; i, j = i+1, j-1 {
		procs[i], procs[j] = procs[j], procs[i]
	}
}

// FormatChain renders a chain as a single readable line, e.g.
// "systemd (pid 1) → pm2 (pid 5034) → node (pid 14233)".
func FormatChain(chain AncestryChain) string {
	if len(chain.Procs) == 0 {
		return "(unknown)"
	}
	var b strings.Builder
	if chain.Truncated {
		b.WriteString("… → ")
	}
	for i, p := range chain.Procs {
		if i > 0 {
			b.WriteString(" → ")
		}
		b.WriteString(p.Command)
		b.WriteString(" (pid ")
		b.WriteString(strconv.Itoa(p.PID))
		b.WriteString(")")
	}
	return b.String()
}
