package why

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SourceType labels the supervisory mechanism responsible for a process's
// existence.
type SourceType string

const (
	SourceInit           SourceType = "init"
	SourceContainer      SourceType = "container-runtime"
	SourceProcessManager SourceType = "process-manager"
	SourceSupervisor     SourceType = "supervisor"
	SourceScheduler      SourceType = "scheduler"
	SourceShell          SourceType = "interactive-shell"
	SourceUnknown        SourceType = "unknown"
)

// Source is the classified origin of a process: exactly one label, an
// optional detail (unit name, container name, shell name), and the
// evidence that produced the classification.
type Source struct {
	Type     SourceType
	Detail   string
	Evidence []string
}

// Classifier labels an ancestry chain using a fixed, ordered rule table.
// Nesting ambiguity resolves nearest-ancestor-wins: the chain is scanned
// from the target outward and the first ancestor matching any category
// decides the label. Auxiliary registries are consulted lazily, only when
// a matching name actually appears in the chain, so the common
// shell-launched or init-launched case makes no external calls at all.
type Classifier struct {
	Registry   *SupervisorRegistry
	Manager    ProcessManager
	Containers ContainerRuntime
	Services   ServiceManager
	Log        *slog.Logger
}

// ancestorRule is one category of the per-ancestor decision table. When a
// single ancestor name matches more than one category, table order
// decides — this is the documented tie-break for same-depth conflicts.
type ancestorRule struct {
	label SourceType
	match func(reg *SupervisorRegistry, name, cmdline string) (string, bool)
}

var ancestorRules = []ancestorRule{
	{SourceProcessManager, func(reg *SupervisorRegistry, name, cmdline string) (string, bool) {
		if label, ok := reg.ProcessManagers[normalizeName(name)]; ok {
			return label, true
		}
		// pm2's daemon renames itself ("PM2 v5.x: God Daemon"); fall back
		// to a cmdline scan for manager names.
		for daemon, label := range reg.ProcessManagers {
			if strings.Contains(strings.ToLower(cmdline), daemon) {
				return label, true
			}
		}
		return "", false
	}},
	{SourceContainer, func(reg *SupervisorRegistry, name, cmdline string) (string, bool) {
		label, ok := reg.ContainerShims[normalizeName(name)]
		return label, ok
	}},
	{SourceSupervisor, func(reg *SupervisorRegistry, name, cmdline string) (string, bool) {
		label, ok := reg.Supervisors[normalizeName(name)]
		return label, ok
	}},
	{SourceScheduler, func(reg *SupervisorRegistry, name, cmdline string) (string, bool) {
		label, ok := reg.Schedulers[normalizeName(name)]
		return label, ok
	}},
}

func (c *Classifier) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Classify returns the source attribution for the chain. It never fails:
// missing auxiliary data simply fails to match and classification falls
// through to the next rule, ending at SourceUnknown.
func (c *Classifier) Classify(ctx context.Context, chain AncestryChain) Source {
	if len(chain.Procs) == 0 {
		return Source{Type: SourceUnknown}
	}

	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	target := chain.Target()

	// Nearest-ancestor-wins: walk from the target's parent outward.
	for i := len(chain.Procs) - 2; i >= 0; i-- {
		p := chain.Procs[i]
		for _, rule := range ancestorRules {
			label, ok := rule.match(reg, p.Command, p.Cmdline)
			if !ok {
				continue
			}
			src := Source{
				Type:     rule.label,
				Detail:   label,
				Evidence: []string{fmt.Sprintf("%s (pid %d) in ancestry", p.Command, p.PID)},
			}
			c.resolveDetail(ctx, &src, target.PID)
			return src
		}
	}

	// Immediate parent is a known shell and the target has a terminal.
	if len(chain.Procs) >= 2 {
		parent := chain.Procs[len(chain.Procs)-2]
		if reg.IsShell(parent.Command) && target.HasTTY {
			return Source{
				Type:   SourceShell,
				Detail: normalizeName(parent.Command),
				Evidence: []string{
					fmt.Sprintf("parent %s (pid %d) is an interactive shell", parent.Command, parent.PID),
					"controlling terminal attached",
				},
			}
		}
	}

	// Chain root is the init process and nothing nearer matched.
	root := chain.Root()
	if root.PID == rootSentinelPID && reg.IsInit(root.Command) {
		src := Source{
			Type:     SourceInit,
			Evidence: []string{fmt.Sprintf("chain roots at %s (pid 1)", root.Command)},
		}
		if c.Services != nil {
			if unit, err := c.Services.Unit(ctx, target.PID); err == nil && unit != "" {
				src.Detail = unit
				src.Evidence = append(src.Evidence, "service manager claims pid")
			} else if err != nil {
				c.logger().Debug("service manager lookup failed", "pid", target.PID, "err", err)
			}
		}
		return src
	}

	return Source{Type: SourceUnknown}
}

// resolveDetail upgrades the matched label with registry- or
// runtime-provided detail. A failed lookup leaves the name match intact:
// the classification degrades, it never aborts.
func (c *Classifier) resolveDetail(ctx context.Context, src *Source, targetPID int) {
	switch src.Type {
	case SourceProcessManager:
		if c.Manager == nil {
			return
		}
		reg, err := c.Manager.Registry(ctx)
		if err != nil {
			c.logger().Debug("process manager registry unavailable", "err", err)
			return
		}
		if entry, ok := reg[targetPID]; ok && entry.Name != "" {
			src.Detail = entry.Name
			src.Evidence = append(src.Evidence, fmt.Sprintf("registry lists pid %d as %q", targetPID, entry.Name))
		}
	case SourceContainer:
		if c.Containers == nil {
			return
		}
		info, err := c.Containers.Inspect(ctx, targetPID)
		if err != nil {
			c.logger().Debug("container inspection unavailable", "pid", targetPID, "err", err)
			return
		}
		if info != nil && info.Name != "" {
			src.Detail = info.Name
			src.Evidence = append(src.Evidence, fmt.Sprintf("runtime reports container %s (image %s)", info.Name, info.Image))
		}
	}
}
