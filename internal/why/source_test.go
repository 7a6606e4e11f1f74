package why

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type countingManager struct {
	reg   map[int]ManagedProcess
	err   error
	calls int
}

func (m *countingManager) Registry(ctx context.Context) (map[int]ManagedProcess, error) {
	m.calls++
	return m.reg, m.err
}

type fakeContainers struct {
	info  *ContainerInfo
	err   error
	calls int
}

func (c *fakeContainers) Inspect(ctx context.Context, pid int) (*ContainerInfo, error) {
	c.calls++
	return c.info, c.err
}

type fakeServices struct {
	unit string
	err  error
}

func (s *fakeServices) Unit(ctx context.Context, pid int) (string, error) {
	return s.unit, s.err
}

func chainOf(procs ...ProcessInfo) AncestryChain {
	return AncestryChain{Procs: procs}
}

func TestClassifyNearestAncestorWinsOverDistantRuntime(t *testing.T) {
	// pm2 sits closer to the target than containerd-shim, so the process
	// manager wins even though a container runtime is also in the chain.
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 40, PPID: 1, Command: "containerd-shim"},
		ProcessInfo{PID: 50, PPID: 40, Command: "pm2"},
		ProcessInfo{PID: 60, PPID: 50, Command: "node"},
	)
	manager := &countingManager{reg: map[int]ManagedProcess{
		60: {Name: "api-server", Restarts: 2},
	}}
	cls := &Classifier{Registry: LinuxRegistry, Manager: manager}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceProcessManager {
		t.Fatalf("expected %s, got %s", SourceProcessManager, src.Type)
	}
	if src.Detail != "api-server" {
		t.Fatalf("expected registry detail %q, got %q", "api-server", src.Detail)
	}
	if manager.calls != 1 {
		t.Fatalf("expected one registry call, got %d", manager.calls)
	}
}

func TestClassifyNearestContainerRuntime(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 50, PPID: 1, Command: "pm2"},
		ProcessInfo{PID: 40, PPID: 50, Command: "containerd-shim-runc-v2"},
		ProcessInfo{PID: 60, PPID: 40, Command: "node"},
	)
	containers := &fakeContainers{info: &ContainerInfo{Name: "web", Image: "node:22"}}
	cls := &Classifier{Registry: LinuxRegistry, Containers: containers}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceContainer {
		t.Fatalf("expected %s, got %s", SourceContainer, src.Type)
	}
	if src.Detail != "web" {
		t.Fatalf("expected container name detail, got %q", src.Detail)
	}
}

func TestClassifyInitWhenNothingNearerMatches(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 60, PPID: 1, Command: "node"},
	)
	cls := &Classifier{Registry: LinuxRegistry}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceInit {
		t.Fatalf("expected %s, got %s", SourceInit, src.Type)
	}
}

func TestClassifyInitResolvesServiceUnit(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 60, PPID: 1, Command: "node"},
	)
	cls := &Classifier{
		Registry: LinuxRegistry,
		Services: &fakeServices{unit: "api.service"},
	}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceInit {
		t.Fatalf("expected %s, got %s", SourceInit, src.Type)
	}
	if src.Detail != "api.service" {
		t.Fatalf("expected unit detail, got %q", src.Detail)
	}
}

func TestClassifyInteractiveShell(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 20, PPID: 1, Command: "bash"},
		ProcessInfo{PID: 60, PPID: 20, Command: "node", HasTTY: true},
	)
	cls := &Classifier{Registry: LinuxRegistry}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceShell {
		t.Fatalf("expected %s, got %s", SourceShell, src.Type)
	}
	if src.Detail != "bash" {
		t.Fatalf("expected shell detail bash, got %q", src.Detail)
	}
}

func TestClassifyShellRequiresControllingTerminal(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 20, PPID: 1, Command: "bash"},
		ProcessInfo{PID: 60, PPID: 20, Command: "node"},
	)
	cls := &Classifier{Registry: LinuxRegistry}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceInit {
		t.Fatalf("expected fallthrough to %s without a terminal, got %s", SourceInit, src.Type)
	}
}

func TestClassifyUnknown(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 7, Command: "mystery"},
		ProcessInfo{PID: 60, PPID: 7, Command: "node"},
	)
	cls := &Classifier{Registry: LinuxRegistry}

	if src := cls.Classify(context.Background(), chain); src.Type != SourceUnknown {
		t.Fatalf("expected %s, got %s", SourceUnknown, src.Type)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 50, PPID: 1, Command: "pm2"},
		ProcessInfo{PID: 60, PPID: 50, Command: "node"},
	)
	manager := &countingManager{reg: map[int]ManagedProcess{60: {Name: "api"}}}
	cls := &Classifier{Registry: LinuxRegistry, Manager: manager}

	first := cls.Classify(context.Background(), chain)
	second := cls.Classify(context.Background(), chain)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical attributions, got %+v vs %+v", first, second)
	}
}

func TestClassifySkipsAuxiliaryCallsWhenNoNameMatches(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 20, PPID: 1, Command: "bash"},
		ProcessInfo{PID: 60, PPID: 20, Command: "node", HasTTY: true},
	)
	manager := &countingManager{}
	containers := &fakeContainers{}
	cls := &Classifier{Registry: LinuxRegistry, Manager: manager, Containers: containers}

	cls.Classify(context.Background(), chain)
	if manager.calls != 0 {
		t.Fatalf("expected no registry call for a shell-launched process, got %d", manager.calls)
	}
	if containers.calls != 0 {
		t.Fatalf("expected no container inspection, got %d", containers.calls)
	}
}

func TestClassifySameDepthTieUsesTableOrder(t *testing.T) {
	// A registry listing one name under two categories: the earlier
	// table entry (process-manager) must win.
	reg := &SupervisorRegistry{
		ProcessManagers: map[string]string{"hybridd": "hybrid"},
		Supervisors:     map[string]string{"hybridd": "hybrid"},
		InitNames:       map[string]bool{"init": true},
	}
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "init"},
		ProcessInfo{PID: 30, PPID: 1, Command: "hybridd"},
		ProcessInfo{PID: 60, PPID: 30, Command: "worker"},
	)
	cls := &Classifier{Registry: reg}

	if src := cls.Classify(context.Background(), chain); src.Type != SourceProcessManager {
		t.Fatalf("expected table order to pick %s, got %s", SourceProcessManager, src.Type)
	}
}

func TestClassifyDegradesWhenRegistryUnavailable(t *testing.T) {
	chain := chainOf(
		ProcessInfo{PID: 1, Command: "systemd"},
		ProcessInfo{PID: 50, PPID: 1, Command: "pm2"},
		ProcessInfo{PID: 60, PPID: 50, Command: "node"},
	)
	manager := &countingManager{err: errors.New("pm2 not installed")}
	cls := &Classifier{Registry: LinuxRegistry, Manager: manager}

	src := cls.Classify(context.Background(), chain)
	if src.Type != SourceProcessManager {
		t.Fatalf("expected name match to survive a dead registry, got %s", src.Type)
	}
	if src.Detail != "pm2" {
		t.Fatalf("expected fallback detail pm2, got %q", src.Detail)
	}
}
