package why

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports that no fact exists for the requested pid. It is
// distinct from ProviderUnavailableError: the lookup worked and found
// nothing.
var ErrNotFound = errors.New("process not found")

// ProviderUnavailableError reports that an external collaborator call
// failed entirely (no permission to enumerate processes, missing utility),
// distinguishing "couldn't look" from "nothing found".
type ProviderUnavailableError struct {
	Op  string
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Op, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ProcessRecord is one row of the bulk process listing.
type ProcessRecord struct {
	PID     int
	PPID    int
	Command string
}

// Provider supplies normalized process facts. Implementations must report
// a forest: a record's PPID either names another visible process or is 0.
// The engine treats a reported cycle as a fatal inconsistency and stops
// walking rather than looping.
type Provider interface {
	// FetchFact returns the full fact for one pid, or an error wrapping
	// ErrNotFound when the process does not exist.
	FetchFact(ctx context.Context, pid int) (ProcessInfo, error)
	// ListAll returns every currently visible process in one bulk call.
	ListAll(ctx context.Context) ([]ProcessRecord, error)
}

// EnvironReader optionally exposes a process's environment. Providers
// that cannot read it simply don't implement the interface.
type EnvironReader interface {
	Environ(ctx context.Context, pid int) ([]string, error)
}

// SocketLister enumerates listening sockets and their owning pids.
type SocketLister interface {
	ListListening(ctx context.Context) ([]ListeningSocket, error)
}

// ProcessManager exposes a process manager's registry (e.g. pm2),
// mapping pids to managed entries.
type ProcessManager interface {
	Registry(ctx context.Context) (map[int]ManagedProcess, error)
}

// ContainerRuntime resolves the container a pid belongs to. Inspect
// returns (nil, nil) when the pid is not containerized.
type ContainerRuntime interface {
	Inspect(ctx context.Context, pid int) (*ContainerInfo, error)
}

// ServiceManager resolves the service unit owning a pid. Unit returns
// ("", nil) when no unit claims the pid.
type ServiceManager interface {
	Unit(ctx context.Context, pid int) (string, error)
}
