package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/w31r4/gowhy/internal/why"
)

// PM2 reads the pm2 daemon's process registry via `pm2 jlist`.
type PM2 struct {
	// Timeout bounds the pm2 invocation; zero means 3s.
	Timeout time.Duration
}

type pm2Entry struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	Env  struct {
		RestartTime int `json:"restart_time"`
	} `json:"pm2_env"`
}

// Registry returns pm2-managed processes keyed by pid. Stopped entries
// (pid 0) are skipped.
func (m PM2) Registry(ctx context.Context) (map[int]why.ManagedProcess, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pm2", "jlist").Output()
	if err != nil {
		return nil, &why.ProviderUnavailableError{Op: "pm2", Err: err}
	}
	return parsePM2List(out)
}

func parsePM2List(data []byte) (map[int]why.ManagedProcess, error) {
	var entries []pm2Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &why.ProviderUnavailableError{Op: "pm2", Err: fmt.Errorf("parse jlist: %w", err)}
	}

	registry := make(map[int]why.ManagedProcess, len(entries))
	for _, entry := range entries {
		if entry.PID <= 0 {
			continue
		}
		registry[entry.PID] = why.ManagedProcess{
			Name:     entry.Name,
			Restarts: entry.Env.RestartTime,
		}
	}
	return registry, nil
}
