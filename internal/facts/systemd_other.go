//go:build !linux

package facts

import "context"

// Systemd is a no-op outside linux; no unit ever claims a pid.
type Systemd struct {
	Root string
}

func (Systemd) Unit(ctx context.Context, pid int) (string, error) {
	return "", nil
}
