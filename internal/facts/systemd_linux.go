//go:build linux

package facts

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/w31r4/gowhy/internal/why"
)

// Systemd answers which unit owns a pid. The cgroup file is the primary
// source; systemctl is the fallback when cgroups carry no unit.
type Systemd struct {
	// Root overrides the filesystem root for cgroup reads. Tests point it
	// at a temp dir; "" means "/".
	Root string
}

func (s Systemd) Unit(ctx context.Context, pid int) (string, error) {
	if pid <= 0 {
		return "", nil
	}
	if unit := unitFromCgroup(s.Root, pid); unit != "" {
		return unit, nil
	}
	if s.Root != "" {
		// A redirected root means a test harness; never shell out there.
		return "", nil
	}
	if _, err := exec.LookPath("systemctl"); err != nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 600*time.Millisecond)
	defer cancel()
	out, err := exec.CommandContext(ctx, "systemctl", "status", "--no-pager", "--full", strconv.Itoa(pid)).CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", &why.ProviderUnavailableError{Op: "systemd", Err: err}
	}
	return firstUnitToken(string(out)), nil
}

func unitFromCgroup(root string, pid int) string {
	if root == "" {
		root = "/"
	}
	data, err := os.ReadFile(filepath.Join(filepath.Clean(root), "proc", strconv.Itoa(pid), "cgroup"))
	if err != nil {
		return ""
	}
	return unitFromCgroupContent(string(data))
}

// unitFromCgroupContent extracts the owning .service unit from
// /proc/<pid>/cgroup content, handling both v1 (<hier>:<ctrl>:<path>)
// and v2 (0::<path>) line formats.
func unitFromCgroupContent(content string) string {
	var candidates []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.LastIndex(line, ":")
		if idx == -1 || idx == len(line)-1 {
			continue
		}

		// The deepest .service segment is the unit actually running the
		// process; outer segments are slices or the user manager.
		unit := ""
		for _, seg := range strings.Split(line[idx+1:], "/") {
			if strings.HasSuffix(seg, ".service") {
				unit = seg
			}
		}
		if unit != "" {
			candidates = append(candidates, unit)
		}
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		if !strings.HasPrefix(candidates[i], "user@") {
			return candidates[i]
		}
	}
	if len(candidates) > 0 {
		return candidates[len(candidates)-1]
	}
	return ""
}

// firstUnitToken scans systemctl status output for the first token
// ending in .service.
func firstUnitToken(text string) string {
	for _, line := range strings.Split(text, "\n") {
		for _, tok := range strings.Fields(line) {
			tok = strings.Trim(tok, "();,")
			if strings.HasSuffix(tok, ".service") {
				return tok
			}
		}
	}
	return ""
}
