package facts

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/w31r4/gowhy/internal/why"
)

// Docker resolves container identity through the docker CLI.
type Docker struct {
	// Timeout bounds each docker invocation; zero means 3s.
	Timeout time.Duration
}

// Inspect maps a host pid to the running container it leads, or nil when
// no container claims it. Running containers are listed once and
// inspected in a single batched call.
func (d Docker) Inspect(ctx context.Context, pid int) (*why.ContainerInfo, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "docker", "ps", "-q", "--no-trunc").Output()
	if err != nil {
		return nil, &why.ProviderUnavailableError{Op: "docker", Err: err}
	}
	ids := strings.Fields(string(out))
	if len(ids) == 0 {
		return nil, nil
	}

	args := append([]string{"inspect", "--format",
		"{{.State.Pid}}\t{{.Name}}\t{{.Config.Image}}"}, ids...)
	out, err = exec.CommandContext(ctx, "docker", args...).Output()
	if err != nil {
		return nil, &why.ProviderUnavailableError{Op: "docker", Err: err}
	}

	containers := parseDockerInspectLines(string(out))
	if info, ok := containers[pid]; ok {
		return &info, nil
	}
	return nil, nil
}

// parseDockerInspectLines parses one "pid\tname\timage" line per
// container. Docker reports names with a leading slash.
func parseDockerInspectLines(out string) map[int]why.ContainerInfo {
	containers := make(map[int]why.ContainerInfo)
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		pid, err := strconv.Atoi(parts[0])
		if err != nil || pid <= 0 {
			continue
		}
		containers[pid] = why.ContainerInfo{
			Name:  strings.TrimPrefix(parts[1], "/"),
			Image: parts[2],
		}
	}
	return containers
}
