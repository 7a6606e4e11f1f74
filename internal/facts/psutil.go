package facts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/w31r4/gowhy/internal/why"
)

// PSUtil gathers facts by invoking the system ps utility. It serves
// platforms where the process tables cannot be read directly, at the
// cost of one process spawn per call.
type PSUtil struct{}

// ListAll runs a single ps invocation covering every visible process.
func (PSUtil) ListAll(ctx context.Context) ([]why.ProcessRecord, error) {
	out, err := exec.CommandContext(ctx, "ps", "-Ao", "pid=,ppid=,comm=").Output()
	if err != nil {
		return nil, fmt.Errorf("ps listing: %w", err)
	}

	var records []why.ProcessRecord
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		records = append(records, why.ProcessRecord{
			PID:     pid,
			PPID:    ppid,
			Command: filepath.Base(fields[2]),
		})
	}
	return records, nil
}

// FetchFact reads the main fields with one ps call and the full command
// line with a second; lsof supplies the working directory.
func (PSUtil) FetchFact(ctx context.Context, pid int) (why.ProcessInfo, error) {
	out, err := exec.CommandContext(ctx, "ps", "-p", strconv.Itoa(pid),
		"-o", "pid=,ppid=,user=,rss=,tty=,lstart=,comm=").Output()
	if err != nil || len(bytes.TrimSpace(out)) == 0 {
		return why.ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, why.ErrNotFound)
	}

	info, err := parsePSLine(string(bytes.TrimSpace(out)))
	if err != nil {
		return why.ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, err)
	}

	if args, err := exec.CommandContext(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "args=").Output(); err == nil {
		if cmdline := strings.TrimSpace(string(args)); cmdline != "" {
			info.Cmdline = cmdline
		}
	}
	if info.Cmdline == "" {
		info.Cmdline = info.Command
	}
	info.WorkingDir = lsofWorkingDir(ctx, pid)
	return info, nil
}

// parsePSLine parses "pid ppid user rss tty lstart comm". lstart is five
// space-separated fields ("Sun Dec 29 10:15:30 2024"), which is why it
// sits second to last and comm must carry no spaces in this format.
func parsePSLine(line string) (why.ProcessInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 11 {
		return why.ProcessInfo{}, fmt.Errorf("short ps output: %q", line)
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return why.ProcessInfo{}, fmt.Errorf("bad pid in ps output: %q", fields[0])
	}
	ppid, _ := strconv.Atoi(fields[1])

	info := why.ProcessInfo{
		PID:  pid,
		PPID: ppid,
		User: fields[2],
	}
	if rssKB, err := strconv.ParseUint(fields[3], 10, 64); err == nil {
		info.RSS = rssKB * 1024
	}
	tty := fields[4]
	info.HasTTY = tty != "" && tty != "?" && tty != "??" && tty != "-"

	if started, err := time.ParseInLocation("Mon Jan 2 15:04:05 2006",
		strings.Join(fields[5:10], " "), time.Local); err == nil {
		info.StartedAt = started
	}
	info.Command = filepath.Base(fields[10])
	return info, nil
}

// lsofWorkingDir resolves a process's cwd via lsof; empty on any failure.
func lsofWorkingDir(ctx context.Context, pid int) string {
	out, err := exec.CommandContext(ctx, "lsof", "-a", "-p", strconv.Itoa(pid), "-d", "cwd", "-Fn").Output()
	if err != nil {
		return ""
	}
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) > 1 && line[0] == 'n' {
			return string(line[1:])
		}
	}
	return ""
}
