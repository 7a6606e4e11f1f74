package output

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/w31r4/gowhy/internal/why"
)

type jsonAncestor struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

type jsonReport struct {
	PID              int            `json:"pid"`
	Name             string         `json:"name"`
	PPID             int            `json:"ppid"`
	User             string         `json:"user"`
	Command          string         `json:"command"`
	Description      string         `json:"description,omitempty"`
	StartTime        string         `json:"start_time,omitempty"`
	UptimeSeconds    int64          `json:"uptime_seconds,omitempty"`
	RestartCount     int            `json:"restart_count"`
	MemoryKB         uint64         `json:"memory_kb"`
	Ancestry         []jsonAncestor `json:"ancestry"`
	AncestryTruncated bool          `json:"ancestry_truncated,omitempty"`
	Source           string         `json:"source"`
	SourceDetail     string         `json:"source_detail,omitempty"`
	WorkingDirectory string         `json:"working_directory,omitempty"`
	GitRepo          string         `json:"git_repo,omitempty"`
	GitBranch        string         `json:"git_branch,omitempty"`
	ContainerName    string         `json:"container_name,omitempty"`
	ContainerImage   string         `json:"container_image,omitempty"`
	Listening        []string       `json:"listening_addresses"`
	Warnings         []string       `json:"warnings"`
}

// JSON encodes the result for scripting. Field names are stable; absent
// optional data is omitted rather than nulled.
func JSON(res *why.Result, desc string) ([]byte, error) {
	report := jsonReport{
		PID:              res.Fact.PID,
		Name:             res.Fact.Command,
		PPID:             res.Fact.PPID,
		User:             res.Fact.User,
		Command:          res.Fact.Cmdline,
		Description:      desc,
		RestartCount:     res.RestartCount,
		MemoryKB:         res.Fact.RSS / 1024,
		Source:           string(res.Source.Type),
		SourceDetail:     res.Source.Detail,
		WorkingDirectory: res.Fact.WorkingDir,
		GitRepo:          res.GitRepo,
		GitBranch:        res.GitBranch,
		Listening:        []string{},
		Warnings:         []string{},
		AncestryTruncated: res.Ancestry.Truncated,
	}

	if !res.Fact.StartedAt.IsZero() {
		report.StartTime = res.Fact.StartedAt.Format(time.RFC3339)
		report.UptimeSeconds = int64(time.Since(res.Fact.StartedAt).Seconds())
	}
	report.Ancestry = make([]jsonAncestor, 0, len(res.Ancestry.Procs))
	for _, p := range res.Ancestry.Procs {
		report.Ancestry = append(report.Ancestry, jsonAncestor{PID: p.PID, Name: p.Command})
	}
	if res.Container != nil {
		report.ContainerName = res.Container.Name
		report.ContainerImage = res.Container.Image
	}
	for _, sock := range res.Listening {
		report.Listening = append(report.Listening, sock.IP+":"+strconv.Itoa(sock.Port))
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, w.Message)
	}
	return json.MarshalIndent(report, "", "  ")
}
