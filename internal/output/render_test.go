package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w31r4/gowhy/internal/why"
)

func sampleResult() *why.Result {
	return &why.Result{
		Fact: why.ProcessInfo{
			PID: 14233, PPID: 5034, Command: "node",
			Cmdline:    "node /srv/app/server.js",
			User:       "deploy",
			StartedAt:  time.Now().Add(-72 * time.Hour),
			WorkingDir: "/srv/app",
			RSS:        512 << 20,
		},
		Ancestry: why.AncestryChain{Procs: []why.ProcessInfo{
			{PID: 1, Command: "systemd"},
			{PID: 5034, Command: "pm2"},
			{PID: 14233, Command: "node"},
		}},
		Source: why.Source{
			Type:   why.SourceProcessManager,
			Detail: "api-server",
		},
		RestartCount: 12,
		GitRepo:      "webapp",
		GitBranch:    "main",
		Listening:    []why.ListeningSocket{{PID: 14233, IP: "0.0.0.0", Port: 3000}},
		Warnings: []why.Warning{
			{Code: "public-bind", Message: "listening on all interfaces (0.0.0.0:3000)"},
		},
	}
}

func TestFullReportPlain(t *testing.T) {
	out := NewRenderer(false).Full(sampleResult(), "Server-side JavaScript runtime")

	assert.Contains(t, out, "node (pid 14233)")
	assert.Contains(t, out, "User: deploy")
	assert.Contains(t, out, "What it is: Server-side JavaScript runtime")
	assert.Contains(t, out, "Command: node /srv/app/server.js")
	assert.Contains(t, out, "Restarts: 12")
	assert.Contains(t, out, "Memory: 512.0 MB")
	assert.Contains(t, out, "Git repo: webapp (branch main)")
	assert.Contains(t, out, "Listening: 0.0.0.0:3000")
	assert.Contains(t, out, "systemd (pid 1) → pm2 (pid 5034) → node (pid 14233)")
	assert.Contains(t, out, "managed by a process manager (app: api-server)")
	assert.Contains(t, out, "! listening on all interfaces")
}

func TestFullReportOmitsEmptySections(t *testing.T) {
	res := sampleResult()
	res.GitRepo, res.GitBranch = "", ""
	res.Warnings = nil
	res.Listening = nil
	res.RestartCount = 0

	out := NewRenderer(false).Full(res, "")
	assert.NotContains(t, out, "Git repo")
	assert.NotContains(t, out, "Warnings")
	assert.NotContains(t, out, "Listening")
	assert.NotContains(t, out, "Restarts")
	assert.NotContains(t, out, "What it is")
}

func TestShortReport(t *testing.T) {
	out := NewRenderer(false).Short(sampleResult())
	assert.Equal(t, "systemd (pid 1) → pm2 (pid 5034) → node (pid 14233)  [managed by a process manager (app: api-server)]", out)
}

func TestDescribeSource(t *testing.T) {
	cases := []struct {
		src  why.Source
		want string
	}{
		{why.Source{Type: why.SourceInit}, "started at boot by the init system"},
		{why.Source{Type: why.SourceInit, Detail: "nginx.service"}, "system service (nginx.service)"},
		{why.Source{Type: why.SourceShell, Detail: "zsh"}, "started from an interactive shell (shell: zsh)"},
		{why.Source{Type: why.SourceContainer, Detail: "web"}, "running inside a container (container: web)"},
		{why.Source{Type: why.SourceScheduler, Detail: "cron"}, "launched by a scheduler (scheduler: cron)"},
		{why.Source{Type: why.SourceUnknown}, "unknown origin"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, describeSource(tc.src))
	}
}

func TestTreeRendering(t *testing.T) {
	tree := &why.ProcessTree{
		ProcessInfo: why.ProcessInfo{PID: 1, Command: "systemd"},
		Children: []*why.ProcessTree{
			{
				ProcessInfo: why.ProcessInfo{PID: 5034, Command: "pm2"},
				Children: []*why.ProcessTree{
					{ProcessInfo: why.ProcessInfo{PID: 14233, Command: "node"}},
					{ProcessInfo: why.ProcessInfo{PID: 14250, Command: "node", Stub: true}},
				},
			},
			{ProcessInfo: why.ProcessInfo{PID: 800, Command: "sshd"}},
		},
	}

	out := NewRenderer(false).Tree(tree, 14233)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "systemd (pid 1)", lines[0])
	assert.Contains(t, lines[1], "├─ pm2 (pid 5034)")
	assert.Contains(t, lines[2], "│  ├─ node (pid 14233)")
	assert.Contains(t, lines[3], "│  └─ node (pid 14250) [gone]")
	assert.Contains(t, lines[4], "└─ sshd (pid 800)")
}

func TestJSONReport(t *testing.T) {
	data, err := JSON(sampleResult(), "Server-side JavaScript runtime")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))

	assert.EqualValues(t, 14233, report["pid"])
	assert.Equal(t, "node", report["name"])
	assert.Equal(t, "process-manager", report["source"])
	assert.Equal(t, "api-server", report["source_detail"])
	assert.EqualValues(t, 12, report["restart_count"])
	assert.EqualValues(t, 512*1024, report["memory_kb"])

	ancestry, ok := report["ancestry"].([]any)
	require.True(t, ok)
	assert.Len(t, ancestry, 3)

	listening, ok := report["listening_addresses"].([]any)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:3000", listening[0])
}

func TestJSONReportEmptyCollectionsNotNull(t *testing.T) {
	res := sampleResult()
	res.Listening = nil
	res.Warnings = nil

	data, err := JSON(res, "")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"listening_addresses": []`)
	assert.Contains(t, string(data), `"warnings": []`)
}

func TestHumanHelpers(t *testing.T) {
	assert.Equal(t, "3 days", humanDuration(73*time.Hour))
	assert.Equal(t, "1 hour", humanDuration(90*time.Minute))
	assert.Equal(t, "5 minutes", humanDuration(5*time.Minute))
	assert.Equal(t, "1.0 GB", humanBytes(1<<30))
	assert.Equal(t, "256.0 KB", humanBytes(256<<10))
}
