// Package output renders investigation results for terminals: a full
// styled report, a one-line summary, an ancestry tree, and a warnings
// digest. JSON encoding lives in json.go.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/w31r4/gowhy/internal/why"
)

// Styles groups every lipgloss style the renderers use. The zero value
// renders plain text, which is what --no-color and piped output get.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Command  lipgloss.Style
	Pid      lipgloss.Style
	RootUser lipgloss.Style
	User     lipgloss.Style
	Chain    lipgloss.Style
	Source   lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
}

// ColorStyles is the default terminal palette.
func ColorStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Command:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		Pid:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		RootUser: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		User:     lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
		Chain:    lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Source:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Faint:    lipgloss.NewStyle().Faint(true),
	}
}

// Renderer formats results with a fixed style set.
type Renderer struct {
	styles  Styles
	Verbose bool
}

func NewRenderer(color bool) *Renderer {
	r := &Renderer{}
	if color {
		r.styles = ColorStyles()
	}
	return r
}

// Full renders the complete report. desc is the optional one-line
// program description; "" omits the line.
func (r *Renderer) Full(res *why.Result, desc string) string {
	s := r.styles
	var b strings.Builder

	b.WriteString(s.Title.Render(fmt.Sprintf("%s (pid %d)", res.Fact.Command, res.Fact.PID)))
	b.WriteByte('\n')

	userStyle := s.User
	if res.Fact.User == "root" {
		userStyle = s.RootUser
	}
	r.line(&b, "User", userStyle.Render(res.Fact.User))
	if desc != "" {
		r.line(&b, "What it is", desc)
	}
	r.line(&b, "Command", s.Command.Render(res.Fact.Cmdline))
	if !res.Fact.StartedAt.IsZero() {
		r.line(&b, "Started", fmt.Sprintf("%s (%s ago)",
			res.Fact.StartedAt.Format("2006-01-02 15:04:05"),
			humanDuration(time.Since(res.Fact.StartedAt))))
	}
	if res.RestartCount > 0 {
		r.line(&b, "Restarts", fmt.Sprintf("%d", res.RestartCount))
	}
	if res.Fact.RSS > 0 {
		r.line(&b, "Memory", humanBytes(res.Fact.RSS))
	}
	if res.Fact.WorkingDir != "" {
		r.line(&b, "Working dir", res.Fact.WorkingDir)
	}
	if res.GitRepo != "" {
		git := res.GitRepo
		if res.GitBranch != "" {
			git += fmt.Sprintf(" (branch %s)", res.GitBranch)
		}
		r.line(&b, "Git repo", git)
	}
	if res.Container != nil {
		r.line(&b, "Container", fmt.Sprintf("%s (image %s)", res.Container.Name, res.Container.Image))
	}
	if len(res.Listening) > 0 {
		addrs := make([]string, len(res.Listening))
		for i, sock := range res.Listening {
			addrs[i] = fmt.Sprintf("%s:%d", sock.IP, sock.Port)
		}
		r.line(&b, "Listening", strings.Join(addrs, ", "))
	}

	b.WriteByte('\n')
	b.WriteString(s.Label.Render("Why it exists:"))
	b.WriteByte('\n')
	b.WriteString("  " + s.Chain.Render(why.FormatChain(res.Ancestry)))
	b.WriteByte('\n')
	r.line(&b, "Source", s.Source.Render(describeSource(res.Source)))
	if r.Verbose {
		for _, ev := range res.Source.Evidence {
			b.WriteString("  " + s.Faint.Render("evidence: "+ev) + "\n")
		}
	}

	if w := r.Warnings(res); w != "" {
		b.WriteByte('\n')
		b.WriteString(w)
	}
	return b.String()
}

// Short renders the one-line summary: chain plus source.
func (r *Renderer) Short(res *why.Result) string {
	return fmt.Sprintf("%s  [%s]",
		r.styles.Chain.Render(why.FormatChain(res.Ancestry)),
		r.styles.Source.Render(describeSource(res.Source)))
}

// Warnings renders the warnings block; "" when there are none.
func (r *Renderer) Warnings(res *why.Result) string {
	if len(res.Warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.styles.Warning.Render("Warnings:"))
	b.WriteByte('\n')
	for _, w := range res.Warnings {
		b.WriteString("  " + r.styles.Warning.Render("!") + " " + w.Message + "\n")
	}
	return b.String()
}

func (r *Renderer) line(b *strings.Builder, label, value string) {
	b.WriteString(fmt.Sprintf("%s %s\n", r.styles.Label.Render(label+":"), value))
}

// describeSource turns an attribution into a sentence fragment.
func describeSource(src why.Source) string {
	switch src.Type {
	case why.SourceProcessManager:
		return withDetail("managed by a process manager", "app", src.Detail)
	case why.SourceContainer:
		return withDetail("running inside a container", "container", src.Detail)
	case why.SourceSupervisor:
		return withDetail("kept alive by a supervisor", "supervisor", src.Detail)
	case why.SourceScheduler:
		return withDetail("launched by a scheduler", "scheduler", src.Detail)
	case why.SourceShell:
		return withDetail("started from an interactive shell", "shell", src.Detail)
	case why.SourceInit:
		if src.Detail != "" {
			return fmt.Sprintf("system service (%s)", src.Detail)
		}
		return "started at boot by the init system"
	default:
		return "unknown origin"
	}
}

func withDetail(base, noun, detail string) string {
	if detail == "" {
		return base
	}
	return fmt.Sprintf("%s (%s: %s)", base, noun, detail)
}

// humanDuration renders an age like "3 days" or "2 hours".
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func humanBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
