// Package describe produces a one-line, human-readable answer to "what
// is this program?" by mining the system man pages. Everything here is
// best-effort: a missing or unparseable page yields "".
package describe

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// interpreters maps runtime binaries to the position of the script they
// run; for these, the script name describes the process better than the
// interpreter does.
var interpreters = map[string]bool{
	"python": true, "python2": true, "python3": true,
	"node": true, "nodejs": true,
	"ruby": true, "perl": true, "php": true, "java": true,
	"bash": true, "sh": true, "zsh": true, "fish": true,
}

// ForCommand returns a short description of what the command is, mined
// from its man page NAME section.
func ForCommand(ctx context.Context, cmdline string) string {
	name := baseCommand(cmdline)
	if name == "" {
		return ""
	}

	if path := manPath(ctx, name); path != "" {
		data, err := readManFile(path)
		if err == nil {
			if desc := fromMdoc(data); desc != "" {
				return desc
			}
			if desc := fromTroff(data); desc != "" {
				return desc
			}
		}
	}
	return fromFormattedMan(ctx, name)
}

// baseCommand picks the name worth describing from a command line. For
// interpreter invocations the first script argument wins, with its
// extension stripped.
func baseCommand(cmdline string) string {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return ""
	}
	base := filepath.Base(fields[0])
	base = strings.TrimPrefix(base, "-")
	if !interpreters[stripVersionSuffix(base)] {
		return base
	}
	for _, arg := range fields[1:] {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		script := filepath.Base(arg)
		return strings.TrimSuffix(script, filepath.Ext(script))
	}
	return base
}

// stripVersionSuffix reduces names like python3.12 to python3.
func stripVersionSuffix(name string) string {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

func manPath(ctx context.Context, name string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "man", "-w", name).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}

func readManFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	return string(data), err
}

// fromMdoc extracts the description from BSD mdoc pages, where the .Nd
// macro carries exactly the line we want.
func fromMdoc(page string) string {
	for _, line := range strings.Split(page, "\n") {
		if rest, ok := strings.CutPrefix(line, ".Nd "); ok {
			return capitalize(cleanTroff(rest))
		}
	}
	return ""
}

// fromTroff extracts the description from classic man(7) pages: the
// first content line after .SH NAME, shaped "name \- description".
func fromTroff(page string) string {
	lines := strings.Split(page, "\n")
	for i, line := range lines {
		upper := strings.ToUpper(strings.ReplaceAll(line, "\"", ""))
		if !strings.HasPrefix(upper, ".SH NAME") {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" || strings.HasPrefix(next, ".\\\"") {
				continue
			}
			if strings.HasPrefix(next, ".") && !strings.HasPrefix(next, ".B") &&
				!strings.HasPrefix(next, ".I") && !strings.HasPrefix(next, ".Nm") {
				return ""
			}
			return capitalize(descriptionAfterDash(cleanTroff(next)))
		}
	}
	return ""
}

// fromFormattedMan falls back to rendering the page and reading the NAME
// section from the formatted output.
func fromFormattedMan(ctx context.Context, name string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "man", name)
	cmd.Env = append(os.Environ(), "MANPAGER=cat", "PAGER=cat", "MANWIDTH=200")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}

	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "NAME" {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" {
				continue
			}
			return capitalize(descriptionAfterDash(next))
		}
	}
	return ""
}

// descriptionAfterDash splits "name - description" and returns the
// description half. Pages use plain, escaped, and unicode dashes.
func descriptionAfterDash(line string) string {
	for _, sep := range []string{" \\- ", " - ", " − ", " – "} {
		if _, after, ok := strings.Cut(line, sep); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// cleanTroff strips font escapes and request noise from a troff line.
func cleanTroff(line string) string {
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case 'f':
				// \fB, \fI, \fR, \fP and the \f[...] form.
				if i+2 < len(line) && line[i+2] == '[' {
					if end := strings.IndexByte(line[i+2:], ']'); end >= 0 {
						i += 2 + end
						continue
					}
				}
				i += 2
				continue
			case '&', '%':
				i++
				continue
			case '-':
				// Keep the dash, drop the escape.
				i++
			}
		}
		b.WriteByte(line[i])
	}
	return strings.TrimSpace(strings.Trim(b.String(), "\""))
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
