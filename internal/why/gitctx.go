package why

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// gitCtxCache memoizes git lookups per directory. Working directories
// repeat heavily across queries against the same project, and the answer
// only changes on checkout, so a short TTL is enough.
type gitCtxCache struct {
	mu      sync.Mutex
	entries map[string]gitCtxEntry
	ttl     time.Duration
	limit   int
}

type gitCtxEntry struct {
	repo      string
	branch    string
	expiresAt time.Time
}

var gitCache = &gitCtxCache{
	entries: make(map[string]gitCtxEntry),
	ttl:     30 * time.Second,
	limit:   2048,
}

func (c *gitCtxCache) get(dir string, now time.Time) (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[dir]
	if !ok || now.After(entry.expiresAt) {
		return "", "", false
	}
	return entry.repo, entry.branch, true
}

// put records the answer for every directory visited on the way to it.
func (c *gitCtxCache) put(dirs []string, repo, branch string, now time.Time) {
	if len(dirs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for dir, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, dir)
		}
	}
	if len(c.entries)+len(dirs) > c.limit {
		c.entries = make(map[string]gitCtxEntry)
	}
	entry := gitCtxEntry{repo: repo, branch: branch, expiresAt: now.Add(c.ttl)}
	for _, dir := range dirs {
		c.entries[dir] = entry
	}
}

// DetectGitContext walks up from dir to the nearest .git directory and
// returns the repository name (base of the containing directory) and the
// current branch (a short SHA when HEAD is detached). Both are "" when
// dir is not inside a repository.
func DetectGitContext(dir string) (repo, branch string) {
	dir = filepath.Clean(dir)
	if dir == "" || dir == "/" || dir == "." {
		return "", ""
	}

	now := time.Now()
	var visited []string

	for dir != "/" && dir != "." {
		if r, b, ok := gitCache.get(dir, now); ok {
			gitCache.put(visited, r, b, now)
			return r, b
		}
		visited = append(visited, dir)

		if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
			repo = filepath.Base(dir)
			branch = readGitHead(filepath.Join(dir, ".git", "HEAD"))
			gitCache.put(visited, repo, branch, now)
			return repo, branch
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	gitCache.put(visited, "", "", now)
	return "", ""
}

// readGitHead parses .git/HEAD: a symbolic ref yields the branch name, a
// bare SHA (detached HEAD) yields its short form.
func readGitHead(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
			return name
		}
		return filepath.Base(ref)
	}
	if len(content) >= 7 {
		return content[:7]
	}
	return content
}
