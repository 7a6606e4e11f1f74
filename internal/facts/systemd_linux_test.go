//go:build linux

package facts

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCgroup(t *testing.T, root string, pid int, content string) {
	t.Helper()
	dir := filepath.Join(root, "proc", strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup"), []byte(content), 0o644))
}

func TestUnitFromCgroupV2(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 1234, "0::/system.slice/nginx.service\n")

	unit, err := Systemd{Root: root}.Unit(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, "nginx.service", unit)
}

func TestUnitFromCgroupPrefersDeepestService(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 2001,
		"0::/user.slice/user-1000.slice/user@1000.service/app.slice/syncthing.service\n")

	unit, err := Systemd{Root: root}.Unit(context.Background(), 2001)
	require.NoError(t, err)
	assert.Equal(t, "syncthing.service", unit)
}

func TestUnitFromCgroupUserManagerOnly(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 2002, "0::/user.slice/user-1000.slice/user@1000.service\n")

	unit, err := Systemd{Root: root}.Unit(context.Background(), 2002)
	require.NoError(t, err)
	assert.Equal(t, "user@1000.service", unit)
}

func TestUnitUnclaimedPid(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 3000, "0::/user.slice/user-1000.slice/session-4.scope\n")

	unit, err := Systemd{Root: root}.Unit(context.Background(), 3000)
	require.NoError(t, err)
	assert.Empty(t, unit)
}

func TestUnitMissingCgroupFile(t *testing.T) {
	unit, err := Systemd{Root: t.TempDir()}.Unit(context.Background(), 4000)
	require.NoError(t, err)
	assert.Empty(t, unit)
}

func TestFirstUnitToken(t *testing.T) {
	out := "Warning: some noise\n" +
		"* nginx.service - A high performance web server\n" +
		"   Loaded: loaded (/lib/systemd/system/nginx.service; enabled)\n"
	assert.Equal(t, "nginx.service", firstUnitToken(out))
	assert.Empty(t, firstUnitToken("no units here\n"))
}

func TestUnitFromCgroupV1Lines(t *testing.T) {
	content := "12:pids:/system.slice/redis.service\n" +
		"11:memory:/system.slice/redis.service\n" +
		"1:name=systemd:/system.slice/redis.service\n"
	assert.Equal(t, "redis.service", unitFromCgroupContent(content))
}
