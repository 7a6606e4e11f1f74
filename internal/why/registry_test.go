package why

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"bash":      "bash",
		"-bash":     "bash",
		"/bin/zsh":  "zsh",
		"/USR/BIN/FISH": "fish",
		"  sh ":     "sh",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Fatalf("normalizeName(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestRegistryShellAndInitLookups(t *testing.T) {
	if !LinuxRegistry.IsShell("-bash") {
		t.Fatalf("login shell spelling must match")
	}
	if !LinuxRegistry.IsShell("/usr/bin/zsh") {
		t.Fatalf("full path spelling must match")
	}
	if LinuxRegistry.IsShell("node") {
		t.Fatalf("node is not a shell")
	}

	if !LinuxRegistry.IsInit("systemd") || !LinuxRegistry.IsInit("init") {
		t.Fatalf("expected linux init names to match")
	}
	if !DarwinRegistry.IsInit("launchd") {
		t.Fatalf("expected launchd to match on darwin")
	}
	if LinuxRegistry.IsInit("launchd") {
		t.Fatalf("launchd is not a linux init name")
	}
}
