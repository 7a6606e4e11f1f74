package why

import "strings"

// SupervisorRegistry holds the known process names each classification
// category matches against. Two platform variants exist; the classifier
// algorithm itself is platform-independent and only ever consults the
// registry it was given.
type SupervisorRegistry struct {
	// ProcessManagers maps daemon names to the manager they belong to
	// (pm2, forever, ...).
	ProcessManagers map[string]string
	// ContainerShims maps container runtime daemons and shims to the
	// runtime name (dockerd, containerd-shim, ...).
	ContainerShims map[string]string
	// Supervisors maps plain supervisor daemons to a display label.
	Supervisors map[string]string
	// Schedulers maps periodic scheduler daemons to a display label.
	Schedulers map[string]string
	// Shells is the set of known interactive shells.
	Shells map[string]bool
	// InitNames is the set of names the pid-1 init process goes by.
	InitNames map[string]bool
}

// LinuxRegistry covers systemd-era Linux systems.
var LinuxRegistry = &SupervisorRegistry{
	ProcessManagers: map[string]string{
		"pm2":     "pm2",
		"god":     "god",
		"forever": "forever",
	},
	ContainerShims: map[string]string{
		"dockerd":                 "docker",
		"docker-containerd":      "docker",
		"docker-proxy":           "docker",
		"containerd":             "containerd",
		"containerd-shim":        "containerd",
		"containerd-shim-runc-v2": "containerd",
		"podman":                 "podman",
		"conmon":                 "podman",
		"lxd":                    "lxd",
	},
	Supervisors: map[string]string{
		"supervisord":  "supervisord",
		"gunicorn":     "gunicorn",
		"uwsgi":        "uwsgi",
		"s6-supervise": "s6",
		"s6-svscan":    "s6",
		"runsv":        "runit",
		"runsvdir":     "runit",
		"monit":        "monit",
		"circusd":      "circus",
		"tini":         "tini",
		"docker-init":  "docker-init",
	},
	Schedulers: map[string]string{
		"cron":    "cron",
		"crond":   "cron",
		"anacron": "anacron",
		"atd":     "at",
	},
	Shells: map[string]bool{
		"bash": true,
		"zsh":  true,
		"fish": true,
		"sh":   true,
		"dash": true,
		"tcsh": true,
		"csh":  true,
		"ksh":  true,
		"ash":  true,
	},
	InitNames: map[string]bool{
		"systemd": true,
		"init":    true,
	},
}

// DarwinRegistry covers macOS. launchd doubles as init and scheduler
// host; cron still exists for crontab users.
var DarwinRegistry = &SupervisorRegistry{
	ProcessManagers: map[string]string{
		"pm2":     "pm2",
		"forever": "forever",
	},
	ContainerShims: map[string]string{
		"dockerd":            "docker",
		"containerd":        "containerd",
		"containerd-shim":   "containerd",
		"com.docker.backend": "docker",
	},
	Supervisors: map[string]string{
		"supervisord": "supervisord",
		"gunicorn":    "gunicorn",
		"uwsgi":       "uwsgi",
		"monit":       "monit",
	},
	Schedulers: map[string]string{
		"cron":  "cron",
		"crond": "cron",
	},
	Shells: map[string]bool{
		"bash": true,
		"zsh":  true,
		"fish": true,
		"sh":   true,
		"dash": true,
		"tcsh": true,
		"csh":  true,
		"ksh":  true,
	},
	InitNames: map[string]bool{
		"launchd": true,
		"init":    true,
	},
}

// normalizeName strips a path prefix and the leading dash of login
// shells, then lowercases, so "/bin/bash" and "-bash" both match "bash".
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimPrefix(name, "-")
}

// IsShell reports whether name is a known interactive shell.
func (r *SupervisorRegistry) IsShell(name string) bool {
	return r.Shells[normalizeName(name)]
}

// IsInit reports whether name is a known init process name.
func (r *SupervisorRegistry) IsInit(name string) bool {
	return r.InitNames[normalizeName(name)]
}
