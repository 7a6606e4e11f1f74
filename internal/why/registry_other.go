//go:build !linux && !darwin

package why

// DefaultRegistry returns the supervisor registry for this platform.
// Other unix-likes are closest to the Linux name set.
func DefaultRegistry() *SupervisorRegistry {
	return LinuxRegistry
}
