//go:build linux

package why

// DefaultRegistry returns the supervisor registry for this platform.
func DefaultRegistry() *SupervisorRegistry {
	return LinuxRegistry
}
