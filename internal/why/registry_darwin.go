//go:build darwin

package why

// DefaultRegistry returns the supervisor registry for this platform.
func DefaultRegistry() *SupervisorRegistry {
	return DarwinRegistry
}
