package why

import (
	"fmt"
	"time"
)

// Warning is one diagnostic finding about the investigated process.
type Warning struct {
	Code    string
	Message string
}

// WarningInput is everything the warning rules may inspect. Rules are
// pure predicates over already-resolved facts; evaluation performs no
// I/O, which keeps the rule set unit-testable and platform-free.
type WarningInput struct {
	Fact         ProcessInfo
	Source       Source
	Listening    []ListeningSocket
	RestartCount int
	Now          time.Time
}

const (
	restartWarnThreshold = 5
	highMemoryThreshold  = 1 << 30 // 1 GiB
	longRunningAge       = 90 * 24 * time.Hour
)

// warningRules is evaluated in order; order is output order, not
// priority. Every rule fires independently.
var warningRules = []struct {
	code  string
	apply func(in WarningInput) (string, bool)
}{
	{"running-as-root", func(in WarningInput) (string, bool) {
		if in.Fact.User == "root" && in.Fact.PID != rootSentinelPID {
			return "Process is running as root", true
		}
		return "", false
	}},
	{"public-bind", func(in WarningInput) (string, bool) {
		for _, l := range in.Listening {
			if isPublicBind(l.IP) {
				return fmt.Sprintf("Listening on public interface (%s:%d)", l.IP, l.Port), true
			}
		}
		return "", false
	}},
	{"high-restarts", func(in WarningInput) (string, bool) {
		if in.RestartCount > restartWarnThreshold {
			return fmt.Sprintf("Process has restarted %d times", in.RestartCount), true
		}
		return "", false
	}},
	{"high-memory", func(in WarningInput) (string, bool) {
		if in.Fact.RSS > highMemoryThreshold {
			return fmt.Sprintf("High memory usage (%d MB)", in.Fact.RSS/(1024*1024)), true
		}
		return "", false
	}},
	{"long-running", func(in WarningInput) (string, bool) {
		if in.Fact.StartedAt.IsZero() {
			return "", false
		}
		if age := in.Now.Sub(in.Fact.StartedAt); age > longRunningAge {
			return fmt.Sprintf("Process has been running for %d days", int(age.Hours()/24)), true
		}
		return "", false
	}},
}

// isPublicBind reports whether a listening host is the any-interface
// address.
func isPublicBind(ip string) bool {
	switch ip {
	case "0.0.0.0", "::", ":::", "*":
		return true
	}
	return false
}

// EvaluateWarnings runs the fixed rule set against one resolved query.
func EvaluateWarnings(in WarningInput) []Warning {
	var out []Warning
	for _, rule := range warningRules {
		if msg, ok := rule.apply(in); ok {
			out = append(out, Warning{Code: rule.code, Message: msg})
		}
	}
	return out
}
