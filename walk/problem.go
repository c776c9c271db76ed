package walk

import (
	"fmt"
	"slices"
	"strings"

	"github.com/speakeasy-api/refbundle/references"
)

// Severity is the level a problem is reported with.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	// SeverityOff disables a rule, its problems are never recorded.
	SeverityOff Severity = "off"
)

// ParseSeverity parses the textual severity used in configuration files. "on" is treated as "error".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "on":
		return SeverityError, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "off":
		return SeverityOff, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarn:
		return 1
	default:
		return 2
	}
}

// Problem is a finding reported by a visitor at a location of the walked documents.
type Problem struct {
	Message  string
	Severity Severity
	RuleID   string
	Location references.Location
}

var _ error = Problem{}

func (p Problem) Error() string {
	return fmt.Sprintf("[%s] %s %s: %s", p.Severity, p.RuleID, p.Location.AbsolutePointer(), p.Message)
}

// HasErrors reports whether any problem has error severity.
func HasErrors(problems []Problem) bool {
	return slices.ContainsFunc(problems, func(p Problem) bool {
		return p.Severity == SeverityError
	})
}

// SortProblems orders problems by location, severity, rule and message. The sort is stable so
// problems that compare equal keep the order they were reported in.
func SortProblems(problems []Problem) {
	slices.SortStableFunc(problems, compareProblems)
}

func compareProblems(a, b Problem) int {
	if c := strings.Compare(a.Location.AbsoluteRef(), b.Location.AbsoluteRef()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Location.Pointer, b.Location.Pointer); c != 0 {
		return c
	}
	if a.Severity != b.Severity {
		return a.Severity.rank() - b.Severity.rank()
	}
	if c := strings.Compare(a.RuleID, b.RuleID); c != 0 {
		return c
	}
	return strings.Compare(a.Message, b.Message)
}
