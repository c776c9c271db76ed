package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor.patch triple as found in `openapi`, `swagger` and `asyncapi` fields.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse parses "2.0", "3.1.0" or "2.6.0". Missing minor or patch components are zero,
// a pre-release or build suffix on the patch component is ignored.
func Parse(version string) (*Version, error) {
	version = strings.TrimSpace(version)
	parts := strings.Split(version, ".")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return nil, fmt.Errorf("invalid version %q", version)
	}

	nums := [3]int{}
	for i, part := range parts {
		if i == 2 {
			part, _, _ = strings.Cut(part, "-")
			part, _, _ = strings.Cut(part, "+")
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q in %q: %w", part, version, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid version component %q in %q: cannot be negative", part, version)
		}
		nums[i] = n
	}

	return &Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}
