package pwi

import (
	"strings"
)

// TLE is a two-line element set, optionally preceded by a name line.
// The element values themselves are opaque to the client: propagation
// happens on the controller, so only the structural shape is checked
// before the set is shipped over the wire.
type TLE struct {
	// Line0 is the optional satellite name line
	Line0 string
	// Line1 is the first data line, beginning with "1 "
	Line1 string
	// Line2 is the second data line, beginning with "2 "
	Line2 string
}

// ParseTLE splits a textual element set into its lines. Blank lines and
// surrounding whitespace are tolerated; the name line is optional.
func ParseTLE(text string) (TLE, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	var tle TLE

	switch len(lines) {
	case 2:
		tle = TLE{Line1: lines[0], Line2: lines[1]}
	case 3:
		tle = TLE{Line0: lines[0], Line1: lines[1], Line2: lines[2]}
	default:
		return TLE{}, &ValidationError{Field: "tle", Reason: "expected 2 or 3 lines"}
	}

	if err := tle.Validate(); err != nil {
		return TLE{}, err
	}

	return tle, nil
}

// Validate checks the structural shape of the element set.
func (t TLE) Validate() error {
	if !strings.HasPrefix(t.Line1, "1 ") {
		return &ValidationError{Field: "tle", Reason: "line 1 must begin with \"1 \""}
	}
	if !strings.HasPrefix(t.Line2, "2 ") {
		return &ValidationError{Field: "tle", Reason: "line 2 must begin with \"2 \""}
	}
	return nil
}

// Name returns the satellite name from the name line, when present.
func (t TLE) Name() string {
	return strings.TrimSpace(strings.TrimPrefix(t.Line0, "0 "))
}
