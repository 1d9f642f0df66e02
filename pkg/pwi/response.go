package pwi

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// ParseStatus parses a line-oriented plain-text status payload into a
// field-to-value mapping. Each non-blank line carries one `key=value`
// pair; blank lines and lines without a separator are skipped. The
// mapping is generic on purpose: the same grammar serves the focuser
// status, the mount status and the version model, each of which applies
// its own validation on top.
func ParseStatus(raw []byte) map[string]string {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return fields
}

// requireBool coerces a required boolean field, failing with a
// *ValidationError when the field is absent or malformed.
func requireBool(fields map[string]string, key string) (bool, error) {
	value, ok := fields[key]
	if !ok {
		return false, &ValidationError{Field: key, Reason: "required field missing"}
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, &ValidationError{Field: key, Reason: "not a boolean: " + value}
	}

	return parsed, nil
}

// optionalInt coerces an optional integer field. An absent field or a
// failed coercion yields nil rather than an error.
func optionalInt(fields map[string]string, key string) *int {
	value, ok := fields[key]
	if !ok {
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}

	return &parsed
}

// optionalFloat coerces an optional floating-point field. An absent
// field or a failed coercion yields nil rather than an error.
func optionalFloat(fields map[string]string, key string) *float64 {
	value, ok := fields[key]
	if !ok {
		return nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}

	return &parsed
}
