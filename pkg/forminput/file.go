package forminput

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML or JSON values file into loosely typed data suitable
// for Decode.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("forminput: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML (and therefore JSON) bytes into a map.
func Parse(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("forminput: parse values: %w", err)
	}
	return raw, nil
}

// ApplyAssignments merges key=value entries into raw. Dotted keys address
// nested groups (tls.ca_cert=...). Values are parsed as YAML scalars so
// "3306" becomes a number and "false" a boolean.
func ApplyAssignments(raw map[string]any, assignments []string) (map[string]any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAssignment, assignment)
		}

		var parsed any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || isCollection(parsed) {
			parsed = value
		}

		segments := strings.Split(key, ".")
		target := raw
		for _, segment := range segments[:len(segments)-1] {
			next, ok := target[segment].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[segment] = next
			}
			target = next
		}
		target[segments[len(segments)-1]] = parsed
	}
	return raw, nil
}

func isCollection(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}
