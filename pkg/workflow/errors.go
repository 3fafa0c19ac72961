package workflow

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/model"
)

// GenericMessage is shown for failures the server did not describe.
const GenericMessage = "Something went wrong"

// MessageFor converts a submission error into the notification text.
// Structured API errors become "<field> <msg>" lines joined by "; "; a plain
// string detail is shown as is; anything else is GenericMessage.
func MessageFor(err error) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !apiErr.Structured() {
		return GenericMessage
	}
	if len(apiErr.Detail) == 0 {
		return apiErr.Message
	}

	lines := make([]string, 0, len(apiErr.Detail))
	for _, detail := range apiErr.Detail {
		line := strings.TrimSpace(detail.Field() + " " + detail.Msg)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return GenericMessage
	}
	return strings.Join(lines, "; ")
}

// ErrorMapping splits API validation details into field and form level
// messages. Field keys are dotted form paths.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// FieldErrors maps the loc paths of a structured API error onto the form's
// fields. Wrapper segments such as "body" and array indices are dropped; a
// loc that matches no field becomes a form level message.
func FieldErrors(form model.FormModel, apiErr *client.APIError) ErrorMapping {
	var mapping ErrorMapping
	if apiErr == nil {
		return mapping
	}
	if len(apiErr.Detail) == 0 {
		if apiErr.Message != "" {
			mapping.Form = []string{apiErr.Message}
		}
		return mapping
	}

	fieldPaths := make(map[string]string)
	collectFieldPaths(form.Fields, "", "", fieldPaths)

	for _, detail := range apiErr.Detail {
		message := strings.TrimSpace(detail.Msg)
		if message == "" {
			continue
		}
		path := mapLoc(detail.Loc, fieldPaths)
		if path == "" {
			mapping.Form = appendUnique(mapping.Form, message)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[path] = appendUnique(mapping.Fields[path], message)
	}
	return mapping
}

func mapLoc(loc []string, fieldPaths map[string]string) string {
	segments := make([]string, 0, len(loc))
	for _, part := range loc {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) == 0 || (len(segments) == 1 && isFormLevelKey(segments[0])) {
		return ""
	}

	best, bestLen := "", 0
	for _, variant := range segmentVariants(segments) {
		matched, length := longestMatchingPath(variant, fieldPaths)
		if matched != "" && length > bestLen {
			best, bestLen = matched, length
		}
	}
	return best
}

func segmentVariants(segments []string) [][]string {
	noWrappers := dropWrapperSegments(segments)
	return [][]string{
		segments,
		noWrappers,
		stripNumericSegments(segments),
		stripNumericSegments(noWrappers),
	}
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "query", "path":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

// longestMatchingPath returns the form path of the longest matching prefix
// of segments and the number of segments it consumed.
func longestMatchingPath(segments []string, fieldPaths map[string]string) (string, int) {
	for end := len(segments); end > 0; end-- {
		if path, ok := fieldPaths[strings.Join(segments[:end], ".")]; ok {
			return path, end
		}
	}
	return "", 0
}

// collectFieldPaths indexes every field by its form path and its wire path,
// since the server reports locations by wire name.
func collectFieldPaths(fields []model.Field, prefix, wirePrefix string, dest map[string]string) {
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		path := joinPath(prefix, field.Name)
		wirePath := joinPath(wirePrefix, field.WireName())
		dest[path] = path
		dest[wirePath] = path
		if len(field.Nested) > 0 {
			collectFieldPaths(field.Nested, path, wirePath, dest)
		}
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "body", "__root__", "__all__", "non_field_errors":
		return true
	}
	return false
}

func appendUnique(list []string, message string) []string {
	for _, existing := range list {
		if existing == message {
			return list
		}
	}
	return append(list, message)
}
