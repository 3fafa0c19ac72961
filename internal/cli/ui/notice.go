package ui

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-iacgen/pkg/workflow"
)

// Level represents the severity of a notice.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelSuccess
)

var strict = bluemonday.StrictPolicy()

// Clean strips markup from text that came from a server. Error details are
// echoed to the terminal verbatim otherwise.
func Clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(text)))
}

// FormatNotice renders one message line with a level marker.
func FormatNotice(level Level, message string, noColor bool) string {
	var c *color.Color
	var symbol string
	switch level {
	case LevelError:
		c, symbol = color.New(color.FgRed, color.Bold), "✗"
	case LevelWarning:
		c, symbol = color.New(color.FgYellow, color.Bold), "!"
	case LevelInfo:
		c, symbol = color.New(color.FgCyan), "i"
	default:
		c, symbol = color.New(color.FgGreen, color.Bold), "✓"
	}
	if noColor {
		c.DisableColor()
	}
	return c.Sprintf("%s %s", symbol, message)
}

// Notifier prints workflow failures. It satisfies workflow.Notifier.
type Notifier struct {
	mu       sync.Mutex
	w        io.Writer
	noColor  bool
	messages []string
}

var _ workflow.Notifier = (*Notifier)(nil)

// NewNotifier writes notices to w.
func NewNotifier(w io.Writer, noColor bool) *Notifier {
	return &Notifier{w: w, noColor: noColor}
}

func (n *Notifier) Notify(message string) {
	message = Clean(message)
	if message == "" {
		message = workflow.GenericMessage
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	fmt.Fprintln(n.w, FormatNotice(LevelError, message, n.noColor))
}

// Count reports how many notices were printed.
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// WriteFieldErrors prints server errors next to the form fields they belong
// to, followed by form-level messages.
func WriteFieldErrors(w io.Writer, mapping workflow.ErrorMapping, noColor bool) {
	if len(mapping.Fields) == 0 && len(mapping.Form) == 0 {
		return
	}
	names := make([]string, 0, len(mapping.Fields))
	for name := range mapping.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	field := color.New(color.FgYellow, color.Bold)
	if noColor {
		field.DisableColor()
	}
	for _, name := range names {
		for _, msg := range mapping.Fields[name] {
			fmt.Fprintf(w, "   %s %s\n", field.Sprint(name), Clean(msg))
		}
	}
	for _, msg := range mapping.Form {
		fmt.Fprintf(w, "   %s\n", Clean(msg))
	}
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatNotice(LevelSuccess, message, noColor))
}
