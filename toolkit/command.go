package toolkit

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// AnnotationProps attaches source location metadata to notice, warning, and
// error commands so the runner can surface them inline in the diff view.
type AnnotationProps struct {
	Title       string
	File        string
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
}

// Commander issues workflow commands on the step's stdout. The zero value is
// not usable; construct one with NewCommander.
type Commander struct {
	out io.Writer
}

// CommanderOption customizes a Commander during construction.
type CommanderOption func(*Commander)

// WithWriter redirects command output, primarily for tests.
func WithWriter(w io.Writer) CommanderOption {
	return func(c *Commander) {
		if w != nil {
			c.out = w
		}
	}
}

// NewCommander builds a Commander writing to stdout unless overridden.
func NewCommander(opts ...CommanderOption) *Commander {
	c := &Commander{out: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Debug writes a ::debug:: command. The runner only surfaces these when step
// debug logging is enabled.
func (c *Commander) Debug(message string) {
	c.issue("debug", nil, message)
}

// Notice writes a ::notice:: annotation.
func (c *Commander) Notice(message string, props AnnotationProps) {
	c.issue("notice", props.commandProperties(), message)
}

// Warning writes a ::warning:: annotation.
func (c *Commander) Warning(message string, props AnnotationProps) {
	c.issue("warning", props.commandProperties(), message)
}

// Error writes an ::error:: annotation.
func (c *Commander) Error(message string, props AnnotationProps) {
	c.issue("error", props.commandProperties(), message)
}

// Group opens a collapsible log group.
func (c *Commander) Group(title string) {
	c.issue("group", nil, title)
}

// EndGroup closes the current log group.
func (c *Commander) EndGroup() {
	c.issue("endgroup", nil, "")
}

// AddMask registers a value to be masked in log output from this point on.
func (c *Commander) AddMask(value string) {
	c.issue("add-mask", nil, value)
}

// SetCommandEcho toggles echoing of workflow commands into the log.
func (c *Commander) SetCommandEcho(enabled bool) {
	value := "off"
	if enabled {
		value = "on"
	}
	c.issue("echo", nil, value)
}

func (c *Commander) issue(command string, props map[string]string, message string) {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(command)
	if len(props) > 0 {
		keys := make([]string, 0, len(props))
		for key, value := range props {
			if value == "" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		sep := " "
		for _, key := range keys {
			b.WriteString(sep)
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(escapeProperty(props[key]))
			sep = ","
		}
	}
	b.WriteString("::")
	b.WriteString(escapeData(message))
	fmt.Fprintln(c.out, b.String())
}

func (p AnnotationProps) commandProperties() map[string]string {
	props := map[string]string{}
	if p.Title != "" {
		props["title"] = p.Title
	}
	if p.File != "" {
		props["file"] = p.File
	}
	if p.StartLine > 0 {
		props["line"] = fmt.Sprintf("%d", p.StartLine)
	}
	if p.EndLine > 0 {
		props["endLine"] = fmt.Sprintf("%d", p.EndLine)
	}
	if p.StartColumn > 0 {
		props["col"] = fmt.Sprintf("%d", p.StartColumn)
	}
	if p.EndColumn > 0 {
		props["endColumn"] = fmt.Sprintf("%d", p.EndColumn)
	}
	return props
}

// escapeData encodes characters that would terminate a command early.
func escapeData(value string) string {
	replacer := strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
	)
	return replacer.Replace(value)
}

// escapeProperty additionally encodes the property delimiters.
func escapeProperty(value string) string {
	replacer := strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
		":", "%3A",
		",", "%2C",
	)
	return replacer.Replace(value)
}
