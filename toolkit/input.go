package toolkit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInputMissing is returned when a required input has no value.
var ErrInputMissing = errors.New("toolkit: required input is missing")

// Input returns the value of the named action input, trimmed of surrounding
// whitespace. Inputs are surfaced by the runner as INPUT_<NAME> with spaces
// replaced by underscores.
func (c *Context) Input(name string) string {
	return strings.TrimSpace(c.env[inputKey(name)])
}

// RequiredInput returns the named input or ErrInputMissing when empty.
func (c *Context) RequiredInput(name string) (string, error) {
	value := c.Input(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrInputMissing, name)
	}
	return value, nil
}

// BoolInput parses the named input using the YAML 1.2 core-schema boolean
// forms accepted by the runner.
func (c *Context) BoolInput(name string) (bool, error) {
	value := c.Input(name)
	switch value {
	case "true", "True", "TRUE":
		return true, nil
	case "false", "False", "FALSE":
		return false, nil
	case "":
		return false, fmt.Errorf("%w: %s", ErrInputMissing, name)
	default:
		return false, fmt.Errorf("toolkit: input %s is not a boolean: %q", name, value)
	}
}

// MultilineInput splits the named input on newlines, dropping empty lines and
// trimming each entry.
func (c *Context) MultilineInput(name string) []string {
	raw := c.env[inputKey(name)]
	if raw == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func inputKey(name string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return "INPUT_" + strings.ToUpper(normalized)
}
