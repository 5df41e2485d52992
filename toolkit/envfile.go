package toolkit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ErrFileCommandUnset is returned when the runner did not provide the
// environment file backing a command (e.g. GITHUB_OUTPUT outside a step).
var ErrFileCommandUnset = errors.New("toolkit: command file environment variable is not set")

// SetOutput records a step output via the GITHUB_OUTPUT command file.
func (c *Context) SetOutput(name, value string) error {
	return c.appendFileCommand("GITHUB_OUTPUT", name, value)
}

// ExportVariable makes an environment variable available to subsequent steps
// via the GITHUB_ENV command file.
func (c *Context) ExportVariable(name, value string) error {
	return c.appendFileCommand("GITHUB_ENV", name, value)
}

// SaveState persists state readable by the post phase of the same action via
// the GITHUB_STATE command file.
func (c *Context) SaveState(name, value string) error {
	return c.appendFileCommand("GITHUB_STATE", name, value)
}

// AddPath prepends a directory to the PATH of subsequent steps via the
// GITHUB_PATH command file.
func (c *Context) AddPath(dir string) error {
	path := c.env["GITHUB_PATH"]
	if path == "" {
		return fmt.Errorf("%w: GITHUB_PATH", ErrFileCommandUnset)
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("toolkit: path entry is required")
	}
	return appendLine(path, dir)
}

func (c *Context) appendFileCommand(envKey, name, value string) error {
	path := c.env[envKey]
	if path == "" {
		return fmt.Errorf("%w: %s", ErrFileCommandUnset, envKey)
	}
	entry, err := formatKeyValue(name, value)
	if err != nil {
		return err
	}
	return appendLine(path, entry)
}

// formatKeyValue renders a key/value pair in the command file format. Values
// containing newlines use a heredoc block with a random delimiter so the
// runner cannot be tricked into reading injected pairs.
func formatKeyValue(name, value string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("toolkit: name is required")
	}
	if strings.ContainsAny(name, "=\r\n") {
		return "", fmt.Errorf("toolkit: name %q contains reserved characters", name)
	}
	if !strings.ContainsAny(value, "\r\n") {
		return name + "=" + value, nil
	}
	delimiter := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("toolkit: value for %s contains the generated delimiter", name)
	}
	return name + "<<" + delimiter + "\n" + value + "\n" + delimiter, nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("toolkit: open command file %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("toolkit: append command file %s: %w", path, err)
	}
	return nil
}
