package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlanghorne/ghactions/internal/event"
)

func eventCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "event",
		Short: "Inspect webhook event payloads",
	}
	c.AddCommand(eventShowCmd(), eventGetCmd())
	return c
}

// resolveEventInput picks the payload file and event name from flags, falling
// back to the GITHUB_EVENT_PATH / GITHUB_EVENT_NAME variables a runner sets.
func resolveEventInput(file, name string) (string, string, error) {
	if file == "" {
		file = os.Getenv("GITHUB_EVENT_PATH")
	}
	if file == "" {
		return "", "", fmt.Errorf("cli: no payload file; pass --file or set GITHUB_EVENT_PATH")
	}
	if name == "" {
		name = os.Getenv("GITHUB_EVENT_NAME")
	}
	if name == "" {
		name = "unknown"
	}
	return file, name, nil
}

func eventShowCmd() *cobra.Command {
	var file string
	var name string
	var raw bool

	c := &cobra.Command{
		Use:   "show",
		Short: "Summarize an event payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, eventName, err := resolveEventInput(file, name)
			if err != nil {
				return err
			}
			ev, err := event.ParseFile(eventName, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ev.Describe())
			if raw {
				pretty, err := json.MarshalIndent(ev.Raw, "", "  ")
				if err != nil {
					return fmt.Errorf("cli: render payload: %w", err)
				}
				fmt.Fprintln(out, string(pretty))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Payload file (defaults to GITHUB_EVENT_PATH)")
	c.Flags().StringVarP(&name, "name", "n", "", "Event name (defaults to GITHUB_EVENT_NAME)")
	c.Flags().BoolVar(&raw, "raw", false, "Also print the full payload")
	return c
}

func eventGetCmd() *cobra.Command {
	var file string
	var name string

	c := &cobra.Command{
		Use:   "get <jsonpath>",
		Short: "Extract a value from an event payload with JSONPath",
		Long: "Evaluate a JSONPath expression against the payload, e.g.\n" +
			"  ghactions event get '$.pull_request.head.ref'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, eventName, err := resolveEventInput(file, name)
			if err != nil {
				return err
			}
			ev, err := event.ParseFile(eventName, path)
			if err != nil {
				return err
			}
			value, err := ev.Query(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch v := value.(type) {
			case string:
				fmt.Fprintln(out, v)
			default:
				encoded, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("cli: render value: %w", err)
				}
				fmt.Fprintln(out, strings.TrimSpace(string(encoded)))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Payload file (defaults to GITHUB_EVENT_PATH)")
	c.Flags().StringVarP(&name, "name", "n", "", "Event name (defaults to GITHUB_EVENT_NAME)")
	return c
}
