package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlanghorne/ghactions/internal/config"
	"github.com/mlanghorne/ghactions/internal/lint"
)

func lintCmd(projectDir *string) *cobra.Command {
	var dir string
	var disable []string

	c := &cobra.Command{
		Use:   "lint [file...]",
		Short: "Check workflow files for configuration mistakes",
		Long: "Lint the given workflow files, or every .yml/.yaml file in the " +
			"configured workflows directory when no files are named. Exits " +
			"non-zero when any error-severity finding is reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(root)
			if err != nil {
				return err
			}
			opts := lint.Options{Disabled: append(cfg.DisabledLintRules(), disable...)}

			paths := args
			if len(paths) == 0 {
				base := dir
				if base == "" {
					base = cfg.WorkflowsDir()
				}
				paths, err = workflowFiles(base)
				if err != nil {
					return err
				}
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workflow files found")
				return nil
			}

			var all []lint.Finding
			for _, path := range paths {
				findings, err := lint.CheckFile(path, opts)
				if err != nil {
					return err
				}
				all = append(all, findings...)
			}
			for _, finding := range all {
				fmt.Fprintln(cmd.OutOrStdout(), finding.String())
			}
			if lint.HasErrors(all) {
				return fmt.Errorf("cli: lint found errors in %d file(s)", len(paths))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked %d file(s): %d finding(s)\n", len(paths), len(all))
			return nil
		},
	}

	c.Flags().StringVarP(&dir, "dir", "d", "", "Workflow directory (defaults to the configured workflows dir)")
	c.Flags().StringSliceVar(&disable, "disable", nil, "Rule identifiers to disable for this run")
	return c
}

func workflowFiles(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("cli: read workflows dir %s: %w", base, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(base, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
