package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlanghorne/ghactions/toolkit"
)

func contextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the GitHub context derived from the environment",
		Long: "Summarize the GITHUB_* environment the way a step sees it. " +
			"Useful inside a job for debugging, or locally with variables " +
			"exported by hand.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := toolkit.New()
			out := cmd.OutOrStdout()
			rows := []struct {
				label string
				value string
			}{
				{"event", ctx.EventName()},
				{"ref", ctx.Ref()},
				{"ref name", ctx.RefName()},
				{"ref type", ctx.RefType()},
				{"sha", ctx.SHA()},
				{"actor", ctx.Actor()},
				{"workflow", ctx.Workflow()},
				{"job", ctx.Job()},
				{"server", ctx.ServerURL()},
				{"api", ctx.APIURL()},
				{"workspace", ctx.Workspace()},
			}
			if repo, ok := ctx.Repository(); ok {
				fmt.Fprintf(out, "%-12s %s\n", "repository", repo.String())
			}
			for _, row := range rows {
				if row.value == "" {
					continue
				}
				fmt.Fprintf(out, "%-12s %s\n", row.label, row.value)
			}
			if issue, ok := ctx.IssueRef(); ok {
				fmt.Fprintf(out, "%-12s %s/%s#%d\n", "issue", issue.Owner, issue.Repo, issue.Number)
			}
			return nil
		},
	}
}
