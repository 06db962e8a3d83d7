package commands

import (
	"fmt"
	"net/url"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/models"
	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewPipelineCmd creates the pipeline command group.
func NewPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage CI pipelines",
	}

	cmd.AddCommand(
		newPipelineListCmd(),
		newPipelineGetCmd(),
		newPipelineTriggerCmd(),
		newPipelineStopCmd(),
		newPipelineLogsCmd(),
	)

	return cmd
}

func pipelinePath(ws, repo, uuid, suffix string) string {
	return fmt.Sprintf("/repositories/%s/%s/pipelines/%s%s",
		url.PathEscape(ws), url.PathEscape(repo), url.PathEscape(uuid), suffix)
}

func newPipelineListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			repo, err := app.Repository()
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/repositories/%s/%s/pipelines?sort=-created_on",
				url.PathEscape(ws), url.PathEscape(repo))

			pipelines, err := listAll[models.Pipeline](cmd.Context(), app.API, path)
			if err != nil {
				return err
			}
			if limit > 0 && len(pipelines) > limit {
				pipelines = pipelines[:limit]
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), pipelines)
			}

			if len(pipelines) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No pipeline runs in %s/%s\n", ws, repo)
				return nil
			}

			rows := make([]table.Row, 0, len(pipelines))
			for _, p := range pipelines {
				rows = append(rows, table.Row{
					p.BuildNumber,
					p.Status(),
					p.Ref(),
					p.Creator.Name(),
					models.FormatTime(p.CreatedOn),
				})
			}
			renderTable(cmd.OutOrStdout(),
				table.Row{"BUILD", "STATUS", "REF", "CREATOR", "STARTED"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func newPipelineGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <uuid-or-build>",
		Short: "Show one pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			repo, err := app.Repository()
			if err != nil {
				return err
			}

			resp, err := app.API.Get(cmd.Context(), pipelinePath(ws, repo, args[0], ""))
			if err != nil {
				return err
			}

			var p models.Pipeline
			if err := resp.UnmarshalData(&p); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), p)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pipeline #%d (%s)\n", p.BuildNumber, p.UUID)
			fmt.Fprintf(out, "  Status:  %s\n", p.Status())
			fmt.Fprintf(out, "  Ref:     %s\n", p.Ref())
			if p.Target != nil && p.Target.Commit != nil {
				fmt.Fprintf(out, "  Commit:  %s\n", truncate(p.Target.Commit.Hash, 12))
			}
			fmt.Fprintf(out, "  Creator: %s\n", p.Creator.Name())
			fmt.Fprintf(out, "  Started: %s\n", models.FormatTime(p.CreatedOn))
			if p.CompletedOn != nil {
				fmt.Fprintf(out, "  Ended:   %s\n", models.FormatTime(p.CompletedOn))
			}
			if p.BuildSecondsUsed > 0 {
				fmt.Fprintf(out, "  Build time: %ds\n", p.BuildSecondsUsed)
			}
			return nil
		},
	}
}

func newPipelineTriggerCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a pipeline run on a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			repo, err := app.Repository()
			if err != nil {
				return err
			}

			if branch == "" {
				return output.ErrUsage("pipeline trigger requires --branch")
			}

			body := map[string]any{
				"target": map[string]any{
					"type":     "pipeline_ref_target",
					"ref_type": "branch",
					"ref_name": branch,
				},
			}

			resp, err := app.API.Post(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s/pipelines",
					url.PathEscape(ws), url.PathEscape(repo)), body)
			if err != nil {
				return err
			}

			var p models.Pipeline
			if err := resp.UnmarshalData(&p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Triggered pipeline #%d on %s\n", p.BuildNumber, branch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to run against")

	return cmd
}

func newPipelineStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <uuid-or-build>",
		Short: "Stop a running pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			repo, err := app.Repository()
			if err != nil {
				return err
			}

			if _, err := app.API.Post(cmd.Context(),
				pipelinePath(ws, repo, args[0], "/stopPipeline"), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped pipeline %s\n", args[0])
			return nil
		},
	}
}

func newPipelineLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <uuid-or-build>",
		Short: "Print the logs of a pipeline's steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			repo, err := app.Repository()
			if err != nil {
				return err
			}

			steps, err := listAll[models.PipelineStep](cmd.Context(), app.API,
				pipelinePath(ws, repo, args[0], "/steps"))
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No steps found")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, step := range steps {
				fmt.Fprintf(out, "=== %s ===\n", step.Name)
				resp, err := app.API.Get(cmd.Context(),
					pipelinePath(ws, repo, args[0], "/steps/"+url.PathEscape(step.UUID)+"/log"))
				if err != nil {
					fmt.Fprintf(out, "(log unavailable: %v)\n", err)
					continue
				}
				out.Write(resp.Data)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
