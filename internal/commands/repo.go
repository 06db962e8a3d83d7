package commands

import (
	"fmt"
	"net/url"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/models"
	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewRepoCmd creates the repo command group.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
	}

	cmd.AddCommand(
		newRepoListCmd(),
		newRepoGetCmd(),
		newRepoCreateCmd(),
		newRepoDeleteCmd(),
	)

	return cmd
}

func newRepoListCmd() *cobra.Command {
	var role string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/repositories/%s?sort=-updated_on", url.PathEscape(ws))
			if role != "" {
				path += "&role=" + url.QueryEscape(role)
			}

			repos, err := listAll[models.Repository](cmd.Context(), app.API, path)
			if err != nil {
				return err
			}
			if limit > 0 && len(repos) > limit {
				repos = repos[:limit]
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), repos)
			}

			if len(repos) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No repositories found in workspace %s\n", ws)
				return nil
			}

			rows := make([]table.Row, 0, len(repos))
			for _, r := range repos {
				rows = append(rows, table.Row{
					r.Slug,
					truncate(r.Description, 50),
					r.Visibility(),
					models.FormatTime(r.UpdatedOn),
				})
			}
			renderTable(cmd.OutOrStdout(), table.Row{"SLUG", "DESCRIPTION", "VISIBILITY", "UPDATED"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role (owner, admin, contributor, member)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of repositories to show")

	return cmd
}

func newRepoGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Show repository details",
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

			resp, err := app.API.Get(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s", url.PathEscape(ws), url.PathEscape(args[0])))
			if err != nil {
				return err
			}

			var repo models.Repository
			if err := resp.UnmarshalData(&repo); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), repo)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", repo.FullName)
			if repo.Description != "" {
				fmt.Fprintf(out, "%s\n", repo.Description)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Visibility: %s\n", repo.Visibility())
			if repo.Language != "" {
				fmt.Fprintf(out, "  Language:   %s\n", repo.Language)
			}
			if repo.MainBranch != nil {
				fmt.Fprintf(out, "  Branch:     %s\n", repo.MainBranch.Name)
			}
			if repo.Project != nil {
				fmt.Fprintf(out, "  Project:    %s (%s)\n", repo.Project.Name, repo.Project.Key)
			}
			if repo.Size > 0 {
				fmt.Fprintf(out, "  Size:       %d KB\n", repo.Size/1024)
			}
			fmt.Fprintf(out, "  Updated:    %s\n", models.FormatTime(repo.UpdatedOn))
			if repo.Links != nil && repo.Links.HTML != nil {
				fmt.Fprintf(out, "  URL:        %s\n", repo.Links.HTML.Href)
			}
			return nil
		},
	}
}

func newRepoCreateCmd() *cobra.Command {
	var description string
	var private bool
	var project string

	cmd := &cobra.Command{
		Use:   "create <slug>",
		Short: "Create a repository",
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

			body := map[string]any{
				"scm":        "git",
				"is_private": private,
			}
			if description != "" {
				body["description"] = description
			}
			if project != "" {
				body["project"] = map[string]string{"key": project}
			}

			resp, err := app.API.Post(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s", url.PathEscape(ws), url.PathEscape(args[0])), body)
			if err != nil {
				return err
			}

			var repo models.Repository
			if err := resp.UnmarshalData(&repo); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), repo)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created repository %s (%s)\n", repo.FullName, repo.Visibility())
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Repository description")
	cmd.Flags().BoolVar(&private, "private", true, "Make the repository private")
	cmd.Flags().StringVar(&project, "project", "", "Project key to create the repository under")

	return cmd
}

func newRepoDeleteCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a repository",
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

			if !confirm {
				return output.ErrUsage(fmt.Sprintf(
					"deleting %s/%s is irreversible; re-run with --confirm", ws, args[0]))
			}

			if _, err := app.API.Delete(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s", url.PathEscape(ws), url.PathEscape(args[0]))); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted repository %s/%s\n", ws, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the deletion")

	return cmd
}
