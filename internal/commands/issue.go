package commands

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/models"
	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewIssueCmd creates the issue command group.
func NewIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Manage issues",
	}

	cmd.AddCommand(
		newIssueListCmd(),
		newIssueViewCmd(),
		newIssueCreateCmd(),
		newIssueCommentCmd(),
		newIssueTransitionCmd(),
	)

	return cmd
}

func issuePath(ws, repo string, id int64, suffix string) string {
	return fmt.Sprintf("/repositories/%s/%s/issues/%d%s",
		url.PathEscape(ws), url.PathEscape(repo), id, suffix)
}

func parseIssueID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, output.ErrUsage(fmt.Sprintf("invalid issue id %q", arg))
	}
	return id, nil
}

func newIssueListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
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

			path := fmt.Sprintf("/repositories/%s/%s/issues?sort=-updated_on",
				url.PathEscape(ws), url.PathEscape(repo))
			if state != "" {
				path += "&q=" + url.QueryEscape(fmt.Sprintf(`state="%s"`, state))
			}

			issues, err := listAll[models.Issue](cmd.Context(), app.API, path)
			if err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), issues)
			}

			if len(issues) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No issues found in %s/%s\n", ws, repo)
				return nil
			}

			rows := make([]table.Row, 0, len(issues))
			for _, is := range issues {
				rows = append(rows, table.Row{
					is.ID,
					truncate(is.Title, 50),
					is.Kind,
					is.Priority,
					is.State,
					is.Assignee.Name(),
				})
			}
			renderTable(cmd.OutOrStdout(),
				table.Row{"ID", "TITLE", "KIND", "PRIORITY", "STATE", "ASSIGNEE"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "Filter by state (new, open, resolved, ...)")

	return cmd
}

func newIssueViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "view <id>",
		Aliases: []string{"get"},
		Short:   "View an issue",
		Args:    cobra.ExactArgs(1),
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
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}

			resp, err := app.API.Get(cmd.Context(), issuePath(ws, repo, id, ""))
			if err != nil {
				return err
			}

			var issue models.Issue
			if err := resp.UnmarshalData(&issue); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), issue)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s [%s]\n", issue.ID, issue.Title, issue.State)
			fmt.Fprintf(out, "Kind: %s  Priority: %s\n", issue.Kind, issue.Priority)
			fmt.Fprintf(out, "Reporter: %s", issue.Reporter.Name())
			if issue.Assignee != nil {
				fmt.Fprintf(out, "  Assignee: %s", issue.Assignee.Name())
			}
			fmt.Fprintln(out)
			if issue.Milestone != nil {
				fmt.Fprintf(out, "Milestone: %s\n", issue.Milestone.Name)
			}

			if body := issue.Body(); body != "" {
				fmt.Fprintln(out)
				fmt.Fprint(out, renderMarkdown(body))
			}
			return nil
		},
	}
}

func newIssueCreateCmd() *cobra.Command {
	var title, content, kind, priority string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
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

			if title == "" {
				return output.ErrUsage("issue create requires --title")
			}

			body := map[string]any{"title": title}
			if content != "" {
				body["content"] = map[string]string{"raw": content}
			}
			if kind != "" {
				body["kind"] = kind
			}
			if priority != "" {
				body["priority"] = priority
			}

			resp, err := app.API.Post(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s/issues",
					url.PathEscape(ws), url.PathEscape(repo)), body)
			if err != nil {
				return err
			}

			var issue models.Issue
			if err := resp.UnmarshalData(&issue); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), issue)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created issue #%d: %s\n", issue.ID, issue.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Issue title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Issue body (markdown)")
	cmd.Flags().StringVar(&kind, "kind", "", "Issue kind (bug, enhancement, proposal, task)")
	cmd.Flags().StringVar(&priority, "priority", "", "Issue priority (trivial, minor, major, critical, blocker)")

	return cmd
}

func newIssueCommentCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "comment <id>",
		Short: "Comment on an issue",
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
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}

			if message == "" {
				return output.ErrUsage("issue comment requires --message")
			}

			body := map[string]any{"content": map[string]string{"raw": message}}
			if _, err := app.API.Post(cmd.Context(), issuePath(ws, repo, id, "/comments"), body); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Commented on issue #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Comment text (markdown)")

	return cmd
}

func newIssueTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <id> <state>",
		Short: "Change an issue's state",
		Args:  cobra.ExactArgs(2),
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
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}

			state := strings.ToLower(args[1])
			if !slices.Contains(models.IssueStates, state) {
				return output.ErrUsage(fmt.Sprintf("invalid state %q; one of: %s",
					args[1], strings.Join(models.IssueStates, ", ")))
			}

			resp, err := app.API.Put(cmd.Context(), issuePath(ws, repo, id, ""),
				map[string]string{"state": state})
			if err != nil {
				return err
			}

			var issue models.Issue
			if err := resp.UnmarshalData(&issue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issue #%d is now %s\n", issue.ID, issue.State)
			return nil
		},
	}
}
