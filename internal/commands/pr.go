package commands

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/models"
	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewPRCmd creates the pr command group.
func NewPRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Manage pull requests",
	}

	cmd.AddCommand(
		newPRListCmd(),
		newPRViewCmd(),
		newPRCreateCmd(),
		newPRMergeCmd(),
		newPRDeclineCmd(),
		newPRApproveCmd(),
	)

	return cmd
}

// prPath builds the API path for one pull request.
func prPath(ws, repo string, id int64, suffix string) string {
	return fmt.Sprintf("/repositories/%s/%s/pullrequests/%d%s",
		url.PathEscape(ws), url.PathEscape(repo), id, suffix)
}

func parsePRID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, output.ErrUsage(fmt.Sprintf("invalid pull request id %q", arg))
	}
	return id, nil
}

func newPRListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pull requests",
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

			path := fmt.Sprintf("/repositories/%s/%s/pullrequests?state=%s",
				url.PathEscape(ws), url.PathEscape(repo), url.QueryEscape(strings.ToUpper(state)))

			prs, err := listAll[models.PullRequest](cmd.Context(), app.API, path)
			if err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), prs)
			}

			if len(prs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s pull requests in %s/%s\n",
					strings.ToLower(state), ws, repo)
				return nil
			}

			rows := make([]table.Row, 0, len(prs))
			for _, pr := range prs {
				src, dst := pr.BranchNames()
				rows = append(rows, table.Row{
					pr.ID,
					truncate(pr.Title, 50),
					fmt.Sprintf("%s -> %s", src, dst),
					pr.Author.Name(),
					pr.State,
				})
			}
			renderTable(cmd.OutOrStdout(), table.Row{"ID", "TITLE", "BRANCHES", "AUTHOR", "STATE"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "open", "Filter by state (open, merged, declined, superseded)")

	return cmd
}

func newPRViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "view <id>",
		Aliases: []string{"get"},
		Short:   "View a pull request",
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
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}

			resp, err := app.API.Get(cmd.Context(), prPath(ws, repo, id, ""))
			if err != nil {
				return err
			}

			var pr models.PullRequest
			if err := resp.UnmarshalData(&pr); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), pr)
			}

			out := cmd.OutOrStdout()
			src, dst := pr.BranchNames()
			fmt.Fprintf(out, "#%d %s [%s]\n", pr.ID, pr.Title, pr.State)
			fmt.Fprintf(out, "%s -> %s\n", src, dst)
			fmt.Fprintf(out, "Author: %s", pr.Author.Name())
			if pr.CreatedOn != nil {
				fmt.Fprintf(out, "  Opened: %s", models.FormatTime(pr.CreatedOn))
			}
			fmt.Fprintln(out)

			if len(pr.Reviewers) > 0 {
				names := make([]string, 0, len(pr.Reviewers))
				for i := range pr.Reviewers {
					names = append(names, pr.Reviewers[i].Name())
				}
				fmt.Fprintf(out, "Reviewers: %s\n", strings.Join(names, ", "))
			}

			if pr.Description != "" {
				fmt.Fprintln(out)
				fmt.Fprint(out, renderMarkdown(pr.Description))
			}
			return nil
		},
	}
}

// renderMarkdown renders markdown for the terminal, falling back to the
// raw text when glamour cannot initialize (e.g. no TTY detection).
func renderMarkdown(source string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return source + "\n"
	}
	rendered, err := r.Render(source)
	if err != nil {
		return source + "\n"
	}
	return rendered
}

func newPRCreateCmd() *cobra.Command {
	var title, source, destination, description string
	var closeSource bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pull request",
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

			if title == "" || source == "" {
				return output.ErrUsage("pr create requires --title and --source")
			}

			body := map[string]any{
				"title":               title,
				"source":              map[string]any{"branch": map[string]string{"name": source}},
				"close_source_branch": closeSource,
			}
			if destination != "" {
				body["destination"] = map[string]any{"branch": map[string]string{"name": destination}}
			}
			if description != "" {
				body["description"] = description
			}

			resp, err := app.API.Post(cmd.Context(),
				fmt.Sprintf("/repositories/%s/%s/pullrequests",
					url.PathEscape(ws), url.PathEscape(repo)), body)
			if err != nil {
				return err
			}

			var pr models.PullRequest
			if err := resp.UnmarshalData(&pr); err != nil {
				return err
			}

			if app.Flags.JSON {
				return printJSON(cmd.OutOrStdout(), pr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created pull request #%d: %s\n", pr.ID, pr.Title)
			if pr.Links != nil && pr.Links.HTML != nil {
				fmt.Fprintln(cmd.OutOrStdout(), pr.Links.HTML.Href)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Pull request title")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source branch")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination branch (default: main branch)")
	cmd.Flags().StringVar(&description, "description", "", "Pull request description (markdown)")
	cmd.Flags().BoolVar(&closeSource, "close-source", false, "Close the source branch after merge")

	return cmd
}

func newPRMergeCmd() *cobra.Command {
	var strategy, message string

	cmd := &cobra.Command{
		Use:   "merge <id>",
		Short: "Merge a pull request",
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
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}

			body := map[string]any{}
			if strategy != "" {
				body["merge_strategy"] = strategy
			}
			if message != "" {
				body["message"] = message
			}

			resp, err := app.API.Post(cmd.Context(), prPath(ws, repo, id, "/merge"), body)
			if err != nil {
				return err
			}

			var pr models.PullRequest
			if err := resp.UnmarshalData(&pr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged pull request #%d\n", pr.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Merge strategy (merge_commit, squash, fast_forward)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Merge commit message")

	return cmd
}

func newPRDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <id>",
		Short: "Decline a pull request",
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
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}

			if _, err := app.API.Post(cmd.Context(), prPath(ws, repo, id, "/decline"), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declined pull request #%d\n", id)
			return nil
		},
	}
}

func newPRApproveCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pull request",
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
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}

			if revoke {
				if _, err := app.API.Delete(cmd.Context(), prPath(ws, repo, id, "/approve")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked approval of pull request #%d\n", id)
				return nil
			}

			if _, err := app.API.Post(cmd.Context(), prPath(ws, repo, id, "/approve"), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved pull request #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke a previous approval")

	return cmd
}
