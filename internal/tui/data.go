package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/bitbucket-cli/bkt/internal/api"
	"github.com/bitbucket-cli/bkt/internal/models"
)

// DashboardData is the initial snapshot shown on the dashboard view.
type DashboardData struct {
	User      *models.User
	OpenPRs   []models.PullRequest
	Issues    []models.Issue
	Pipelines []models.Pipeline
}

// Messages delivered by fetch commands.
type (
	dashboardMsg struct {
		data DashboardData
		err  error
	}
	reposMsg struct {
		repos []models.Repository
		err   error
	}
	prsMsg struct {
		prs []models.PullRequest
		err error
	}
	issuesMsg struct {
		issues []models.Issue
		err    error
	}
	pipelinesMsg struct {
		pipelines []models.Pipeline
		err       error
	}
)

// fetchPage loads the first page of a collection. The TUI never walks
// the full cursor chain; one page is enough for a dashboard.
func fetchPage[T any](ctx context.Context, client *api.Client, path string) ([]T, error) {
	resp, err := client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var page models.Page[json.RawMessage]
	if err := resp.UnmarshalData(&page); err != nil {
		return nil, err
	}
	items := make([]T, 0, len(page.Values))
	for _, raw := range page.Values {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func repoCollectionPath(ws, repo, collection, query string) string {
	path := fmt.Sprintf("/repositories/%s/%s/%s", url.PathEscape(ws), url.PathEscape(repo), collection)
	if query != "" {
		path += "?" + query
	}
	return path
}

// fetchDashboard loads the dashboard panels concurrently. A failure in
// any panel fails the whole snapshot; the model shows the error and
// offers a retry.
func (m *Model) fetchDashboard() tea.Cmd {
	client, ws, repo := m.client, m.workspace, m.repo
	ctx := m.ctx
	return func() tea.Msg {
		var data DashboardData
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			resp, err := client.Get(gctx, "/user")
			if err != nil {
				return err
			}
			return resp.UnmarshalData(&data.User)
		})
		g.Go(func() error {
			prs, err := fetchPage[models.PullRequest](gctx, client,
				repoCollectionPath(ws, repo, "pullrequests", "state=OPEN"))
			data.OpenPRs = prs
			return err
		})
		g.Go(func() error {
			issues, err := fetchPage[models.Issue](gctx, client,
				repoCollectionPath(ws, repo, "issues", "sort=-updated_on"))
			data.Issues = issues
			return err
		})
		g.Go(func() error {
			pipelines, err := fetchPage[models.Pipeline](gctx, client,
				repoCollectionPath(ws, repo, "pipelines", "sort=-created_on"))
			data.Pipelines = pipelines
			return err
		})

		if err := g.Wait(); err != nil {
			return dashboardMsg{err: err}
		}
		return dashboardMsg{data: data}
	}
}

func (m *Model) fetchRepos() tea.Cmd {
	client, ws := m.client, m.workspace
	ctx := m.ctx
	return func() tea.Msg {
		repos, err := fetchPage[models.Repository](ctx, client,
			fmt.Sprintf("/repositories/%s?sort=-updated_on", url.PathEscape(ws)))
		return reposMsg{repos: repos, err: err}
	}
}

func (m *Model) fetchPRs() tea.Cmd {
	client, ws, repo := m.client, m.workspace, m.repo
	ctx := m.ctx
	return func() tea.Msg {
		prs, err := fetchPage[models.PullRequest](ctx, client,
			repoCollectionPath(ws, repo, "pullrequests", "state=OPEN"))
		return prsMsg{prs: prs, err: err}
	}
}

func (m *Model) fetchIssues() tea.Cmd {
	client, ws, repo := m.client, m.workspace, m.repo
	ctx := m.ctx
	return func() tea.Msg {
		issues, err := fetchPage[models.Issue](ctx, client,
			repoCollectionPath(ws, repo, "issues", "sort=-updated_on"))
		return issuesMsg{issues: issues, err: err}
	}
}

func (m *Model) fetchPipelines() tea.Cmd {
	client, ws, repo := m.client, m.workspace, m.repo
	ctx := m.ctx
	return func() tea.Msg {
		pipelines, err := fetchPage[models.Pipeline](ctx, client,
			repoCollectionPath(ws, repo, "pipelines", "sort=-created_on"))
		return pipelinesMsg{pipelines: pipelines, err: err}
	}
}
