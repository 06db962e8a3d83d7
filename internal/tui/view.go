package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bitbucket-cli/bkt/internal/models"
)

const maxRows = 15

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading...")
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: "+m.err.Error()) + "\n")
		b.WriteString(m.styles.Muted.Render("Press r to retry"))
	default:
		b.WriteString(m.renderBody())
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("1-5 views · ↑/↓ move · r refresh · q quit"))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("bkt")
	scope := m.styles.Subtitle.Render(fmt.Sprintf("  %s/%s", m.workspace, m.repo))
	return title + scope
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(viewNames))
	for v := ViewDashboard; v <= ViewPipelines; v++ {
		label := fmt.Sprintf("%d %s", int(v)+1, viewNames[v])
		if v == m.view {
			tabs = append(tabs, m.styles.TabOn.Render(label))
		} else {
			tabs = append(tabs, m.styles.TabOff.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderBody() string {
	switch m.view {
	case ViewDashboard:
		return m.renderDashboard()
	case ViewRepos:
		return m.renderRepos()
	case ViewPRs:
		return m.renderPRs()
	case ViewIssues:
		return m.renderIssues()
	case ViewPipelines:
		return m.renderPipelines()
	}
	return ""
}

func (m *Model) renderDashboard() string {
	d := m.dashboard
	var b strings.Builder

	if d.User != nil {
		b.WriteString(m.styles.Body.Render("Signed in as "+d.User.Name()) + "\n\n")
	}

	prPanel := m.renderPanel(fmt.Sprintf("Open PRs (%d)", len(d.OpenPRs)), summarizePRs(d.OpenPRs))
	issuePanel := m.renderPanel(fmt.Sprintf("Issues (%d)", len(d.Issues)), summarizeIssues(d.Issues))
	pipePanel := m.renderPanel(fmt.Sprintf("Pipelines (%d)", len(d.Pipelines)), summarizePipelines(d.Pipelines))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, prPanel, " ", issuePanel, " ", pipePanel))
	return b.String()
}

func (m *Model) renderPanel(title string, lines []string) string {
	content := m.styles.Title.Render(title) + "\n"
	if len(lines) == 0 {
		content += m.styles.Muted.Render("none")
	} else {
		content += strings.Join(lines, "\n")
	}
	return m.styles.Box.Render(content)
}

func summarizePRs(prs []models.PullRequest) []string {
	lines := make([]string, 0, min(len(prs), 5))
	for i, pr := range prs {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("#%d %s", pr.ID, clip(pr.Title, 32)))
	}
	return lines
}

func summarizeIssues(issues []models.Issue) []string {
	lines := make([]string, 0, min(len(issues), 5))
	for i, is := range issues {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("#%d %s", is.ID, clip(is.Title, 32)))
	}
	return lines
}

func summarizePipelines(pipelines []models.Pipeline) []string {
	lines := make([]string, 0, min(len(pipelines), 5))
	for i, p := range pipelines {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("#%d %s %s", p.BuildNumber, p.Status(), clip(p.Ref(), 20)))
	}
	return lines
}

func (m *Model) renderRepos() string {
	if len(m.repos) == 0 {
		return m.styles.Muted.Render("No repositories")
	}
	var b strings.Builder
	for i, r := range m.repos {
		if i == maxRows {
			break
		}
		line := fmt.Sprintf("%-28s %-8s %s", clip(r.Slug, 28), r.Visibility(), clip(r.Description, 40))
		b.WriteString(m.renderRow(i, line))
	}
	return b.String()
}

func (m *Model) renderPRs() string {
	if len(m.prs) == 0 {
		return m.styles.Muted.Render("No open pull requests")
	}
	var b strings.Builder
	for i, pr := range m.prs {
		if i == maxRows {
			break
		}
		src, dst := pr.BranchNames()
		line := fmt.Sprintf("#%-5d %-40s %s  %s -> %s",
			pr.ID, clip(pr.Title, 40), m.styles.StateStyle(pr.State).Render(pr.State), src, dst)
		b.WriteString(m.renderRow(i, line))
	}
	return b.String()
}

func (m *Model) renderIssues() string {
	if len(m.issues) == 0 {
		return m.styles.Muted.Render("No issues")
	}
	var b strings.Builder
	for i, is := range m.issues {
		if i == maxRows {
			break
		}
		line := fmt.Sprintf("#%-5d %-40s %-10s %s",
			is.ID, clip(is.Title, 40), is.Kind, m.styles.StateStyle(is.State).Render(is.State))
		b.WriteString(m.renderRow(i, line))
	}
	return b.String()
}

func (m *Model) renderPipelines() string {
	if len(m.pipelines) == 0 {
		return m.styles.Muted.Render("No pipeline runs")
	}
	var b strings.Builder
	for i, p := range m.pipelines {
		if i == maxRows {
			break
		}
		status := p.Status()
		line := fmt.Sprintf("#%-5d %-24s %-20s %s",
			p.BuildNumber, m.styles.StateStyle(status).Render(status), clip(p.Ref(), 20),
			models.FormatTime(p.CreatedOn))
		b.WriteString(m.renderRow(i, line))
	}
	return b.String()
}

// renderRow highlights the cursor line.
func (m *Model) renderRow(i int, line string) string {
	if i == m.cursor {
		return m.styles.Selected.Render(line) + "\n"
	}
	return m.styles.Body.Render(" "+line) + "\n"
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
