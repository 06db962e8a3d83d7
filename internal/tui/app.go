package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bitbucket-cli/bkt/internal/api"
	"github.com/bitbucket-cli/bkt/internal/models"
)

// View identifies one of the dashboard tabs.
type View int

const (
	ViewDashboard View = iota
	ViewRepos
	ViewPRs
	ViewIssues
	ViewPipelines
)

var viewNames = map[View]string{
	ViewDashboard: "Dashboard",
	ViewRepos:     "Repos",
	ViewPRs:       "Pull Requests",
	ViewIssues:    "Issues",
	ViewPipelines: "Pipelines",
}

// KeyMap holds the global key bindings.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	Tab5    key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Tab1:    key.NewBinding(key.WithKeys("1")),
		Tab2:    key.NewBinding(key.WithKeys("2")),
		Tab3:    key.NewBinding(key.WithKeys("3")),
		Tab4:    key.NewBinding(key.WithKeys("4")),
		Tab5:    key.NewBinding(key.WithKeys("5")),
	}
}

// Model is the root tea.Model for the dashboard.
type Model struct {
	ctx       context.Context
	client    *api.Client
	workspace string
	repo      string

	styles  *Styles
	keys    KeyMap
	spinner spinner.Model

	view    View
	loading bool
	err     error
	cursor  int

	dashboard DashboardData
	repos     []models.Repository
	prs       []models.PullRequest
	issues    []models.Issue
	pipelines []models.Pipeline

	width, height int
	quitting      bool
}

// New creates the dashboard model scoped to one workspace/repository.
func New(ctx context.Context, client *api.Client, workspace, repo string) *Model {
	styles := NewStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Body.Foreground(styles.theme.Primary)

	return &Model{
		ctx:       ctx,
		client:    client,
		workspace: workspace,
		repo:      repo,
		styles:    styles,
		keys:      DefaultKeyMap(),
		spinner:   sp,
		loading:   true,
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, client *api.Client, workspace, repo string) error {
	p := tea.NewProgram(New(ctx, client, workspace, repo), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchDashboard())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dashboardMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.dashboard = msg.data
		}
		return m, nil

	case reposMsg:
		m.loading = false
		m.err = msg.err
		m.repos = msg.repos
		m.clampCursor()
		return m, nil

	case prsMsg:
		m.loading = false
		m.err = msg.err
		m.prs = msg.prs
		m.clampCursor()
		return m, nil

	case issuesMsg:
		m.loading = false
		m.err = msg.err
		m.issues = msg.issues
		m.clampCursor()
		return m, nil

	case pipelinesMsg:
		m.loading = false
		m.err = msg.err
		m.pipelines = msg.pipelines
		m.clampCursor()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return m, m.switchTo(m.view)

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab1):
		return m, m.switchTo(ViewDashboard)
	case key.Matches(msg, m.keys.Tab2):
		return m, m.switchTo(ViewRepos)
	case key.Matches(msg, m.keys.Tab3):
		return m, m.switchTo(ViewPRs)
	case key.Matches(msg, m.keys.Tab4):
		return m, m.switchTo(ViewIssues)
	case key.Matches(msg, m.keys.Tab5):
		return m, m.switchTo(ViewPipelines)
	}

	return m, nil
}

// switchTo changes the active view and kicks off its fetch.
func (m *Model) switchTo(v View) tea.Cmd {
	m.view = v
	m.cursor = 0
	m.loading = true
	m.err = nil

	var fetch tea.Cmd
	switch v {
	case ViewDashboard:
		fetch = m.fetchDashboard()
	case ViewRepos:
		fetch = m.fetchRepos()
	case ViewPRs:
		fetch = m.fetchPRs()
	case ViewIssues:
		fetch = m.fetchIssues()
	case ViewPipelines:
		fetch = m.fetchPipelines()
	}
	return tea.Batch(m.spinner.Tick, fetch)
}

func (m *Model) rowCount() int {
	switch m.view {
	case ViewRepos:
		return len(m.repos)
	case ViewPRs:
		return len(m.prs)
	case ViewIssues:
		return len(m.issues)
	case ViewPipelines:
		return len(m.pipelines)
	default:
		return 0
	}
}

func (m *Model) clampCursor() {
	if n := m.rowCount(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}
