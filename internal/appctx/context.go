// Package appctx carries the shared application context through
// cobra's command context.
package appctx

import (
	"context"

	"github.com/bitbucket-cli/bkt/internal/api"
	"github.com/bitbucket-cli/bkt/internal/auth"
	"github.com/bitbucket-cli/bkt/internal/config"
	"github.com/bitbucket-cli/bkt/internal/output"
)

type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	API    *api.Client
	Flags  GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	Workspace string
	Repo      string
	JSON      bool
	Verbose   int
}

// NewApp creates an App: backend selection happens here, once.
func NewApp(cfg *config.Config) (*App, error) {
	mgr, err := auth.NewManager()
	if err != nil {
		return nil, err
	}
	return &App{
		Config: cfg,
		Auth:   mgr,
		API:    api.NewClient(cfg, mgr),
	}, nil
}

// Workspace resolves the workspace from the flag, then the configured
// default.
func (a *App) Workspace() (string, error) {
	if a.Flags.Workspace != "" {
		return a.Flags.Workspace, nil
	}
	if a.Config.DefaultWorkspace != "" {
		return a.Config.DefaultWorkspace, nil
	}
	return "", output.ErrUsage("no workspace specified; use --workspace or set default_workspace via: bkt config set default_workspace <slug>")
}

// Repository resolves the repository slug from the flag, then the
// configured default.
func (a *App) Repository() (string, error) {
	if a.Flags.Repo != "" {
		return a.Flags.Repo, nil
	}
	if a.Config.DefaultRepository != "" {
		return a.Config.DefaultRepository, nil
	}
	return "", output.ErrUsage("no repository specified; use --repo or set default_repository via: bkt config set default_repository <slug>")
}

// WithApp stores the app in a context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from a context, or nil.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
