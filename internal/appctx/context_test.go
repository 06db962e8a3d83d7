package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbucket-cli/bkt/internal/config"
)

func TestWithAppAndFromContext(t *testing.T) {
	app := &App{Config: &config.Config{}}
	ctx := WithApp(context.Background(), app)

	assert.Same(t, app, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestWorkspaceResolution(t *testing.T) {
	app := &App{Config: &config.Config{}}

	_, err := app.Workspace()
	assert.Error(t, err, "no flag and no default is a usage error")

	app.Config.DefaultWorkspace = "acme"
	ws, err := app.Workspace()
	require.NoError(t, err)
	assert.Equal(t, "acme", ws)

	app.Flags.Workspace = "other"
	ws, err = app.Workspace()
	require.NoError(t, err)
	assert.Equal(t, "other", ws, "flag wins over config default")
}

func TestRepositoryResolution(t *testing.T) {
	app := &App{Config: &config.Config{DefaultRepository: "website"}}

	repo, err := app.Repository()
	require.NoError(t, err)
	assert.Equal(t, "website", repo)

	app.Flags.Repo = "api-server"
	repo, err = app.Repository()
	require.NoError(t, err)
	assert.Equal(t, "api-server", repo)
}
