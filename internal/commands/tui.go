package commands

import (
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/output"
	"github.com/bitbucket-cli/bkt/internal/tui"
)

// NewTUICmd creates the interactive dashboard command.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
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

			if !app.Auth.IsAuthenticated() {
				return output.ErrAuthHint("Not authenticated", "Run 'bkt auth login' first")
			}

			return tui.Run(cmd.Context(), app.API, ws, repo)
		},
	}
}
