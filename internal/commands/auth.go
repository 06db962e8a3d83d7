package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/api"
	"github.com/bitbucket-cli/bkt/internal/appctx"
	"github.com/bitbucket-cli/bkt/internal/auth"
	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Manage Bitbucket authentication including login, logout, status, and token refresh.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthTokenCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var useOAuth bool
	var useAPIKey bool
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Bitbucket",
		Long:  "Authenticate via the OAuth browser flow, or with --api-key for automation and CI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			if useOAuth && useAPIKey {
				return output.ErrUsage("--oauth and --api-key are mutually exclusive")
			}
			if useAPIKey {
				return apiKeyLogin(cmd, app)
			}

			if app.Config.OAuthKey == "" || app.Config.OAuthSecret == "" {
				return output.ErrUsage("no OAuth consumer configured; set oauth_key and oauth_secret " +
					"(bkt config set oauth_key <key>) or log in with --api-key")
			}

			flow := auth.NewOAuthFlow(app.Auth, app.Config.OAuthKey, app.Config.OAuthSecret)
			if noBrowser {
				flow.Browser = func(string) error {
					return fmt.Errorf("browser disabled")
				}
			}

			cred, err := flow.Login(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully authenticated via %s\n", cred.TypeName())
			return nil
		},
	}

	cmd.Flags().BoolVar(&useOAuth, "oauth", false, "Use the OAuth browser flow (default)")
	cmd.Flags().BoolVar(&useAPIKey, "api-key", false, "Use API key authentication (for automation/CI)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open the browser automatically")

	return cmd
}

// apiKeyLogin prompts for a username and HTTP access token, validates
// the pair against the API, and only then persists it. The username is
// handed to config for display purposes only.
func apiKeyLogin(cmd *cobra.Command, app *appctx.App) error {
	var username, apiKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bitbucket username").
				Value(&username),
			huh.NewInput().
				Title("API key (HTTP access token)").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return output.ErrUsage("API key cannot be empty")
	}

	cred := auth.NewAPIKey(username, apiKey)

	fmt.Fprintln(cmd.OutOrStdout(), "Validating credentials...")
	user, err := api.ValidateCredential(cmd.Context(), app.Config.BaseURL, cred)
	if err != nil {
		return err
	}

	if err := app.Auth.StoreCredentials(cred); err != nil {
		return err
	}

	app.Config.Username = username
	if err := app.Config.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully authenticated as %s\n", user.Name())
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			if err := app.Auth.ClearCredentials(); err != nil {
				return err
			}

			app.Config.ClearAuth()
			if err := app.Config.Save(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			cred, err := app.Auth.Credentials()
			if err != nil {
				return err
			}
			if cred == nil {
				fmt.Fprintln(out, "Not authenticated")
				fmt.Fprintln(out, "Run 'bkt auth login' to authenticate")
				return nil
			}

			fmt.Fprintln(out, "Authenticated")
			fmt.Fprintf(out, "  Method:  %s\n", cred.TypeName())
			if name := cred.User(); name != "" {
				fmt.Fprintf(out, "  Username: %s\n", name)
			} else if app.Config.Username != "" {
				fmt.Fprintf(out, "  Username: %s\n", app.Config.Username)
			}
			if cred.IsOAuth() && cred.ExpiresAt > 0 {
				fmt.Fprintf(out, "  Expires: %s\n", time.Unix(cred.ExpiresAt, 0).Local().Format(time.RFC1123))
			}
			if app.Auth.UsingKeyring() {
				fmt.Fprintln(out, "  Storage: system keyring")
			} else {
				fmt.Fprintln(out, "  Storage: credential file")
			}
			if ws := app.Config.DefaultWorkspace; ws != "" {
				fmt.Fprintf(out, "  Workspace: %s\n", ws)
			}

			return nil
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an OAuth token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			cred, err := app.Auth.Credentials()
			if err != nil {
				return err
			}
			if cred == nil {
				return output.ErrAuth("Not authenticated")
			}
			if !cred.IsOAuth() {
				return output.ErrUsage("API key credentials do not expire; nothing to refresh")
			}

			flow := auth.NewOAuthFlow(app.Auth, app.Config.OAuthKey, app.Config.OAuthSecret)
			refreshed, err := flow.Refresh(cmd.Context(), cred.RefreshToken)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed, valid until %s\n",
				time.Unix(refreshed.ExpiresAt, 0).Local().Format(time.RFC1123))
			return nil
		},
	}
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the current access token",
		Long:  "Print the current OAuth access token, for use with curl or other tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			cred, err := app.Auth.Credentials()
			if err != nil {
				return err
			}
			if cred == nil {
				return output.ErrAuth("Not authenticated")
			}
			if !cred.IsOAuth() {
				return output.ErrUsage("token printing is only available for OAuth credentials")
			}

			fmt.Fprintln(cmd.OutOrStdout(), cred.AccessToken)
			return nil
		},
	}
}
