// Package cli wires the root command and its subcommands.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/appctx"
	"github.com/bitbucket-cli/bkt/internal/commands"
	"github.com/bitbucket-cli/bkt/internal/config"
	"github.com/bitbucket-cli/bkt/internal/output"
	"github.com/bitbucket-cli/bkt/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "bkt",
		Short:         "Command-line interface for Bitbucket Cloud",
		Long:          "bkt is a CLI tool for working with Bitbucket repositories, pull requests, issues, and pipelines.",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			configureLogging(flags.Verbose)

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			app, err := appctx.NewApp(cfg)
			if err != nil {
				return err
			}
			app.Flags = flags

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	cmd.PersistentFlags().StringVarP(&flags.Workspace, "workspace", "w", "", "Workspace slug")
	cmd.PersistentFlags().StringVarP(&flags.Repo, "repo", "r", "", "Repository slug")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "Output as JSON")
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for debug, -vv for traces)")

	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewRepoCmd())
	cmd.AddCommand(commands.NewPRCmd())
	cmd.AddCommand(commands.NewIssueCmd())
	cmd.AddCommand(commands.NewPipelineCmd())
	cmd.AddCommand(commands.NewAPICmd())
	cmd.AddCommand(commands.NewConfigCmd())
	cmd.AddCommand(commands.NewTUICmd())

	return cmd
}

// configureLogging maps -v counts onto logrus levels. The default only
// shows warnings so table output stays clean.
func configureLogging(verbose int) {
	logrus.SetOutput(os.Stderr)
	switch {
	case verbose >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case verbose == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// Execute runs the root command and exits with the mapped code on
// failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(output.PrintError(os.Stderr, err))
	}
}
