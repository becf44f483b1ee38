package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/cmd/completion"
	"github.com/astral-step/astrovpn/pkg/cmd/decode"
	"github.com/astral-step/astrovpn/pkg/cmd/fetch"
	"github.com/astral-step/astrovpn/pkg/cmd/generate"
	"github.com/astral-step/astrovpn/pkg/cmd/probe"
	profilecmd "github.com/astral-step/astrovpn/pkg/cmd/profile"
)

// Execute is the single entry point for the CLI.
func Execute(version, commit string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New()
	root := NewRootCommand(a, version, commit)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the CLI with all subcommands attached.
func NewRootCommand(a *app.App, version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:          "astrovpn",
		Short:        "Generate, decode and manage astrovpn:// profile URLs",
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.OutWriter = cmd.OutOrStdout()
			a.ErrWriter = cmd.ErrOrStderr()
			a.InReader = cmd.InOrStdin()

			if a.OutWriter != os.Stdout {
				a.ColorableOut = a.OutWriter
			}

			return a.InitConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation prints usage but still fails.
			cmd.SilenceErrors = true
			if err := cmd.Help(); err != nil {
				return err
			}
			return errors.New("no command provided")
		},
	}

	root.PersistentFlags().StringVar(&a.CfgFile, "config", "", "config file (default is $HOME/.astrovpn/config)")
	root.PersistentFlags().StringVarP(&a.ProfileOverride, "profile", "p", "", "set a temporary current profile")

	root.AddCommand(
		generate.NewCommand(a),
		decode.NewCommand(a),
		fetch.NewCommand(a),
		probe.NewCommand(a),
		profilecmd.NewCommand(a),
		profilecmd.NewProfilesAlias(a),
		completion.NewCommand(root, a),
	)

	a.Root = root
	return root
}
