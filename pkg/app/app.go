package app

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/config"
)

// App holds all shared mutable state for the CLI. It is created once per
// invocation and threaded into every command package.
type App struct {
	// I/O
	OutWriter    io.Writer
	ErrWriter    io.Writer
	InReader     io.Reader
	ColorableOut io.Writer

	// Config state
	Cfg             config.Config
	CurrentProfile  *config.StoredProfile
	CfgFile         string
	ProfileOverride string

	// Display
	NoHeaderFlag bool

	// Root command reference (for completion generation)
	Root *cobra.Command
}

// New creates an App with sane defaults.
func New() *App {
	return &App{
		OutWriter:    os.Stdout,
		ErrWriter:    os.Stderr,
		InReader:     os.Stdin,
		ColorableOut: colorable.NewColorableStdout(),
	}
}

// InitConfig reads the config file and resolves the active profile.
// Called by PersistentPreRunE on the root command.
func (a *App) InitConfig() error {
	var err error
	a.Cfg, err = config.ReadConfig(a.CfgFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.Cfg.ProfileOverride = a.ProfileOverride

	a.CurrentProfile = a.Cfg.ActiveProfile()
	if a.ProfileOverride != "" && a.CurrentProfile == nil {
		return fmt.Errorf("profile %q not found", a.ProfileOverride)
	}

	return nil
}

// AddNoHeadersFlag installs --no-headers on cmd.
func (a *App) AddNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.NoHeaderFlag, "no-headers", false, "Hide table headers")
}

// ValidProfileArgs provides shell completion for stored profile names.
func (a *App) ValidProfileArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(a.Cfg.Profiles))
	for _, profile := range a.Cfg.Profiles {
		names = append(names, profile.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

const (
	TabwriterMinWidth       = 6
	TabwriterMinWidthNested = 2
	TabwriterWidth          = 4
	TabwriterPadding        = 3
	TabwriterPadChar        = ' '
	TabwriterFlags          = 0
)

// NewTabWriter creates a standard tabwriter for CLI output.
func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, TabwriterMinWidth, TabwriterWidth, TabwriterPadding, TabwriterPadChar, TabwriterFlags)
}
