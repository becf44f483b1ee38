package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/config"
	pkgprofile "github.com/astral-step/astrovpn/pkg/profile"
)

// NewCommand returns the "astrovpn profile" command with subcommands.
func NewCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage stored profiles",
	}

	cmd.AddCommand(
		newAddCommand(a),
		newLsCommand(a),
		newDescribeCommand(a),
		newURLCommand(a),
		newRmCommand(a),
		newUseCommand(a),
		newCurrentCommand(a),
		newSelectCommand(a),
		newImportCommand(a),
	)

	return cmd
}

// NewProfilesAlias returns the top-level "profiles" alias.
func NewProfilesAlias(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List stored profiles",
		RunE:  listProfilesRunE(a),
	}
}

func newAddCommand(a *app.App) *cobra.Command {
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Validate an astrovpn:// URL and store it under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			p, err := pkgprofile.ParseStrict(url)
			if err != nil {
				return fmt.Errorf("refusing to add profile: %w", err)
			}

			name := nameFlag
			if name == "" {
				name = p.Name
			}
			if a.Cfg.HasProfile(name) {
				return fmt.Errorf("could not add profile: profile with name '%v' exists already", name)
			}

			a.Cfg.Profiles = append(a.Cfg.Profiles, &config.StoredProfile{
				ID:      uuid.NewString(),
				Name:    name,
				URL:     url,
				AddedAt: time.Now(),
			})
			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Added profile \"%v\".\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFlag, "name", "", "Store under this name instead of the name carried by the URL")
	return cmd
}

func newLsCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored profiles",
		Args:    cobra.NoArgs,
		RunE:    listProfilesRunE(a),
	}
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func listProfilesRunE(a *app.App) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		w := app.NewTabWriter(a.OutWriter)
		if !a.NoHeaderFlag {
			fmt.Fprintf(w, "  NAME\tSERVER\tADDED\t\n")
		}

		for _, stored := range a.Cfg.Profiles {
			marker := "  "
			if stored.Name == a.Cfg.CurrentProfile {
				marker = "* "
			}
			var server string
			if p, err := pkgprofile.DecodeURL(stored.URL); err == nil {
				server = p.Server
			}
			fmt.Fprintf(w, "%s%v\t%v\t%v\t\n", marker, stored.Name, server, stored.AddedAt.Format("2006-01-02"))
		}

		w.Flush()
		return nil
	}
}

func newDescribeCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "describe NAME",
		Aliases:           []string{"show"},
		Short:             "Show a stored profile and the record its URL carries",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stored := a.Cfg.FindProfile(args[0])
			if stored == nil {
				return fmt.Errorf("profile with name '%v' does not exist", args[0])
			}

			p, err := pkgprofile.DecodeURL(stored.URL)
			if err != nil {
				return fmt.Errorf("stored url is not decodable: %w", err)
			}

			w := app.NewTabWriter(a.OutWriter)
			fmt.Fprintf(w, "ID:\t%v\nName:\t%v\nAdded:\t%v\n", stored.ID, stored.Name, stored.AddedAt.Format(time.RFC3339))
			if !stored.LastUsedAt.IsZero() {
				fmt.Fprintf(w, "Last used:\t%v\n", stored.LastUsedAt.Format(time.RFC3339))
			}
			w.Flush()

			payload, err := pkgprofile.MarshalPayload(p)
			if err != nil {
				return err
			}
			_, _ = a.ColorableOut.Write(app.FormatValue(payload))
			fmt.Fprintln(a.OutWriter)
			return nil
		},
	}
}

func newURLCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "url NAME",
		Short:             "Print the astrovpn:// URL of a stored profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stored := a.Cfg.FindProfile(args[0])
			if stored == nil {
				return fmt.Errorf("profile with name '%v' does not exist", args[0])
			}
			fmt.Fprintln(a.OutWriter, stored.URL)
			return nil
		},
	}
}

func newRmCommand(a *app.App) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:               "rm NAME",
		Aliases:           []string{"delete"},
		Short:             "Remove a stored profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			pos := -1
			for i, stored := range a.Cfg.Profiles {
				if stored.Name == name {
					pos = i
					break
				}
			}

			if pos == -1 {
				return fmt.Errorf("could not delete profile: profile with name '%v' does not exist", name)
			}

			if name == a.Cfg.CurrentProfile && !forceFlag {
				return fmt.Errorf("'%v' is the current profile, pass --force to remove it", name)
			}

			a.Cfg.Profiles = append(a.Cfg.Profiles[:pos], a.Cfg.Profiles[pos+1:]...)
			if name == a.Cfg.CurrentProfile {
				a.Cfg.CurrentProfile = ""
			}

			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintln(a.OutWriter, "Removed profile.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Remove even if it is the current profile")
	return cmd
}

func newUseCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "use NAME",
		Short:             "Set the current profile in the configuration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := a.Cfg.SetCurrentProfile(name); err != nil {
				return fmt.Errorf("profile with name %v not found", name)
			}
			fmt.Fprintf(a.OutWriter, "Switched to profile \"%v\".\n", name)
			return nil
		},
	}
}

func newCurrentCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Displays the current profile",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.OutWriter, a.Cfg.CurrentProfile)
		},
	}
}

func newSelectCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Interactively select a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var profileNames []string
			pos := 0
			for k, stored := range a.Cfg.Profiles {
				profileNames = append(profileNames, stored.Name)
				if stored.Name == a.Cfg.CurrentProfile {
					pos = k
				}
			}

			searcher := func(input string, index int) bool {
				name := strings.ReplaceAll(strings.ToLower(profileNames[index]), " ", "")
				input = strings.ReplaceAll(strings.ToLower(input), " ", "")
				return strings.Contains(name, input)
			}

			p := promptui.Select{
				Label:     "Select profile",
				Items:     profileNames,
				Searcher:  searcher,
				Size:      10,
				CursorPos: pos,
			}

			_, selected, err := p.Run()
			if err != nil {
				// User cancelled (e.g. Ctrl-C). Not an error.
				return nil
			}

			if err := a.Cfg.SetCurrentProfile(selected); err != nil {
				return fmt.Errorf("profile with name %v not found", selected)
			}
			fmt.Fprintf(a.OutWriter, "Switched to profile \"%v\".\n", selected)
			return nil
		},
	}
}

func newImportCommand(a *app.App) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import profiles from a desktop client profiles.properties file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileFlag
			if path == "" {
				var err error
				path, err = config.TryFindLegacyProfilesFile()
				if err != nil {
					return fmt.Errorf("could not find desktop profiles file: %w", err)
				}
			}
			fmt.Fprintf(a.OutWriter, "Importing profiles from %v\n", path)

			found, err := config.ParseLegacyProfiles(path)
			if err != nil {
				return fmt.Errorf("failed to parse desktop profiles file: %w", err)
			}

			var added int
			for _, legacy := range found {
				if _, err := pkgprofile.ParseStrict(legacy.URL); err != nil {
					fmt.Fprintf(a.ErrWriter, "skipping %v: %v\n", legacy.Name, err)
					continue
				}
				if a.Cfg.HasProfile(legacy.Name) {
					fmt.Fprintf(a.ErrWriter, "skipping %v: profile exists already\n", legacy.Name)
					continue
				}
				a.Cfg.Profiles = append(a.Cfg.Profiles, &config.StoredProfile{
					ID:      uuid.NewString(),
					Name:    legacy.Name,
					URL:     legacy.URL,
					AddedAt: time.Now(),
				})
				added++
			}

			if a.Cfg.CurrentProfile == "" && len(a.Cfg.Profiles) > 0 {
				a.Cfg.CurrentProfile = a.Cfg.Profiles[0].Name
			}

			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Imported %v profile(s).\n", added)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileFlag, "file", "", "Path to a profiles.properties file (default is $HOME/.astrovpn/profiles.properties)")
	return cmd
}
