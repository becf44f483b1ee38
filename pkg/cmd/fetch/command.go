package fetch

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/config"
	pkgfetch "github.com/astral-step/astrovpn/pkg/fetch"
	"github.com/astral-step/astrovpn/pkg/profile"
	"github.com/astral-step/astrovpn/pkg/remote"
)

// NewCommand creates the fetch command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outputFlag   string
		optimizeFlag bool
		insecureFlag bool
		timeoutFlag  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch [PROFILE|URL]",
		Short: "Download the OpenVPN config for a profile",
		Long: `Download the OpenVPN config for a stored profile, a raw astrovpn:// url,
or the current profile when no argument is given.

The profile's domain service is queried for the address to substitute
into the key url before the config is downloaded.`,
		Example: `  astrovpn fetch
  astrovpn fetch office -o office.ovpn
  astrovpn fetch astrovpn://eyJuYW1lIjo... --optimize`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, stored, err := resolveProfile(a, args)
			if err != nil {
				return err
			}

			// The config goes to stdout unless -o is given, so progress
			// lines move to stderr to keep the output pipeable.
			status := a.ErrWriter
			if outputFlag != "" {
				status = a.OutWriter
			}

			client := pkgfetch.New(pkgfetch.Options{Timeout: timeoutFlag, Insecure: insecureFlag})
			res, err := client.Fetch(ctx, p)
			if err != nil {
				return fmt.Errorf("failed to fetch config: %w", err)
			}
			fmt.Fprintf(status, "Resolved %v to %v\n", p.DomainService, res.ResolvedIP)

			cfg := res.Config
			if optimizeFlag {
				rewritten, sorted := remote.Optimize(ctx, string(cfg), remote.DefaultTimeout, remote.DefaultConcurrency)
				cfg = []byte(rewritten)
				if fastest := remote.Fastest(sorted); fastest != nil {
					fmt.Fprintf(status, "Fastest remote: %v (%vms)\n", fastest.Addr(), fastest.RTT.Milliseconds())
				} else {
					fmt.Fprintf(status, "Remote probing failed, keeping original order\n")
				}
			}

			if stored != nil {
				stored.LastUsedAt = time.Now()
				if err := a.Cfg.Write(); err != nil {
					return fmt.Errorf("unable to write config: %w", err)
				}
			}

			if outputFlag != "" {
				if err := os.WriteFile(outputFlag, cfg, 0644); err != nil {
					return fmt.Errorf("failed to write %v: %w", outputFlag, err)
				}
				fmt.Fprintf(a.OutWriter, "Wrote %v (%v bytes).\n", outputFlag, len(cfg))
				return nil
			}

			_, err = a.OutWriter.Write(cfg)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the config to a file instead of stdout")
	cmd.Flags().BoolVar(&optimizeFlag, "optimize", false, "Probe the remotes and sort them fastest first")
	cmd.Flags().BoolVar(&insecureFlag, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Overall request timeout (default 30s)")

	return cmd
}

// resolveProfile turns the command argument into a validated profile.
// The second return value is the stored entry when the fetch came from
// the profile store, so usage bookkeeping can be written back.
func resolveProfile(a *app.App, args []string) (profile.Profile, *config.StoredProfile, error) {
	if len(args) == 1 && strings.HasPrefix(args[0], profile.Scheme) {
		p, err := profile.ParseStrict(args[0])
		if err != nil {
			return profile.Profile{}, nil, fmt.Errorf("invalid profile url: %w", err)
		}
		return p, nil, nil
	}

	var stored *config.StoredProfile
	if len(args) == 1 {
		stored = a.Cfg.FindProfile(args[0])
		if stored == nil {
			return profile.Profile{}, nil, fmt.Errorf("profile with name '%v' does not exist", args[0])
		}
	} else {
		if a.CurrentProfile == nil {
			return profile.Profile{}, nil, errors.New("no current profile, pass a profile name or run 'astrovpn profile use'")
		}
		stored = a.Cfg.FindProfile(a.CurrentProfile.Name)
	}

	p, err := profile.ParseStrict(stored.URL)
	if err != nil {
		return profile.Profile{}, nil, fmt.Errorf("stored url for '%v' is not usable: %w", stored.Name, err)
	}
	return p, stored, nil
}
