package probe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/remote"
)

// NewCommand creates the probe command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		timeoutFlag     time.Duration
		concurrencyFlag int
		rewriteFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "probe [FILE]",
		Short: "Probe the remotes of an OpenVPN config and rank them by latency",
		Example: `  astrovpn probe client.ovpn
  astrovpn fetch office | astrovpn probe
  astrovpn probe --rewrite client.ovpn > sorted.ovpn`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(a.InReader)
			}
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			config := string(data)
			remotes := remote.Parse(config)
			if len(remotes) == 0 {
				return errors.New("no remote directives found")
			}

			remote.Probe(cmd.Context(), remotes, timeoutFlag, concurrencyFlag)
			sorted := remote.Sort(remotes)

			// With --rewrite the config goes to stdout, so the table
			// moves to stderr to keep the output pipeable.
			out := a.OutWriter
			if rewriteFlag {
				out = a.ErrWriter
			}

			w := app.NewTabWriter(out)
			if !a.NoHeaderFlag {
				fmt.Fprintf(w, "REMOTE\tPORT\tPROTO\tRTT\t\n")
			}
			for _, r := range sorted {
				rtt := "FAILED"
				if !r.Failed {
					rtt = fmt.Sprintf("%dms", r.RTT.Milliseconds())
				}
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\t\n", r.Host, r.Port, r.Proto, rtt)
			}
			w.Flush()

			if rewriteFlag {
				fmt.Fprint(a.OutWriter, remote.Rewrite(config, remotes, sorted))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeoutFlag, "timeout", remote.DefaultTimeout, "Connect timeout per remote")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", remote.DefaultConcurrency, "Maximum parallel probes")
	cmd.Flags().BoolVar(&rewriteFlag, "rewrite", false, "Print the config with remotes sorted fastest first")
	a.AddNoHeadersFlag(cmd)

	return cmd
}
