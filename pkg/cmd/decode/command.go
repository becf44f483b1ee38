package decode

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/profile"
)

// NewCommand returns the "astrovpn decode" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outputFormat  = app.OutputFormatDefault
		validateFlag  bool
		decodeMsgPack bool
	)

	cmd := &cobra.Command{
		Use:   "decode URL",
		Short: "Decode an astrovpn:// URL",
		Long:  "Decode an astrovpn:// URL and print the profile record it carries. Missing fields are shown empty unless --validate is given, which rejects incomplete records.",
		Example: `  astrovpn decode astrovpn://eyJuYW1lIjoi...
  astrovpn decode --output json astrovpn://eyJuYW1lIjoi...
  astrovpn decode --validate astrovpn://eyJuYW1lIjoi...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := profile.DecodePayload(args[0])
			if err != nil {
				return fmt.Errorf("failed to decode url: %w", err)
			}

			if decodeMsgPack {
				var obj any
				if err := msgpack.Unmarshal(payload, &obj); err != nil {
					return fmt.Errorf("failed to decode url: %w: %v", profile.ErrMalformedPayload, err)
				}
				if payload, err = json.Marshal(obj); err != nil {
					return fmt.Errorf("failed to decode url: %w", err)
				}
			}

			var p profile.Profile
			if validateFlag {
				p, err = profile.ParsePayload(payload)
			} else {
				p, err = profile.Unmarshal(payload)
			}
			if err != nil {
				return fmt.Errorf("failed to decode url: %w", err)
			}

			out, err := app.FormatProfile(p, payload, outputFormat)
			if err != nil {
				return err
			}

			if outputFormat == app.OutputFormatDefault {
				fmt.Fprintln(a.OutWriter, "Decoded AstroVPN Profile:")
			}
			_, _ = a.OutWriter.Write(out)
			fmt.Fprintln(a.OutWriter)

			return nil
		},
	}

	cmd.Flags().Var(&outputFormat, "output", "Set output format: default, raw (payload bytes as carried), json (canonical single line)")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "Reject records with missing or malformed required fields")
	cmd.Flags().BoolVar(&decodeMsgPack, "msgpack", false, "Treat the payload as msgpack instead of JSON")

	if err := cmd.RegisterFlagCompletionFunc("output", app.CompleteOutputFormat); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}

	return cmd
}
