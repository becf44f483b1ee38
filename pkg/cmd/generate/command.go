package generate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/app"
	"github.com/astral-step/astrovpn/pkg/profile"
)

// NewCommand returns the "astrovpn generate" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		repeatFlag   int
		templateFlag bool
	)

	cmd := &cobra.Command{
		Use:   "generate NAME SERVER DOMAIN_SERVICE KEY_URL [DESCRIPTION]",
		Short: "Generate an astrovpn:// URL from profile fields",
		Long:  "Generate an astrovpn:// URL carrying the given profile fields. The description is optional. With --repeat and --template, arguments are rendered through the go template engine once per URL.",
		Example: `  astrovpn generate "Office" 10.8.0.1 panel.example.com:8000 https://panel.example.com/api/keys/office
  astrovpn generate "Office" 10.8.0.1 panel.example.com:8000 https://panel.example.com/api/keys/office "Office gateway"
  astrovpn generate --template -n 10 "node-{{.i}}" "10.8.0.{{.i}}" panel.example.com:8000 "https://panel.example.com/api/keys/node{{.i}}"`,
		Args: cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) == 5 {
				description = args[4]
			}
			fields := []string{args[0], args[1], args[2], args[3], description}

			for i := 0; i < repeatFlag; i++ {
				rendered := fields

				if templateFlag {
					rendered = make([]string, len(fields))
					vars := map[string]any{"i": i}
					for n, field := range fields {
						tpl, err := template.New("astrovpn").Funcs(sprig.TxtFuncMap()).Parse(field)
						if err != nil {
							return fmt.Errorf("failed to parse go template: %v", err)
						}

						buf := bytes.NewBuffer(nil)
						if err := tpl.Execute(buf, vars); err != nil {
							return fmt.Errorf("failed to execute go template: %v", err)
						}
						rendered[n] = buf.String()
					}
				}

				url, err := profile.EncodeURL(profile.Profile{
					Name:          rendered[0],
					Server:        rendered[1],
					DomainService: rendered[2],
					KeyURL:        rendered[3],
					Description:   rendered[4],
				})
				if err != nil {
					return fmt.Errorf("failed to generate url: %w", err)
				}

				if repeatFlag > 1 {
					fmt.Fprintln(a.OutWriter, url)
					continue
				}

				fmt.Fprintln(a.OutWriter, "Generated AstroVPN URL:")
				fmt.Fprintln(a.OutWriter, url)
				fmt.Fprintf(a.OutWriter, "\nLength: %d characters\n", len(url))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&repeatFlag, "repeat", "n", 1, "Number of URLs to generate.")
	cmd.Flags().BoolVar(&templateFlag, "template", false, "run arguments through go template engine")

	return cmd
}
