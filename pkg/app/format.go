package app

import (
	"fmt"

	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/astral-step/astrovpn/pkg/profile"
)

// OutputFormat controls how decoded records are printed.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatRaw     OutputFormat = "raw"
	OutputFormatJSON    OutputFormat = "json"
)

func (e *OutputFormat) String() string {
	return string(*e)
}

func (e *OutputFormat) Set(v string) error {
	switch v {
	case "default", "raw", "json":
		*e = OutputFormat(v)
		return nil
	default:
		return fmt.Errorf("must be one of: default, raw, json")
	}
}

func (e *OutputFormat) Type() string {
	return "OutputFormat"
}

// CompleteOutputFormat provides shell completion for --output.
func CompleteOutputFormat(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"default", "raw", "json"}, cobra.ShellCompDirectiveNoFileComp
}

// FormatProfile renders a decoded record according to the output format.
// The raw form returns the payload bytes exactly as carried by the URL;
// the other forms re-render the record in canonical key order.
func FormatProfile(p profile.Profile, payload []byte, outputFmt OutputFormat) ([]byte, error) {
	switch outputFmt {
	case OutputFormatRaw:
		return payload, nil
	case OutputFormatJSON:
		return profile.MarshalPayload(p)
	default:
		return profile.MarshalIndent(p)
	}
}

// FormatValue pretty-prints JSON data.
func FormatValue(data []byte) []byte {
	if b, err := prettyjson.Format(data); err == nil {
		return b
	}
	return data
}
