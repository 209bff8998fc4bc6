package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/choropleth/pkg/palette"
)

// previewBins is the bin count used to preview interpolated schemes.
const previewBins = 7

// palettesCommand creates the palettes command listing the named schemes.
func (c *CLI) palettesCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "palettes",
		Short:   "List the named color schemes",
		Example: `  choropleth palettes --scale diverging`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := palette.Kinds
			if kind != "" {
				k, err := palette.ParseKind(kind)
				if err != nil {
					return err
				}
				kinds = []palette.Kind{k}
			}
			return printPalettes(c.out(), kinds)
		},
	}

	cmd.Flags().StringVarP(&kind, "scale", "s", "", "only list schemes of this scale kind")
	return cmd
}

func printPalettes(w io.Writer, kinds []palette.Kind) error {
	for i, kind := range kinds {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, StyleTitle.Render(string(kind)))
		for _, s := range palette.Schemes(kind) {
			k := previewBins
			switch kind {
			case palette.Categorical:
				k = len(s.Colors)
			case palette.Binary:
				k = 2
			}
			pal, err := palette.Build(kind, s.Name, k)
			if err != nil {
				return fmt.Errorf("preview %s: %w", s.Name, err)
			}
			name := s.Name
			if name == palette.Default(kind) {
				name += StyleDim.Render(" (default)")
			}
			fmt.Fprintf(w, "  %s %s\n", swatches(pal.Colors), name)
		}
	}
	return nil
}
