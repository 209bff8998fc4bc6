package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// regionsCommand creates the regions command listing addressable codes.
func (c *CLI) regionsCommand() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "regions [map.svg]",
		Short: "List the region codes a map can be colored by",
		Long: `List the region codes a map can be colored by.

Element ids address single regions; class names shared by several shapes
address group regions. With --data, the codes of the data file that match
nothing in the map are reported as well.`,
		Example: `  choropleth regions world.svg
  choropleth regions world.svg -d gdp.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := svgdoc.Load(args[0])
			if err != nil {
				return err
			}
			var data *series.Series
			if dataPath != "" {
				if data, err = series.Load(dataPath); err != nil {
					return err
				}
			}
			printRegions(c.out(), region.NewIndex(doc, nil), data)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "check the codes of a data file (.json, .csv)")
	return cmd
}

func printRegions(w io.Writer, idx *region.Index, data *series.Series) {
	ids, classes := idx.Codes()
	fmt.Fprintln(w, StyleTitle.Render("ids")+" "+StyleDim.Render(fmt.Sprintf("(%d)", len(ids))))
	printCodes(w, ids)
	fmt.Fprintln(w, StyleTitle.Render("groups")+" "+StyleDim.Render(fmt.Sprintf("(%d)", len(classes))))
	printCodes(w, classes)

	if data == nil {
		return
	}
	res := idx.ResolveAll(data.Codes())
	fmt.Fprintln(w)
	if len(res.Missing) == 0 {
		printSuccess(w, "All %d data codes resolve", data.Len())
		return
	}
	printWarning(w, "%d of %d data codes match nothing", len(res.Missing), data.Len())
	printDetail(w, "%s", strings.Join(res.Missing, ", "))
}

// printCodes prints codes wrapped at a fixed width.
func printCodes(w io.Writer, codes []string) {
	const width = 72
	line := " "
	for _, code := range codes {
		if len(line)+len(code)+1 > width {
			fmt.Fprintln(w, StyleValue.Render(line))
			line = " "
		}
		line += " " + code
	}
	if strings.TrimSpace(line) != "" {
		fmt.Fprintln(w, StyleValue.Render(line))
	}
}
