package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
	"github.com/matzehuels/choropleth/pkg/series"
)

// classifyCommand creates the classify command, which previews the bins of
// a data file without touching a map.
func (c *CLI) classifyCommand() *cobra.Command {
	var (
		flags    runFlags
		dataPath string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the bins a data file is split into",
		Long: `Print the bins a data file is split into.

Shows each bin's bounds, the number of values it holds and its color, plus
summary statistics and the goodness of variance fit, so methods and bin
counts can be compared before coloring a map.`,
		Example: `  choropleth classify -d gdp.csv --method natural-breaks -k 6`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			data, err := series.Load(dataPath)
			if err != nil {
				return err
			}
			return c.runClassify(c.out(), data, cfg)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "data file (.json, .csv)")
	_ = cmd.MarkFlagRequired("data")
	flags.addClassifyFlags(cmd)
	registerValueCompletions(cmd)

	return cmd
}

func (c *CLI) runClassify(w io.Writer, data *series.Series, cfg config.Config) error {
	var (
		res *classify.Result
		err error
	)
	kind := data.Kind()
	switch kind {
	case series.Numeric:
		_, values := data.Values()
		res, err = classify.Classify(values, cfg.Method(), cfg.Classification.Bins, cfg.ClassifyOptions()...)
		if err == nil {
			printSummary(w, classify.Summarize(values))
		}
	case series.Categorical:
		_, cats := data.Categories()
		res, err = classify.Categorical(cats, cfg.Classification.Categories)
	case series.Mixed:
		return errors.New(errors.ErrCodeInvalidClassification, "data mixes numbers and categories")
	default:
		return errors.New(errors.ErrCodeInsufficientData, "no values to classify")
	}
	if err != nil {
		return err
	}

	pal, err := palette.Build(cfg.Scale(kind == series.Categorical), cfg.Palette.Name, res.K(), cfg.PaletteOptions()...)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	title := fmt.Sprintf("%d bins", res.K())
	if res.Method != "" {
		title += " · " + string(res.Method)
	}
	fmt.Fprintln(w, StyleTitle.Render(title)+" "+StyleDim.Render(string(pal.Kind)+"/"+pal.Name))
	for i, b := range res.Bins {
		fmt.Fprintf(w, "%s %-24s %s\n", swatch(pal.Color(i)), b.Label(), StyleNumber.Render(fmt.Sprint(b.Count)))
	}
	if kind == series.Numeric {
		printKeyValue(w, "GVF", fmt.Sprintf("%.3f", res.GVF))
	}
	if res.Notice != nil {
		printWarning(w, "%s", errors.UserMessage(res.Notice))
	}
	if pal.Cycled {
		printWarning(w, "palette %s repeats colors for %d bins", pal.Name, res.K())
	}
	return nil
}

func printSummary(w io.Writer, s classify.Summary) {
	printKeyValue(w, "values", fmt.Sprintf("%d (%d distinct)", s.Count, s.Distinct))
	printKeyValue(w, "range", classify.FormatNumber(s.Min)+" - "+classify.FormatNumber(s.Max))
	printKeyValue(w, "mean", classify.FormatNumber(s.Mean))
	printKeyValue(w, "median", classify.FormatNumber(s.Median))
	printKeyValue(w, "std dev", classify.FormatNumber(s.StdDev))
}
