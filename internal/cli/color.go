package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// maxWarnings bounds how many run warnings are printed.
const maxWarnings = 10

// stdoutPath as the output path writes the styled document to stdout.
const stdoutPath = "-"

// runFlags are the command-line overrides of a run configuration. A flag
// only overrides the config file when it was set explicitly.
type runFlags struct {
	configPath string

	method     string
	bins       int
	thresholds []float64
	categories []string

	scale       string
	palette     string
	noDataColor string
	center      int

	legend      bool
	legendX     float64
	legendY     float64
	orientation string
	legendTitle string
	hideNoData  bool
	title       string
	labels      string
	geometry    bool
	labelText   string
	labelSize   float64
	skipDefault bool
	parallel    int
	noCache     bool
	redisURL    string
	aliases     map[string]string
}

// addClassifyFlags registers the flags shared by color and classify.
func (f *runFlags) addClassifyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "run configuration file (.toml, .yaml)")
	cmd.Flags().StringVarP(&f.method, "method", "m", "", "classification: quantile (default), equal-interval, natural-breaks, manual")
	cmd.Flags().IntVarP(&f.bins, "bins", "k", config.DefaultBins, "number of bins")
	cmd.Flags().Float64SliceVar(&f.thresholds, "thresholds", nil, "bin boundaries for manual classification (comma-separated)")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "category order (comma-separated)")
	cmd.Flags().StringVarP(&f.scale, "scale", "s", "", "scale kind: sequential, diverging, categorical, binary")
	cmd.Flags().StringVarP(&f.palette, "palette", "p", "", "palette name (see 'choropleth palettes')")
	cmd.Flags().StringVar(&f.noDataColor, "no-data-color", "", "fill for regions without data")
	cmd.Flags().IntVar(&f.center, "center", 0, "neutral bin of a diverging scale")
}

func (f *runFlags) addColorFlags(cmd *cobra.Command) {
	f.addClassifyFlags(cmd)
	cmd.Flags().BoolVar(&f.legend, "legend", false, "draw a legend")
	cmd.Flags().Float64Var(&f.legendX, "legend-x", 0, "legend left edge")
	cmd.Flags().Float64Var(&f.legendY, "legend-y", 0, "legend top edge (default: bottom of the map)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "legend orientation: vertical (default), horizontal")
	cmd.Flags().StringVar(&f.legendTitle, "legend-title", "", "legend heading")
	cmd.Flags().BoolVar(&f.hideNoData, "hide-no-data", false, "omit the no-data legend entry")
	cmd.Flags().StringVar(&f.title, "title", "", "map title")
	cmd.Flags().StringVar(&f.labels, "labels", "", "label position table (.json, .toml)")
	cmd.Flags().BoolVar(&f.geometry, "geometry-labels", false, "place labels from region shapes")
	cmd.Flags().StringVar(&f.labelText, "label-text", "", "label text: code (default), label, value")
	cmd.Flags().Float64Var(&f.labelSize, "label-size", 0, "label font size")
	cmd.Flags().BoolVar(&f.skipDefault, "skip-default-fill", false, "leave shapes without data and fill unpainted")
	cmd.Flags().StringToStringVar(&f.aliases, "alias", nil, "extra code aliases, e.g. --alias FR=France")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "style regions with N workers")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the geometry cache")
	cmd.Flags().StringVar(&f.redisURL, "redis", "", "redis URL for a shared geometry cache")
}

// load reads the configuration file, if any, and applies explicit flags.
func (f *runFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	set := cmd.Flags().Changed

	if set("method") {
		cfg.Classification.Method = f.method
	}
	if set("bins") {
		cfg.Classification.Bins = f.bins
	}
	if set("thresholds") {
		cfg.Classification.Thresholds = f.thresholds
		if !set("method") {
			cfg.Classification.Method = "manual"
		}
	}
	if set("categories") {
		cfg.Classification.Categories = f.categories
	}
	if set("scale") {
		cfg.Palette.Scale = f.scale
	}
	if set("palette") {
		cfg.Palette.Name = f.palette
	}
	if set("no-data-color") {
		cfg.Palette.NoDataColor = f.noDataColor
	}
	if set("center") {
		center := f.center
		cfg.Palette.Center = &center
	}

	if cmd.Flags().Lookup("legend") == nil {
		cfg.SetDefaults()
		return cfg, cfg.Validate()
	}

	if set("legend") {
		cfg.Legend.Enabled = f.legend
	}
	if set("legend-x") {
		x := f.legendX
		cfg.Legend.X = &x
	}
	if set("legend-y") {
		y := f.legendY
		cfg.Legend.Y = &y
	}
	if set("orientation") {
		cfg.Legend.Orientation = f.orientation
	}
	if set("legend-title") {
		cfg.Legend.Title = f.legendTitle
		cfg.Legend.Enabled = true
	}
	if set("hide-no-data") {
		cfg.Legend.HideNoData = f.hideNoData
	}
	if set("title") {
		cfg.Title.Text = f.title
	}
	if set("labels") {
		cfg.Labels.Table = f.labels
		cfg.Labels.Enabled = true
	}
	if set("geometry-labels") {
		cfg.Labels.Geometry = f.geometry
		cfg.Labels.Enabled = cfg.Labels.Enabled || f.geometry
	}
	if set("label-text") {
		cfg.Labels.Text = f.labelText
	}
	if set("label-size") {
		cfg.Labels.FontSize = f.labelSize
	}
	if set("skip-default-fill") {
		cfg.Regions.SkipDefaultFill = f.skipDefault
	}
	if len(f.aliases) > 0 {
		if cfg.Regions.Aliases == nil {
			cfg.Regions.Aliases = make(map[string]string, len(f.aliases))
		}
		for k, v := range f.aliases {
			cfg.Regions.Aliases[k] = v
		}
	}
	if set("parallel") {
		cfg.Parallelism = f.parallel
	}
	if set("no-cache") {
		cfg.Cache.Disabled = f.noCache
	}
	if set("redis") {
		cfg.Cache.RedisURL = f.redisURL
	}

	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// colorCommand creates the color command, the main styling entry point.
func (c *CLI) colorCommand() *cobra.Command {
	var (
		flags    runFlags
		dataPath string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "color [map.svg]",
		Short: "Color the regions of an SVG map from a data file",
		Long: `Color the regions of an SVG map from a data file.

Data codes are matched to element ids first and to class names second, so a
country drawn as several shapes sharing a class is styled as one region.
Values are classified into bins and each bin gets a palette color; data
entries that are colors themselves ("#3b82f6") are used as given.

Existing styles are preserved: only the fill is replaced. Running the command
again over its own output gives the same document.

The output is written atomically; on any error no file is created.`,
		Example: `  choropleth color world.svg -d gdp.csv -o gdp.svg --legend --title "GDP per capita"
  choropleth color world.svg -d votes.json --scale diverging --palette rdbu -k 7
  choropleth color europe.svg -d groups.json --geometry-labels -o - > out.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return c.runColor(cmd.Context(), args[0], dataPath, output, cfg)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "data file (.json, .csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <map>.choropleth.svg, - for stdout)")
	_ = cmd.MarkFlagRequired("data")
	flags.addColorFlags(cmd)
	registerValueCompletions(cmd)

	return cmd
}

// runColor loads the inputs, runs the pipeline and writes the output.
func (c *CLI) runColor(ctx context.Context, input, dataPath, output string, cfg config.Config) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	doc, err := svgdoc.Load(input)
	if err != nil {
		return err
	}
	data, err := series.Load(dataPath)
	if err != nil {
		return err
	}
	logger.Debug("loaded inputs", "map", input, "elements", doc.ElementCount(), "data", dataPath, "points", data.Len())

	runner, err := c.newRunner(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := runner.Run(ctx, doc, data, cfg)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w := c.out()
	if output == stdoutPath {
		_, err := w.Write(res.Output)
		return err
	}
	if output == "" {
		output = defaultOutputPath(input)
	}
	if err := svgdoc.WriteFileAtomic(output, res.Output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}
	prog.done("styled map", "regions", res.Stats.Regions, "warnings", len(res.Warnings))

	printSuccess(w, "Map colored")
	printFile(w, output)
	printRunStats(w, res.Stats, res.CacheInfo.GeometryHit, cfg.Labels.Enabled && cfg.Labels.Geometry)
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		printWarnings(w, res.Warnings, maxWarnings)
	}
	if len(res.Stats.Unresolved) > 0 {
		fmt.Fprintln(w)
		printNextStep(w, "List map codes", appName+" regions "+input)
	}
	return nil
}

// defaultOutputPath derives "<dir>/<name>.choropleth.svg" from the input.
func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + appName + ".svg"
}
