// Package config holds the run configuration of a choropleth pass.
//
// A [Config] can be written as TOML or YAML (chosen by file extension) and
// overridden from command-line flags. [Config.Validate] checks every legal
// combination of classification method, bin count and scale kind up front,
// so misconfiguration surfaces as ErrCodeInvalidClassification or
// ErrCodeInvalidScale before any document is touched.
//
// A TOML example:
//
//	[classification]
//	method = "natural-breaks"
//	bins = 5
//
//	[palette]
//	scale = "sequential"
//	name = "greens"
//	no_data_color = "#dddddd"
//
//	[legend]
//	enabled = true
//	title = "GDP per capita"
//
//	[regions.aliases]
//	FR = "France"
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMethod is the classification method used when none is set.
	DefaultMethod = classify.Quantile

	// DefaultBins is the requested bin count when none is set.
	DefaultBins = 5

	// MaxBins bounds the bin count; more classes than this are not
	// distinguishable by color.
	MaxBins = 12

	// DefaultLabelText selects what region labels show.
	DefaultLabelText = LabelCode
)

// Label text sources.
const (
	LabelCode  = "code"
	LabelName  = "label"
	LabelValue = "value"
)

// =============================================================================
// Config
// =============================================================================

// Config is the complete configuration of one run.
type Config struct {
	Classification Classification `toml:"classification" yaml:"classification"`
	Palette        Palette        `toml:"palette" yaml:"palette"`
	Legend         Legend         `toml:"legend" yaml:"legend"`
	Labels         Labels         `toml:"labels" yaml:"labels"`
	Title          Title          `toml:"title" yaml:"title"`
	Regions        Regions        `toml:"regions" yaml:"regions"`
	Cache          Cache          `toml:"cache" yaml:"cache"`

	// Parallelism above 1 styles regions concurrently.
	Parallelism int `toml:"parallelism" yaml:"parallelism"`
}

// Classification selects how values are binned.
type Classification struct {
	Method string `toml:"method" yaml:"method"`
	Bins   int    `toml:"bins" yaml:"bins"`
	// Thresholds are the k+1 boundaries of the manual method.
	Thresholds []float64 `toml:"thresholds" yaml:"thresholds"`
	// Categories fixes the bin order of categorical data.
	Categories []string `toml:"categories" yaml:"categories"`
}

// Palette selects the colors.
type Palette struct {
	// Scale is the scale kind; empty picks sequential for numbers and
	// categorical for categories.
	Scale       string `toml:"scale" yaml:"scale"`
	Name        string `toml:"name" yaml:"name"`
	NoDataColor string `toml:"no_data_color" yaml:"no_data_color"`
	// Center is the neutral bin of a diverging scale.
	Center *int `toml:"center" yaml:"center"`
}

// Legend configures the legend.
type Legend struct {
	Enabled     bool     `toml:"enabled" yaml:"enabled"`
	X           *float64 `toml:"x" yaml:"x"`
	Y           *float64 `toml:"y" yaml:"y"`
	Orientation string   `toml:"orientation" yaml:"orientation"`
	Title       string   `toml:"title" yaml:"title"`
	// HideNoData drops the "No data" entry.
	HideNoData bool `toml:"hide_no_data" yaml:"hide_no_data"`
}

// Labels configures region labels.
type Labels struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Table is a .json or .toml centroid table.
	Table string `toml:"table" yaml:"table"`
	// Geometry derives missing positions from region shapes.
	Geometry bool    `toml:"geometry" yaml:"geometry"`
	Text     string  `toml:"text" yaml:"text"`
	FontSize float64 `toml:"font_size" yaml:"font_size"`
}

// Title configures the map title.
type Title struct {
	Text string `toml:"text" yaml:"text"`
}

// Regions configures region resolution.
type Regions struct {
	// Aliases map codes to class names, extending the built-in table.
	Aliases map[string]string `toml:"aliases" yaml:"aliases"`
	// SkipDefaultFill leaves regions without data and without a fill alone
	// instead of painting them with the no-data color.
	SkipDefaultFill bool `toml:"skip_default_fill" yaml:"skip_default_fill"`
}

// Cache configures the geometry cache.
type Cache struct {
	Disabled bool   `toml:"disabled" yaml:"disabled"`
	Dir      string `toml:"dir" yaml:"dir"`
	RedisURL string `toml:"redis_url" yaml:"redis_url"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Classification.Method == "" {
		c.Classification.Method = string(DefaultMethod)
	}
	if c.Classification.Bins == 0 && c.Classification.Method != string(classify.Manual) {
		c.Classification.Bins = DefaultBins
	}
	if c.Palette.NoDataColor == "" {
		c.Palette.NoDataColor = palette.DefaultNoData
	}
	if c.Legend.Orientation == "" {
		c.Legend.Orientation = string(annotate.Vertical)
	}
	if c.Legend.X == nil {
		x := annotate.DefaultLegendX
		c.Legend.X = &x
	}
	if c.Labels.Text == "" {
		c.Labels.Text = DefaultLabelText
	}
	if c.Labels.FontSize == 0 {
		c.Labels.FontSize = annotate.DefaultLabelFontSize
	}
	if c.Parallelism < 1 {
		c.Parallelism = 1
	}
}

// Load reads a .toml, .yaml or .yml file and applies defaults. It does not
// validate; call Validate after applying overrides.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return c, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &c)
		if err != nil {
			return c, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return c, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q in %s", undecoded[0].String(), path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && err != io.EOF {
			return c, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return c, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	c.SetDefaults()
	return c, nil
}
