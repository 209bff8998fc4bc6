package config

import (
	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
)

// Validate checks the configuration eagerly. It fails with
// ErrCodeInvalidClassification for a bad method, bin count or threshold
// list, with ErrCodeInvalidScale for scale and palette combinations that
// cannot work (a binary scale over three bins, a diverging scale over an
// even bin count without a center, a scheme of the wrong kind, a no-data
// color equal to a bin color), and with ErrCodeInvalidConfig for the rest.
func (c *Config) Validate() error {
	method, err := classify.ParseMethod(c.Classification.Method)
	if err != nil {
		return err
	}

	if method == classify.Manual {
		t := c.Classification.Thresholds
		if len(t) < 2 {
			return errors.New(errors.ErrCodeInvalidClassification, "manual classification needs at least 2 thresholds, got %d", len(t))
		}
		for i := 1; i < len(t); i++ {
			if !(t[i] > t[i-1]) {
				return errors.New(errors.ErrCodeInvalidClassification, "thresholds must be strictly increasing: %v <= %v at position %d", t[i], t[i-1], i)
			}
		}
	} else {
		if len(c.Classification.Thresholds) > 0 {
			return errors.New(errors.ErrCodeInvalidClassification, "thresholds are only used by the manual method, not %s", method)
		}
		if c.Classification.Bins < 1 || c.Classification.Bins > MaxBins {
			return errors.New(errors.ErrCodeInvalidClassification, "bin count must be between 1 and %d, got %d", MaxBins, c.Classification.Bins)
		}
	}

	if c.Palette.Scale != "" {
		kind, err := palette.ParseKind(c.Palette.Scale)
		if err != nil {
			return err
		}
		// Categorical bin counts depend on the data; everything else is
		// checked against the configured count now.
		if kind != palette.Categorical {
			if _, err := palette.Build(kind, c.Palette.Name, c.BinCount(), c.PaletteOptions()...); err != nil {
				return err
			}
		}
	} else if c.Palette.Name != "" {
		if err := c.validateImplicitScale(); err != nil {
			return err
		}
	}

	if _, err := annotate.ParseOrientation(c.Legend.Orientation); err != nil {
		return err
	}
	switch c.Labels.Text {
	case "", LabelCode, LabelName, LabelValue:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown label text %q (must be code, label or value)", c.Labels.Text)
	}
	if c.Labels.FontSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "label font size must be positive, got %v", c.Labels.FontSize)
	}
	if c.Parallelism < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parallelism must not be negative, got %d", c.Parallelism)
	}
	return nil
}

// validateImplicitScale checks a named scheme when the scale kind is left to
// the data: numeric data uses a sequential scale, categorical data a
// categorical one, so the scheme must be one of those two kinds.
func (c *Config) validateImplicitScale() error {
	s, ok := palette.Lookup(c.Palette.Name)
	if !ok {
		return errors.New(errors.ErrCodeInvalidScale, "unknown color scheme %q", c.Palette.Name)
	}
	switch s.Kind {
	case palette.Sequential:
		_, err := palette.Build(palette.Sequential, s.Name, c.BinCount(), c.PaletteOptions()...)
		return err
	case palette.Categorical:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidScale, "scheme %q is %s; set the palette scale to %s to use it", s.Name, s.Kind, s.Kind)
}

// Method returns the classification method; call Validate first.
func (c *Config) Method() classify.Method {
	m, _ := classify.ParseMethod(c.Classification.Method)
	return m
}

// BinCount returns the number of bins the configuration asks for.
func (c *Config) BinCount() int {
	if c.Method() == classify.Manual {
		return len(c.Classification.Thresholds) - 1
	}
	return c.Classification.Bins
}

// ClassifyOptions returns the options for classify.Classify.
func (c *Config) ClassifyOptions() []classify.Option {
	if len(c.Classification.Thresholds) == 0 {
		return nil
	}
	return []classify.Option{classify.WithThresholds(c.Classification.Thresholds)}
}

// Scale returns the scale kind for numeric or categorical data.
func (c *Config) Scale(categorical bool) palette.Kind {
	if c.Palette.Scale != "" {
		return palette.Kind(c.Palette.Scale)
	}
	if categorical {
		return palette.Categorical
	}
	return palette.Sequential
}

// PaletteOptions returns the options for palette.Build.
func (c *Config) PaletteOptions() []palette.Option {
	opts := []palette.Option{palette.WithNoData(c.Palette.NoDataColor)}
	if c.Palette.Center != nil {
		opts = append(opts, palette.WithCenter(*c.Palette.Center))
	}
	return opts
}

// LegendOptions returns the options for annotate.BuildLegend.
func (c *Config) LegendOptions() annotate.LegendOptions {
	o := annotate.LegendOptions{
		X:           annotate.DefaultLegendX,
		Y:           c.Legend.Y,
		Orientation: annotate.Orientation(c.Legend.Orientation),
		Title:       c.Legend.Title,
	}
	if c.Legend.X != nil {
		o.X = *c.Legend.X
	}
	return o
}
