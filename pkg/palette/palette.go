// Package palette assigns colors to classification bins.
//
// A [Palette] has one color per bin plus a reserved no-data color that is
// never one of the bin colors. How bin colors are chosen depends on the
// scale [Kind]:
//
//   - Sequential: one hue, from light (bin 0) to dark (last bin)
//   - Diverging: two hues meeting at a neutral center bin, with the same
//     lightness falloff on both sides
//   - Categorical: distinct hues, cycled when bins outnumber colors
//   - Binary: exactly two contrasting colors
//
// Sequential and diverging ramps are interpolated in CIE L*a*b* space so
// consecutive bins differ by perceptually even steps.
package palette

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// Kind is a scale type.
type Kind string

const (
	Sequential  Kind = "sequential"
	Diverging   Kind = "diverging"
	Categorical Kind = "categorical"
	Binary      Kind = "binary"
)

// Kinds lists the supported scale kinds.
var Kinds = []Kind{Sequential, Diverging, Categorical, Binary}

// ParseKind validates a scale kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidScale, "unknown scale %q (must be sequential, diverging, categorical or binary)", s)
}

// DefaultNoData is the reserved color of regions without data.
const DefaultNoData = "#ececec"

// NoCenter asks Build to pick the diverging center itself.
const NoCenter = -1

// Palette is the resolved set of colors for one classification.
type Palette struct {
	Kind   Kind
	Name   string
	Colors []string
	NoData string
	// Cycled is set when a categorical scheme had fewer colors than bins.
	Cycled bool
}

// Color returns the color of bin i, or the no-data color when i is out of
// range (for example -1 from an unclassifiable value).
func (p Palette) Color(i int) string {
	if i < 0 || i >= len(p.Colors) {
		return p.NoData
	}
	return p.Colors[i]
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	noData string
	center int
}

// WithNoData overrides the no-data color.
func WithNoData(c string) Option {
	return func(o *buildOptions) {
		if c != "" {
			o.noData = c
		}
	}
}

// WithCenter sets the neutral bin of a diverging scale. It is required when
// the bin count is even.
func WithCenter(bin int) Option {
	return func(o *buildOptions) { o.center = bin }
}

// Build resolves a palette of k colors for the named scheme. An empty name
// selects the default scheme of kind. Build fails with ErrCodeInvalidScale
// when the scheme does not belong to kind, the bin count does not fit the
// kind, or the no-data color collides with a bin color.
func Build(kind Kind, name string, k int, opts ...Option) (Palette, error) {
	o := buildOptions{noData: DefaultNoData, center: NoCenter}
	for _, opt := range opts {
		opt(&o)
	}
	if k <= 0 {
		return Palette{}, errors.New(errors.ErrCodeInvalidScale, "palette needs a positive bin count, got %d", k)
	}

	s, err := lookup(kind, name)
	if err != nil {
		return Palette{}, err
	}

	p := Palette{Kind: kind, Name: s.Name, NoData: o.noData}
	switch kind {
	case Sequential:
		p.Colors = sequential(s, k)
	case Diverging:
		center, err := divergingCenter(k, o.center)
		if err != nil {
			return Palette{}, err
		}
		p.Colors = diverging(s, k, center)
	case Categorical:
		p.Colors = make([]string, k)
		for i := range k {
			p.Colors[i] = s.Colors[i%len(s.Colors)]
		}
		p.Cycled = k > len(s.Colors)
	case Binary:
		if k != 2 {
			return Palette{}, errors.New(errors.ErrCodeInvalidScale, "binary scale needs exactly 2 bins, got %d", k)
		}
		p.Colors = []string{s.Colors[0], s.Colors[1]}
	default:
		return Palette{}, errors.New(errors.ErrCodeInvalidScale, "unknown scale %q", kind)
	}

	if err := checkNoData(p); err != nil {
		return Palette{}, err
	}
	return p, nil
}

// ColorFor returns the color of bin i out of k using the default scheme of
// kind. Diverging scales with an even k use no center bin here; callers that
// need one should use Build with WithCenter.
func ColorFor(i, k int, kind Kind) (string, error) {
	if i < 0 || i >= k {
		return "", errors.New(errors.ErrCodeInvalidScale, "bin %d out of range for %d bins", i, k)
	}
	var opts []Option
	if kind == Diverging && k%2 == 0 {
		opts = append(opts, WithCenter(k/2))
	}
	p, err := Build(kind, "", k, opts...)
	if err != nil {
		return "", err
	}
	return p.Colors[i], nil
}

func divergingCenter(k, center int) (int, error) {
	if center == NoCenter {
		if k%2 == 0 {
			return 0, errors.New(errors.ErrCodeInvalidScale, "diverging scale with %d bins needs an explicit center bin", k)
		}
		return k / 2, nil
	}
	if center < 0 || center >= k {
		return 0, errors.New(errors.ErrCodeInvalidScale, "diverging center %d out of range for %d bins", center, k)
	}
	return center, nil
}

func sequential(s Scheme, k int) []string {
	out := make([]string, k)
	for i := range k {
		t := 1.0
		if k > 1 {
			t = float64(i) / float64(k-1)
		}
		out[i] = blend(s.light, s.dark, t)
	}
	return out
}

func diverging(s Scheme, k, center int) []string {
	out := make([]string, k)
	span := max(center, k-1-center)
	for i := range k {
		switch {
		case i == center || span == 0:
			out[i] = s.neutral.Hex()
		case i < center:
			t := float64(center-i) / float64(span)
			out[i] = blend(s.neutral, s.low, t)
		default:
			t := float64(i-center) / float64(span)
			out[i] = blend(s.neutral, s.high, t)
		}
	}
	return out
}

// blend interpolates in L*a*b*; the endpoints come back exactly.
func blend(from, to colorful.Color, t float64) string {
	switch {
	case t <= 0:
		return from.Hex()
	case t >= 1:
		return to.Hex()
	}
	return from.BlendLab(to, t).Clamped().Hex()
}

func checkNoData(p Palette) error {
	nd, err := colorful.Hex(expandHex(p.NoData))
	if err != nil {
		// Named CSS colors cannot be compared numerically; compare text.
		for _, c := range p.Colors {
			if strings.EqualFold(c, p.NoData) {
				return errors.New(errors.ErrCodeInvalidScale, "no-data color %s is also a bin color", p.NoData)
			}
		}
		return nil
	}
	for i, c := range p.Colors {
		if bc, err := colorful.Hex(c); err == nil && bc.Hex() == nd.Hex() {
			return errors.New(errors.ErrCodeInvalidScale, "no-data color %s equals the color of bin %d", p.NoData, i)
		}
	}
	return nil
}

// expandHex turns "#abc" into "#aabbcc".
func expandHex(s string) string {
	if len(s) == 4 && s[0] == '#' {
		return fmt.Sprintf("#%c%c%c%c%c%c", s[1], s[1], s[2], s[2], s[3], s[3])
	}
	return s
}
