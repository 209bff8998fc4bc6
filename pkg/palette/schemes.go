package palette

import (
	"slices"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// Scheme is a named color scheme for one scale kind.
type Scheme struct {
	Name string
	Kind Kind
	// Colors lists the anchor colors: light and dark for sequential; low,
	// neutral and high for diverging; the full list for categorical and
	// binary.
	Colors []string

	light, dark        colorful.Color
	low, neutral, high colorful.Color
}

var schemes = []Scheme{
	// Sequential endpoints follow the ColorBrewer single-hue ramps.
	{Name: "blues", Kind: Sequential, Colors: []string{"#eff3ff", "#08519c"}},
	{Name: "greens", Kind: Sequential, Colors: []string{"#edf8e9", "#006d2c"}},
	{Name: "reds", Kind: Sequential, Colors: []string{"#fee5d9", "#a50f15"}},
	{Name: "purples", Kind: Sequential, Colors: []string{"#f2f0f7", "#54278f"}},
	{Name: "oranges", Kind: Sequential, Colors: []string{"#feedde", "#a63603"}},
	{Name: "greys", Kind: Sequential, Colors: []string{"#f7f7f7", "#252525"}},

	{Name: "rdbu", Kind: Diverging, Colors: []string{"#b2182b", "#f7f7f7", "#2166ac"}},
	{Name: "brbg", Kind: Diverging, Colors: []string{"#8c510a", "#f5f5f5", "#01665e"}},
	{Name: "piyg", Kind: Diverging, Colors: []string{"#c51b7d", "#f7f7f7", "#4d9221"}},

	// Paul Tol's muted qualitative scheme, distinguishable under common
	// color vision deficiencies.
	{Name: "tol", Kind: Categorical, Colors: []string{
		"#332288", "#88ccee", "#44aa99", "#117733", "#999933",
		"#ddcc77", "#cc6677", "#882255", "#aa4499", "#dddddd",
	}},
	{Name: "set2", Kind: Categorical, Colors: []string{
		"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3", "#a6d854", "#ffd92f", "#e5c494", "#b3b3b3",
	}},

	{Name: "contrast", Kind: Binary, Colors: []string{"#67a9cf", "#ef8a62"}},
	{Name: "mono", Kind: Binary, Colors: []string{"#ffffff", "#252525"}},
}

var defaults = map[Kind]string{
	Sequential:  "blues",
	Diverging:   "rdbu",
	Categorical: "tol",
	Binary:      "contrast",
}

func init() {
	for i := range schemes {
		s := &schemes[i]
		anchors := make([]colorful.Color, len(s.Colors))
		for j, hex := range s.Colors {
			c, err := colorful.Hex(hex)
			if err != nil {
				panic("palette: bad color " + hex + " in scheme " + s.Name)
			}
			anchors[j] = c
		}
		switch s.Kind {
		case Sequential:
			s.light, s.dark = anchors[0], anchors[1]
		case Diverging:
			s.low, s.neutral, s.high = anchors[0], anchors[1], anchors[2]
		}
	}
}

// Schemes returns the built-in schemes of kind, or all schemes when kind is
// empty, sorted by name.
func Schemes(kind Kind) []Scheme {
	var out []Scheme
	for _, s := range schemes {
		if kind == "" || s.Kind == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return slices.Index(Kinds, out[i].Kind) < slices.Index(Kinds, out[j].Kind)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup returns the built-in scheme called name.
func Lookup(name string) (Scheme, bool) {
	for _, s := range schemes {
		if s.Name == name {
			return s, true
		}
	}
	return Scheme{}, false
}

// Default returns the name of the default scheme of kind.
func Default(kind Kind) string { return defaults[kind] }

func lookup(kind Kind, name string) (Scheme, error) {
	if name == "" {
		name = defaults[kind]
		if name == "" {
			return Scheme{}, errors.New(errors.ErrCodeInvalidScale, "unknown scale %q", kind)
		}
	}
	for _, s := range schemes {
		if s.Name != name {
			continue
		}
		if s.Kind != kind {
			return Scheme{}, errors.New(errors.ErrCodeInvalidScale, "scheme %q is %s, not %s", name, s.Kind, kind)
		}
		return s, nil
	}
	return Scheme{}, errors.New(errors.ErrCodeInvalidScale, "unknown color scheme %q", name)
}
