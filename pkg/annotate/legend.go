package annotate

import (
	"cmp"
	"slices"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// Legend cell geometry.
const (
	SwatchWidth  = 20.0
	SwatchHeight = 14.0
	// Pitch is the distance between consecutive rows of a vertical legend.
	Pitch = 20.0
	// DefaultLegendX is the left edge of the legend when none is configured.
	DefaultLegendX = 50.0

	legendFontSize = 12.0
	titleFontSize  = 13.0
	swatchGap      = 5.0
	entryGap       = 15.0
	bottomMargin   = 30.0
)

// NoDataLabel is the legend text of the no-data entry.
const NoDataLabel = "No data"

// Orientation is the direction in which legend entries are laid out.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// ParseOrientation validates an orientation name; empty means vertical.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case "", Vertical:
		return Vertical, nil
	case Horizontal:
		return Horizontal, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown legend orientation %q (must be vertical or horizontal)", s)
}

// LegendEntry is one swatch of the legend.
type LegendEntry struct {
	Label string
	Color string
	Order int
}

// Entries derives one entry per bin in bin order. With noData set, a final
// entry for the no-data color is added.
func Entries(bins []classify.Bin, pal palette.Palette, noData bool) []LegendEntry {
	out := make([]LegendEntry, 0, len(bins)+1)
	for i, b := range bins {
		out = append(out, LegendEntry{Label: b.Label(), Color: pal.Color(i), Order: i})
	}
	if noData {
		out = append(out, LegendEntry{Label: NoDataLabel, Color: pal.NoData, Order: len(out)})
	}
	return out
}

// ColorEntries derives entries for explicitly colored points: one per
// distinct color, labeled by the first point using it, sorted by label.
func ColorEntries(points []series.Point) []LegendEntry {
	var out []LegendEntry
	seen := make(map[string]bool)
	for _, p := range points {
		if p.Color == "" || seen[p.Color] {
			continue
		}
		seen[p.Color] = true
		out = append(out, LegendEntry{Label: p.DisplayLabel(), Color: p.Color})
	}
	slices.SortStableFunc(out, func(a, b LegendEntry) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.Color, b.Color))
	})
	for i := range out {
		out[i].Order = i
	}
	return out
}

// LegendOptions places and titles the legend.
type LegendOptions struct {
	X float64
	// Y is the top edge; nil places the legend at the bottom of the frame.
	Y           *float64
	Orientation Orientation
	Title       string
}

// BuildLegend lays out entries as swatch and label pairs inside a group with
// id [LegendID]. The optional title precedes the entries.
func BuildLegend(entries []LegendEntry, frame svgdoc.Box, opts LegendOptions) *etree.Element {
	entries = slices.Clone(entries)
	slices.SortStableFunc(entries, func(a, b LegendEntry) int { return cmp.Compare(a.Order, b.Order) })

	rows := len(entries)
	if opts.Orientation == Horizontal {
		rows = 1
	}
	if opts.Title != "" {
		rows++
	}
	y := frame.Y + frame.Height - (float64(rows)*Pitch + bottomMargin)
	if opts.Y != nil {
		y = *opts.Y
	}
	x := opts.X

	g := etree.NewElement("g")
	g.CreateAttr("id", LegendID)

	if opts.Title != "" {
		t := newText(x, y+11, titleFontSize, opts.Title)
		t.CreateAttr("font-weight", "bold")
		g.AddChild(t)
		y += Pitch
	}

	for _, e := range entries {
		rect := etree.NewElement("rect")
		rect.CreateAttr("x", num(x))
		rect.CreateAttr("y", num(y))
		rect.CreateAttr("width", num(SwatchWidth))
		rect.CreateAttr("height", num(SwatchHeight))
		rect.CreateAttr("fill", e.Color)
		rect.CreateAttr("stroke", textColor)
		rect.CreateAttr("stroke-width", "0.5")
		g.AddChild(rect)
		g.AddChild(newText(x+SwatchWidth+swatchGap, y+11, legendFontSize, e.Label))

		if opts.Orientation == Horizontal {
			x += SwatchWidth + swatchGap + textWidth(e.Label, legendFontSize) + entryGap
		} else {
			y += Pitch
		}
	}
	return g
}
