package annotate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/region"
)

// DefaultLabelFontSize is used when LabelOptions.FontSize is zero.
const DefaultLabelFontSize = 10.0

// Position is the anchor of a region label: its center and, when known, the
// size of the region's bounding box.
type Position struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	W float64 `json:"w,omitempty" toml:"w,omitempty"`
	H float64 `json:"h,omitempty" toml:"h,omitempty"`
}

// Area returns the bounding box area, zero when the size is unknown.
func (p Position) Area() float64 { return p.W * p.H }

// Table maps normalized region codes to label positions.
type Table map[string]Position

// Lookup finds the position of code, normalizing it first.
func (t Table) Lookup(code string) (Position, bool) {
	p, ok := t[region.Normalize(code)]
	return p, ok
}

// LoadTable reads a centroid table from a .json or .toml file. Both map a
// region code to {x, y, w, h}; w and h are optional.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "centroid table not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}

	raw := map[string]Position{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported centroid table format %q (use .json or .toml)", ext)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse centroid table %s", path)
	}

	t := make(Table, len(raw))
	for code, p := range raw {
		t[region.Normalize(code)] = p
	}
	return t, nil
}

// Merge returns a table holding the entries of t with gaps filled from
// fallback. Entries of t win.
func (t Table) Merge(fallback Table) Table {
	out := make(Table, len(t)+len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range t {
		out[k] = v
	}
	return out
}

// LabelItem is one label to draw.
type LabelItem struct {
	Code string
	Text string
	At   Position
}

// LabelOptions configures BuildLabels.
type LabelOptions struct {
	FontSize float64
}

// BuildLabels returns a group with id [LabelsID] holding one label per item,
// ordered by code. A label whose estimated text box is larger than the
// region's bounding box is drawn beside the region with a short leader line.
func BuildLabels(items []LabelItem, opts LabelOptions) *etree.Element {
	size := opts.FontSize
	if size <= 0 {
		size = DefaultLabelFontSize
	}
	items = append([]LabelItem(nil), items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Code < items[j].Code })

	g := etree.NewElement("g")
	g.CreateAttr("id", LabelsID)
	for _, it := range items {
		if NeedsLeader(it.At, it.Text, size) {
			offset := 1.5 * size
			x2, y2 := it.At.X+offset, it.At.Y-offset
			line := etree.NewElement("line")
			line.CreateAttr("x1", num(it.At.X))
			line.CreateAttr("y1", num(it.At.Y))
			line.CreateAttr("x2", num(x2))
			line.CreateAttr("y2", num(y2))
			line.CreateAttr("stroke", textColor)
			line.CreateAttr("stroke-width", "0.5")
			g.AddChild(line)

			t := newText(x2+2, y2, size, it.Text)
			t.CreateAttr("text-anchor", "start")
			t.CreateAttr("dominant-baseline", "middle")
			g.AddChild(t)
			continue
		}
		t := newText(it.At.X, it.At.Y, size, it.Text)
		t.CreateAttr("text-anchor", "middle")
		t.CreateAttr("dominant-baseline", "middle")
		g.AddChild(t)
	}
	return g
}

// NeedsLeader reports whether text at the given font size would not fit
// inside the region at p. Regions of unknown size are labeled directly.
func NeedsLeader(p Position, text string, fontSize float64) bool {
	if p.W <= 0 || p.H <= 0 {
		return false
	}
	return p.Area() < textWidth(text, fontSize)*fontSize*1.2
}
