// Package annotate builds the legend, title and label elements drawn on top
// of a styled map.
//
// Every builder returns detached etree elements; callers append them to the
// document root with [svgdoc.Document.Append] so they render above all
// regions. Each annotation carries a fixed id ([LegendID], [TitleID],
// [LabelsID]) and [Remove] deletes earlier copies, which keeps repeated runs
// over the same output stable.
//
// Label positions come from a static code→position [Table]. When a table
// lacks a code, [Geometry] can derive bounding boxes from the region shapes
// themselves; that computation is memoized per document content hash through
// a [cache.Cache].
package annotate

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// Element ids of the generated annotations.
const (
	LegendID = "legend"
	TitleID  = "map-title"
	LabelsID = "labels"
)

const (
	fontFamily = "sans-serif"
	textColor  = "#333"
	// charWidth approximates the advance of one glyph relative to the font
	// size for sans-serif faces.
	charWidth = 0.6
)

// Remove deletes annotations left by a previous run from the root of doc
// and reports how many were removed.
func Remove(doc *svgdoc.Document) int {
	root := doc.Root()
	n := 0
	for _, child := range root.ChildElements() {
		switch child.SelectAttrValue("id", "") {
		case LegendID, TitleID, LabelsID:
			root.RemoveChild(child)
			n++
		}
	}
	return n
}

// textWidth estimates the rendered width of s.
func textWidth(s string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(s)) * fontSize * charWidth
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func newText(x, y float64, fontSize float64, text string) *etree.Element {
	el := etree.NewElement("text")
	el.CreateAttr("x", num(x))
	el.CreateAttr("y", num(y))
	el.CreateAttr("font-family", fontFamily)
	el.CreateAttr("font-size", num(fontSize))
	el.CreateAttr("fill", textColor)
	el.SetText(text)
	return el
}
