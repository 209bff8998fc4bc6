package annotate

import (
	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

const (
	mapTitleFontSize = 24.0
	mapTitleTop      = 30.0
)

// BuildTitle returns a bold title centered at the top of the frame.
func BuildTitle(text string, frame svgdoc.Box) *etree.Element {
	t := newText(frame.X+frame.Width/2, frame.Y+mapTitleTop, mapTitleFontSize, text)
	t.CreateAttr("id", TitleID)
	t.CreateAttr("font-weight", "bold")
	t.CreateAttr("text-anchor", "middle")
	return t
}
