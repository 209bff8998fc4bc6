package annotate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/choropleth/pkg/cache"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

const mapSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 400 300">
<path id="US" d="M10 10 L110 10 L110 60 L10 60 Z"/>
<path class="Canada" d="M200,20 h50 v20 h-50 z"/>
<path class="Canada" d="m200 100 c10-10 20 10 30 0"/>
<circle id="MT" cx="300" cy="200" r="2"/>
</svg>`

func parseMap(t *testing.T) *svgdoc.Document {
	t.Helper()
	doc, err := svgdoc.Parse([]byte(mapSVG))
	if err != nil {
		t.Fatalf("svgdoc.Parse: %v", err)
	}
	return doc
}

func attrs(el *etree.Element) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		m[a.Key] = a.Value
	}
	return m
}

func TestEntries(t *testing.T) {
	res, err := classify.Classify([]float64{0, 10, 20, 30}, classify.EqualInterval, 3)
	if err != nil {
		t.Fatal(err)
	}
	pal, err := palette.Build(palette.Sequential, "blues", res.K())
	if err != nil {
		t.Fatal(err)
	}
	got := Entries(res.Bins, pal, true)
	want := []LegendEntry{
		{Label: "0 - 10", Color: pal.Colors[0], Order: 0},
		{Label: "10 - 20", Color: pal.Colors[1], Order: 1},
		{Label: "20 - 30", Color: pal.Colors[2], Order: 2},
		{Label: NoDataLabel, Color: palette.DefaultNoData, Order: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestColorEntries(t *testing.T) {
	got := ColorEntries([]series.Point{
		{Code: "US", Color: "#ff0000", Label: "Visited"},
		{Code: "FR", Color: "#00ff00", Label: "Lived"},
		{Code: "DE", Color: "#ff0000", Label: "ignored"},
		{Code: "IT", Value: 1, Numeric: true},
	})
	want := []LegendEntry{
		{Label: "Lived", Color: "#00ff00", Order: 0},
		{Label: "Visited", Color: "#ff0000", Order: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLegendVertical(t *testing.T) {
	entries := []LegendEntry{
		{Label: "b", Color: "#222", Order: 1},
		{Label: "a", Color: "#111", Order: 0},
	}
	frame := svgdoc.Box{Width: 800, Height: 600}
	g := BuildLegend(entries, frame, LegendOptions{X: DefaultLegendX})

	if g.SelectAttrValue("id", "") != LegendID {
		t.Errorf("legend id = %q", g.SelectAttrValue("id", ""))
	}
	kids := g.ChildElements()
	if len(kids) != 4 {
		t.Fatalf("got %d children, want 4", len(kids))
	}
	// Auto y: 600 - (2*20 + 30) = 530.
	wantRect := map[string]string{
		"x": "50", "y": "530", "width": "20", "height": "14",
		"fill": "#111", "stroke": "#333", "stroke-width": "0.5",
	}
	if diff := cmp.Diff(wantRect, attrs(kids[0])); diff != "" {
		t.Errorf("first swatch (-want +got):\n%s", diff)
	}
	if kids[1].Text() != "a" || kids[1].SelectAttrValue("x", "") != "75" || kids[1].SelectAttrValue("y", "") != "541" {
		t.Errorf("first label = %q at (%s,%s)", kids[1].Text(), kids[1].SelectAttrValue("x", ""), kids[1].SelectAttrValue("y", ""))
	}
	if kids[2].SelectAttrValue("y", "") != "550" {
		t.Errorf("second swatch y = %s, want 550", kids[2].SelectAttrValue("y", ""))
	}
}

func TestBuildLegendTitleAndY(t *testing.T) {
	y := 100.0
	g := BuildLegend([]LegendEntry{{Label: "x", Color: "#000"}}, svgdoc.Box{Width: 400, Height: 300},
		LegendOptions{X: 10, Y: &y, Title: "Population"})
	kids := g.ChildElements()
	if len(kids) != 3 {
		t.Fatalf("got %d children, want 3", len(kids))
	}
	if kids[0].Tag != "text" || kids[0].Text() != "Population" {
		t.Errorf("title first: got <%s>%s", kids[0].Tag, kids[0].Text())
	}
	if got := kids[1].SelectAttrValue("y", ""); got != "120" {
		t.Errorf("swatch below title y = %s, want 120", got)
	}
}

func TestBuildLegendHorizontal(t *testing.T) {
	entries := []LegendEntry{{Label: "ab", Color: "#111", Order: 0}, {Label: "cd", Color: "#222", Order: 1}}
	g := BuildLegend(entries, svgdoc.Box{Width: 400, Height: 300}, LegendOptions{X: 0, Orientation: Horizontal})
	kids := g.ChildElements()
	if kids[0].SelectAttrValue("y", "") != kids[2].SelectAttrValue("y", "") {
		t.Error("horizontal swatches should share a row")
	}
	// 20 swatch + 5 gap + 2 chars * 12 * 0.6 + 15 gap.
	if got := kids[2].SelectAttrValue("x", ""); got != "54.4" {
		t.Errorf("second swatch x = %s, want 54.4", got)
	}
	if got := kids[0].SelectAttrValue("y", ""); got != "250" {
		t.Errorf("row y = %s, want 250", got)
	}
}

func TestParseOrientation(t *testing.T) {
	if o, err := ParseOrientation(""); err != nil || o != Vertical {
		t.Errorf("empty: %v, %v", o, err)
	}
	if o, err := ParseOrientation("horizontal"); err != nil || o != Horizontal {
		t.Errorf("horizontal: %v, %v", o, err)
	}
	if _, err := ParseOrientation("diagonal"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v", err)
	}
}

func TestBuildTitle(t *testing.T) {
	el := BuildTitle("World", svgdoc.Box{Width: 800, Height: 600})
	want := map[string]string{
		"x": "400", "y": "30", "font-family": "sans-serif", "font-size": "24",
		"fill": "#333", "id": TitleID, "font-weight": "bold", "text-anchor": "middle",
	}
	if diff := cmp.Diff(want, attrs(el)); diff != "" {
		t.Errorf("title attrs (-want +got):\n%s", diff)
	}
	if el.Text() != "World" {
		t.Errorf("text = %q", el.Text())
	}
}

func TestBuildLabels(t *testing.T) {
	items := []LabelItem{
		{Code: "US", Text: "US", At: Position{X: 60, Y: 35, W: 100, H: 50}},
		{Code: "MT", Text: "Malta", At: Position{X: 300, Y: 200, W: 4, H: 4}},
		{Code: "XX", Text: "XX", At: Position{X: 1, Y: 1}},
	}
	g := BuildLabels(items, LabelOptions{})
	kids := g.ChildElements()
	// MT: line + text, US: text, XX: text.
	if len(kids) != 4 {
		t.Fatalf("got %d children, want 4", len(kids))
	}
	if kids[0].Tag != "line" || kids[1].Text() != "Malta" {
		t.Errorf("small region should get a leader line, got <%s> then %q", kids[0].Tag, kids[1].Text())
	}
	if kids[1].SelectAttrValue("x", "") != "317" || kids[1].SelectAttrValue("y", "") != "185" {
		t.Errorf("leader label at (%s,%s)", kids[1].SelectAttrValue("x", ""), kids[1].SelectAttrValue("y", ""))
	}
	if kids[2].Text() != "US" || kids[2].SelectAttrValue("text-anchor", "") != "middle" {
		t.Errorf("large region should be labeled directly")
	}
}

func TestNeedsLeader(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"unknown size", Position{X: 1, Y: 1}, false},
		{"roomy", Position{W: 100, H: 100}, false},
		{"tiny", Position{W: 2, H: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsLeader(tt.pos, "Label", 10); got != tt.want {
				t.Errorf("NeedsLeader = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "c.json")
	if err := os.WriteFile(jsonPath, []byte(`{"us": {"x": 1, "y": 2, "w": 3, "h": 4}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	tomlPath := filepath.Join(dir, "c.toml")
	if err := os.WriteFile(tomlPath, []byte("[FR]\nx = 5.5\ny = 6.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := LoadTable(jsonPath)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if p, ok := tbl.Lookup("US"); !ok || p != (Position{X: 1, Y: 2, W: 3, H: 4}) {
		t.Errorf("US = %+v, %v", p, ok)
	}

	tbl2, err := LoadTable(tomlPath)
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	merged := tbl.Merge(tbl2)
	if p, ok := merged.Lookup("fr"); !ok || p.X != 5.5 {
		t.Errorf("FR = %+v, %v", p, ok)
	}

	if _, err := LoadTable(filepath.Join(dir, "nope.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := LoadTable(filepath.Join(dir, "c.yaml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing yaml: err = %v", err)
	}
}

func TestPathBounds(t *testing.T) {
	tests := []struct {
		name string
		d    string
		want svgdoc.Box
	}{
		{"absolute", "M10 10 L110 10 L110 60 L10 60 Z", svgdoc.Box{X: 10, Y: 10, Width: 100, Height: 50}},
		{"relative hv", "m200,20 h50 v20 h-50 z", svgdoc.Box{X: 200, Y: 20, Width: 50, Height: 20}},
		{"implicit lineto", "M0 0 10 0 10 5", svgdoc.Box{Width: 10, Height: 5}},
		{"packed numbers", "M1-2L.5.5", svgdoc.Box{X: 0.5, Y: -2, Width: 0.5, Height: 2.5}},
		{"exponent", "M1e1 0 L2E1 1e0", svgdoc.Box{X: 10, Width: 10, Height: 1}},
		{"cubic control points", "M0 0 C0 -10 10 -10 10 0", svgdoc.Box{Y: -10, Width: 10, Height: 10}},
		{"arc packed flags", "M0 0 a5 5 0 0110 0", svgdoc.Box{Width: 10}},
		{"subpaths", "M0 0 L1 1 Z M5 5 l1 1", svgdoc.Box{Width: 6, Height: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pathBounds(tt.d).box()
			if !ok {
				t.Fatal("no bounds")
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("bounds (-want +got):\n%s", diff)
			}
		})
	}
	if _, ok := pathBounds("").box(); ok {
		t.Error("empty path should have no bounds")
	}
}

func TestBBoxShapes(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<g>
		<rect x="1" y="2" width="3" height="4"/>
		<circle cx="10" cy="10" r="1"/>
		<ellipse cx="0" cy="0" rx="2" ry="1"/>
		<polygon points="5,5 7,9 6,1"/>
		<use href="#x"/>
	</g>`); err != nil {
		t.Fatal(err)
	}
	kids := doc.Root().ChildElements()
	want := []svgdoc.Box{
		{X: 1, Y: 2, Width: 3, Height: 4},
		{X: 9, Y: 9, Width: 2, Height: 2},
		{X: -2, Y: -1, Width: 4, Height: 2},
		{X: 5, Y: 1, Width: 2, Height: 8},
	}
	for i, w := range want {
		got, ok := BBox(kids[i])
		if !ok || got != w {
			t.Errorf("<%s>: got %+v, %v; want %+v", kids[i].Tag, got, ok, w)
		}
	}
	if _, ok := BBox(kids[4]); ok {
		t.Error("<use> has no measurable geometry")
	}
	g, ok := BBox(doc.Root())
	if !ok || g != (svgdoc.Box{X: -2, Y: -1, Width: 13, Height: 12}) {
		t.Errorf("group bounds = %+v", g)
	}
}

func TestGeometryCached(t *testing.T) {
	ctx := context.Background()
	doc := parseMap(t)
	idx := region.NewIndex(doc, nil)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tbl, hit, err := Geometry(ctx, c, doc, idx)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	us, ok := tbl.Lookup("us")
	if !ok || us != (Position{X: 60, Y: 35, W: 100, H: 50}) {
		t.Errorf("US = %+v, %v", us, ok)
	}
	ca, ok := tbl.Lookup("CANADA")
	if !ok || ca.Y < 20 || ca.Y > 110 || ca.W != 50 {
		t.Errorf("CANADA should span both paths, got %+v", ca)
	}

	again, hit, err := Geometry(ctx, c, doc, idx)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if diff := cmp.Diff(tbl, again); diff != "" {
		t.Errorf("cached table differs:\n%s", diff)
	}
}

func TestRemove(t *testing.T) {
	doc := parseMap(t)
	before := doc.ElementCount()
	doc.Append(
		BuildLegend([]LegendEntry{{Label: "a", Color: "#000"}}, doc.ViewBox(), LegendOptions{}),
		BuildTitle("t", doc.ViewBox()),
		BuildLabels(nil, LabelOptions{}),
	)
	if n := Remove(doc); n != 3 {
		t.Errorf("Remove = %d, want 3", n)
	}
	if doc.ElementCount() != before {
		t.Errorf("element count = %d, want %d", doc.ElementCount(), before)
	}
	data, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), LegendID) {
		t.Error("legend still serialized")
	}
}
