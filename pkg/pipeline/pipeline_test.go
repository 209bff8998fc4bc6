package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/cache"
	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/observability"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/style"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

const worldMap = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1000 500">` +
	`<path id="FR" d="M10 10L60 10L60 60Z"/>` +
	`<path id="DE" d="M100 10L150 10L150 60Z"/>` +
	`<path id="IT" d="M200 10L250 10L250 60Z"/>` +
	`<g>` +
	`<path class="Canada" d="M300 10L350 10L350 60Z" style="stroke:#000"/>` +
	`<path class="Canada" d="M400 10L450 10L450 60Z" style="stroke:#000"/>` +
	`<path class="Canada" d="M500 10L550 10L550 60Z" style="stroke:#000"/>` +
	`</g>` +
	`<path id="ocean" d="M0 400L1000 400" fill="none"/>` +
	`<path d="M600 10L650 10L650 60Z"/>` +
	`</svg>`

func quietRunner() *Runner {
	return NewRunner(nil, log.New(io.Discard))
}

func mustDoc(t *testing.T, src string) *svgdoc.Document {
	t.Helper()
	doc, err := svgdoc.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return doc
}

func num(code string, v float64) series.Point {
	return series.Point{Code: code, Value: v, Numeric: true}
}

func mustSeries(t *testing.T, points ...series.Point) *series.Series {
	t.Helper()
	s, err := series.New(points...)
	if err != nil {
		t.Fatalf("series.New error: %v", err)
	}
	return s
}

func mustBytes(t *testing.T, doc *svgdoc.Document) []byte {
	t.Helper()
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	return out
}

func twoBins() config.Config {
	return config.Config{
		Classification: config.Classification{Method: "equal-interval", Bins: 2},
	}
}

func elementsByClass(doc *svgdoc.Document, class string) []*etree.Element {
	var out []*etree.Element
	doc.Walk(func(el *etree.Element) {
		if el.SelectAttrValue("class", "") == class {
			out = append(out, el)
		}
	})
	return out
}

func elementByID(doc *svgdoc.Document, id string) *etree.Element {
	var found *etree.Element
	doc.Walk(func(el *etree.Element) {
		if found == nil && el.SelectAttrValue("id", "") == id {
			found = el
		}
	})
	return found
}

func TestStateString(t *testing.T) {
	want := []string{"loaded", "resolved", "classified", "styled", "annotated", "serialized"}
	for i, w := range want {
		if got := State(i).String(); got != w {
			t.Errorf("State(%d) = %q, want %q", i, got, w)
		}
	}
	if got := State(99).String(); got != "unknown" {
		t.Errorf("State(99) = %q", got)
	}
}

func TestRunMultiRegion(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2), num("IT", 3), num("CA", 4))

	res, err := quietRunner().Run(context.Background(), doc, data, twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.State != Serialized {
		t.Errorf("State = %v, want serialized", res.State)
	}

	canada := elementsByClass(res.Document, "Canada")
	if len(canada) != 3 {
		t.Fatalf("got %d Canada elements, want 3", len(canada))
	}
	want := res.Palette.Color(1)
	for i, el := range canada {
		if got := el.SelectAttrValue("fill", ""); got != want {
			t.Errorf("Canada[%d] fill = %q, want %q", i, got, want)
		}
		s := el.SelectAttrValue("style", "")
		if !strings.Contains(s, "stroke:#000") {
			t.Errorf("Canada[%d] lost its stroke: %q", i, s)
		}
		if fill, _ := style.Fill(el); fill != want {
			t.Errorf("Canada[%d] style fill = %q, want %q", i, fill, want)
		}
	}

	if got := elementByID(res.Document, "FR").SelectAttrValue("fill", ""); got != res.Palette.Color(0) {
		t.Errorf("FR fill = %q, want %q", got, res.Palette.Color(0))
	}
	if res.Stats.Regions != 4 {
		t.Errorf("Regions = %d, want 4", res.Stats.Regions)
	}
	if res.Stats.ColoredElements != 6 {
		t.Errorf("ColoredElements = %d, want 6", res.Stats.ColoredElements)
	}
	if res.Stats.MultiElements != 3 {
		t.Errorf("MultiElements = %d, want 3", res.Stats.MultiElements)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestRunDoesNotModifyInput(t *testing.T) {
	doc := mustDoc(t, worldMap)
	before := mustBytes(t, doc)
	data := mustSeries(t, num("FR", 1), num("DE", 2))

	if _, err := quietRunner().Run(context.Background(), doc, data, twoBins()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if after := mustBytes(t, doc); !bytes.Equal(before, after) {
		t.Errorf("input document changed:\n%s", after)
	}
}

func TestRunIdempotent(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2), num("IT", 3), num("CA", 4))
	cfg := twoBins()
	cfg.Legend.Enabled = true
	cfg.Title.Text = "Index"
	cfg.Labels.Enabled = true
	cfg.Labels.Geometry = true

	r := quietRunner()
	first, err := r.Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	second, err := r.Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if diff := cmp.Diff(string(first.Output), string(second.Output)); diff != "" {
		t.Errorf("repeated run differs (-first +second):\n%s", diff)
	}

	// Styling the styled output again changes nothing either.
	again, err := r.Run(context.Background(), mustDoc(t, string(first.Output)), data, cfg)
	if err != nil {
		t.Fatalf("Run on output error: %v", err)
	}
	if diff := cmp.Diff(string(first.Output), string(again.Output)); diff != "" {
		t.Errorf("run over output differs (-first +again):\n%s", diff)
	}
}

func TestRunUnresolvedCode(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2), num("XX", 3))

	res, err := quietRunner().Run(context.Background(), doc, data, twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []Warning{{Code: errors.ErrCodeUnresolvedRegion, Region: "XX"}}
	if diff := cmp.Diff(want, res.Warnings, cmpWarning); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"XX"}, res.Stats.Unresolved); diff != "" {
		t.Errorf("Unresolved mismatch (-want +got):\n%s", diff)
	}
	if got, want := res.Document.ElementCount(), doc.ElementCount(); got != want {
		t.Errorf("ElementCount = %d, want %d", got, want)
	}
}

// cmpWarning compares warnings by code and region; messages are prose.
var cmpWarning = cmp.Comparer(func(a, b Warning) bool {
	return a.Code == b.Code && a.Region == b.Region
})

func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data []series.Point
		cfg  func(*config.Config)
		want errors.Code
	}{
		{
			name: "binary scale with three bins",
			src:  worldMap,
			data: []series.Point{num("FR", 1), num("DE", 2), num("IT", 3)},
			cfg: func(c *config.Config) {
				c.Classification.Bins = 3
				c.Palette.Scale = "binary"
			},
			want: errors.ErrCodeInvalidScale,
		},
		{
			name: "nothing resolves",
			src:  worldMap,
			data: []series.Point{num("XX", 1), num("YY", 2)},
			want: errors.ErrCodeUnresolvedRegion,
		},
		{
			name: "single distinct value",
			src:  worldMap,
			data: []series.Point{num("FR", 1), num("DE", 1)},
			want: errors.ErrCodeInsufficientData,
		},
		{
			name: "mixed data",
			src:  worldMap,
			data: []series.Point{num("FR", 1), {Code: "DE", Category: "high"}},
			want: errors.ErrCodeInvalidClassification,
		},
		{
			name: "thresholds outside the data",
			src:  worldMap,
			data: []series.Point{num("FR", 1), num("DE", 20)},
			cfg: func(c *config.Config) {
				c.Classification.Method = "manual"
				c.Classification.Bins = 0
				c.Classification.Thresholds = []float64{0, 5, 10}
			},
			want: errors.ErrCodeInvalidClassification,
		},
		{
			name: "missing namespace",
			src:  `<svg viewBox="0 0 10 10"><path id="FR" d="M0 0L1 1"/><path id="DE" d="M2 2L3 3"/></svg>`,
			data: []series.Point{num("FR", 1), num("DE", 2)},
			want: errors.ErrCodeNamespaceMissing,
		},
		{
			name: "empty series",
			src:  worldMap,
			want: errors.ErrCodeInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.src)
			before := doc.ElementCount()
			cfg := twoBins()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			res, err := quietRunner().Run(context.Background(), doc, mustSeries(t, tt.data...), cfg)
			if err == nil {
				t.Fatalf("Run succeeded with state %v, want %s", res.State, tt.want)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want code %s", err, tt.want)
			}
			if got := doc.ElementCount(); got != before {
				t.Errorf("input element count changed: %d -> %d", before, got)
			}
		})
	}
}

func TestRunInvalidScaleLeavesDocument(t *testing.T) {
	doc := mustDoc(t, worldMap)
	before := mustBytes(t, doc)
	cfg := twoBins()
	cfg.Classification.Bins = 3
	cfg.Palette.Scale = "binary"

	_, err := quietRunner().Run(context.Background(), doc, mustSeries(t, num("FR", 1), num("DE", 2), num("IT", 3)), cfg)
	if !errors.Is(err, errors.ErrCodeInvalidScale) {
		t.Fatalf("error = %v, want INVALID_SCALE", err)
	}
	if after := mustBytes(t, doc); !bytes.Equal(before, after) {
		t.Error("document changed after a rejected run")
	}
}

func TestRunNilInputs(t *testing.T) {
	r := quietRunner()
	data := mustSeries(t, num("FR", 1))
	if _, err := r.Run(context.Background(), nil, data, config.Config{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil document: error = %v", err)
	}
	if _, err := r.Run(context.Background(), mustDoc(t, worldMap), nil, config.Config{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil series: error = %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := quietRunner().Run(ctx, mustDoc(t, worldMap), mustSeries(t, num("FR", 1), num("DE", 2)), twoBins())
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunDefaultFill(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2))

	res, err := quietRunner().Run(context.Background(), doc, data, twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// IT, three Canada paths and the anonymous path; the ocean has fill="none".
	if res.Stats.DefaultFilled != 5 {
		t.Errorf("DefaultFilled = %d, want 5", res.Stats.DefaultFilled)
	}
	if got := elementByID(res.Document, "IT").SelectAttrValue("fill", ""); got != res.Palette.NoData {
		t.Errorf("IT fill = %q, want no-data %q", got, res.Palette.NoData)
	}
	if got := elementByID(res.Document, "ocean").SelectAttrValue("fill", ""); got != "none" {
		t.Errorf("ocean fill = %q, want none", got)
	}
	last := res.Legend[len(res.Legend)-1]
	if last.Label != annotate.NoDataLabel {
		t.Errorf("last legend entry = %+v, want the no-data entry", last)
	}

	cfg := twoBins()
	cfg.Regions.SkipDefaultFill = true
	res, err = quietRunner().Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Stats.DefaultFilled != 0 {
		t.Errorf("DefaultFilled = %d with SkipDefaultFill", res.Stats.DefaultFilled)
	}
	if elementByID(res.Document, "IT").SelectAttr("fill") != nil {
		t.Error("IT was filled with SkipDefaultFill")
	}
}

func TestRunInheritedFill(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg"><g fill="#123456"><path id="A" d="M0 0L1 1"/></g>` +
		`<path id="FR" d="M0 0L1 1"/><path id="DE" d="M0 0L1 1"/></svg>`
	res, err := quietRunner().Run(context.Background(), mustDoc(t, src), mustSeries(t, num("FR", 1), num("DE", 2)), twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Stats.DefaultFilled != 0 {
		t.Errorf("DefaultFilled = %d, want 0", res.Stats.DefaultFilled)
	}
	if elementByID(res.Document, "A").SelectAttr("fill") != nil {
		t.Error("element with an inherited fill was painted")
	}
}

func TestRunExplicitColors(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t,
		series.Point{Code: "FR", Color: "#ff0000", Label: "France"},
		series.Point{Code: "DE", Color: "#00ff00", Label: "Germany"},
	)
	cfg := config.Config{Regions: config.Regions{SkipDefaultFill: true}}

	res, err := quietRunner().Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Classification != nil {
		t.Error("explicit colors should not be classified")
	}
	if got := elementByID(res.Document, "FR").SelectAttrValue("fill", ""); got != "#ff0000" {
		t.Errorf("FR fill = %q", got)
	}
	want := []annotate.LegendEntry{
		{Label: "France", Color: "#ff0000", Order: 0},
		{Label: "Germany", Color: "#00ff00", Order: 1},
	}
	if diff := cmp.Diff(want, res.Legend); diff != "" {
		t.Errorf("legend mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCategorical(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t,
		series.Point{Code: "FR", Category: "west"},
		series.Point{Code: "DE", Category: "central"},
		series.Point{Code: "IT", Category: "west"},
	)
	cfg := config.Config{Classification: config.Classification{Categories: []string{"west", "central"}}}

	res, err := quietRunner().Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	fr := elementByID(res.Document, "FR").SelectAttrValue("fill", "")
	it := elementByID(res.Document, "IT").SelectAttrValue("fill", "")
	de := elementByID(res.Document, "DE").SelectAttrValue("fill", "")
	if fr != it || fr == de {
		t.Errorf("category fills FR=%s IT=%s DE=%s", fr, it, de)
	}
	if fr != res.Palette.Color(0) {
		t.Errorf("first category fill = %s, want %s", fr, res.Palette.Color(0))
	}
}

func TestRunReducedBinsWarns(t *testing.T) {
	cfg := config.Config{Classification: config.Classification{Method: "quantile", Bins: 5}}
	res, err := quietRunner().Run(context.Background(), mustDoc(t, worldMap), mustSeries(t, num("FR", 1), num("DE", 2), num("IT", 3)), cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Stats.RequestedBins != 5 || res.Stats.Bins != 3 {
		t.Errorf("bins = %d of %d, want 3 of 5", res.Stats.Bins, res.Stats.RequestedBins)
	}
	want := []Warning{{Code: errors.ErrCodeInsufficientData}}
	if diff := cmp.Diff(want, res.Warnings, cmpWarning); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMalformedStyleWarns(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg"><path id="FR" style="stroke" d="M0 0"/><path id="DE" d="M0 0"/></svg>`
	res, err := quietRunner().Run(context.Background(), mustDoc(t, src), mustSeries(t, num("FR", 1), num("DE", 2)), twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := []Warning{{Code: errors.ErrCodeMalformedStyle, Region: "FR"}}
	if diff := cmp.Diff(want, res.Warnings, cmpWarning); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if got := elementByID(res.Document, "FR").SelectAttrValue("style", ""); got != "fill:"+res.Palette.Color(0) {
		t.Errorf("FR style = %q", got)
	}
}

func TestRunAnnotations(t *testing.T) {
	cfg := twoBins()
	cfg.Legend.Enabled = true
	cfg.Legend.Title = "Score"
	cfg.Title.Text = "Scores by country"
	cfg.Labels.Enabled = true
	cfg.Labels.Geometry = true
	cfg.Labels.Text = config.LabelValue

	data := mustSeries(t, num("FR", 1.5), num("DE", 2), num("CA", 4))
	res, err := quietRunner().Run(context.Background(), mustDoc(t, worldMap), data, cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for _, id := range []string{annotate.LegendID, annotate.TitleID, annotate.LabelsID} {
		if elementByID(res.Document, id) == nil {
			t.Errorf("missing annotation %q", id)
		}
	}

	var texts []string
	for _, el := range elementByID(res.Document, annotate.LabelsID).FindElements(".//text") {
		texts = append(texts, el.Text())
	}
	if diff := cmp.Diff([]string{"4", "2", "1.5"}, texts); diff != "" {
		t.Errorf("label texts mismatch (-want +got):\n%s", diff)
	}
}

func TestRunGeometryCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r := NewRunner(fc, log.New(io.Discard))
	defer r.Close()

	cfg := twoBins()
	cfg.Labels.Enabled = true
	cfg.Labels.Geometry = true
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2))

	first, err := r.Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	second, err := r.Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if first.CacheInfo.GeometryHit || !second.CacheInfo.GeometryHit {
		t.Errorf("GeometryHit = %v then %v, want false then true", first.CacheInfo.GeometryHit, second.CacheInfo.GeometryHit)
	}
	if !bytes.Equal(first.Output, second.Output) {
		t.Error("cached geometry changed the output")
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	doc := mustDoc(t, worldMap)
	data := mustSeries(t, num("FR", 1), num("DE", 2), num("IT", 3), num("CA", 4))

	seq, err := quietRunner().Run(context.Background(), doc, data, twoBins())
	if err != nil {
		t.Fatalf("sequential Run error: %v", err)
	}
	cfg := twoBins()
	cfg.Parallelism = 4
	par, err := quietRunner().Run(context.Background(), doc, data, cfg)
	if err != nil {
		t.Fatalf("parallel Run error: %v", err)
	}
	if diff := cmp.Diff(string(seq.Output), string(par.Output)); diff != "" {
		t.Errorf("parallel output differs (-seq +par):\n%s", diff)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	started  []string
	warnings []string
}

func (h *recordingHooks) OnStageStart(_ context.Context, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, stage)
}

func (h *recordingHooks) OnWarning(_ context.Context, code, region string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings = append(h.warnings, code+":"+region)
}

var _ observability.PipelineHooks = (*recordingHooks)(nil)

func TestRunHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	defer observability.Reset()

	data := mustSeries(t, num("FR", 1), num("DE", 2), num("XX", 3))
	if _, err := quietRunner().Run(context.Background(), mustDoc(t, worldMap), data, twoBins()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if diff := cmp.Diff([]string{"resolved", "classified", "styled", "annotated", "serialized"}, h.started); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"UNRESOLVED_REGION:XX"}, h.warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStatsTimings(t *testing.T) {
	res, err := quietRunner().Run(context.Background(), mustDoc(t, worldMap), mustSeries(t, num("FR", 1), num("DE", 2)), twoBins())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for name, d := range map[string]time.Duration{
		"resolve":  res.Stats.ResolveTime,
		"classify": res.Stats.ClassifyTime,
		"style":    res.Stats.StyleTime,
		"annotate": res.Stats.AnnotateTime,
	} {
		if d < 0 {
			t.Errorf("%s time = %v", name, d)
		}
	}
}
