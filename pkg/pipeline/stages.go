package pipeline

import (
	"context"
	"slices"

	"github.com/beevik/etree"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/style"
)

// =============================================================================
// Resolved
// =============================================================================

func (rn *run) resolve(ctx context.Context) error {
	if rn.data.Len() == 0 {
		return errors.New(errors.ErrCodeInsufficientData, "data series is empty")
	}
	rn.idx = region.NewIndex(rn.work, rn.cfg.Regions.Aliases)
	rn.resolution = rn.idx.ResolveAll(rn.data.Codes())

	for i, err := range rn.resolution.Unresolved {
		rn.warn(ctx, err, rn.resolution.Missing[i])
	}
	rn.res.Stats.Unresolved = rn.resolution.Missing
	rn.res.Stats.Regions = len(rn.resolution.Regions)

	if len(rn.resolution.Regions) == 0 {
		return errors.New(errors.ErrCodeUnresolvedRegion, "none of the %d data codes matches an element of the document", rn.data.Len())
	}
	rn.Logger.Info("resolved regions",
		"regions", len(rn.resolution.Regions),
		"elements", rn.resolution.Elements(),
		"unresolved", len(rn.resolution.Missing))
	return nil
}

// =============================================================================
// Classified
// =============================================================================

func (rn *run) classify(ctx context.Context) error {
	cfg := &rn.cfg
	kind := rn.data.Kind()

	var (
		cr  *classify.Result
		err error
	)
	switch kind {
	case series.Mixed:
		return errors.New(errors.ErrCodeInvalidClassification, "data mixes numbers and categories")
	case series.Numeric:
		_, values := rn.data.Values()
		cr, err = classify.Classify(values, cfg.Method(), cfg.Classification.Bins, cfg.ClassifyOptions()...)
	case series.Categorical:
		_, cats := rn.data.Categories()
		cr, err = classify.Categorical(cats, cfg.Classification.Categories)
	case series.Empty:
		// Every point has an explicit color or no data.
		rn.res.Palette = palette.Palette{NoData: cfg.Palette.NoDataColor}
		return nil
	}
	if err != nil {
		return err
	}
	if cr.Notice != nil {
		rn.warn(ctx, cr.Notice, "")
	}

	pal, err := palette.Build(cfg.Scale(kind == series.Categorical), cfg.Palette.Name, cr.K(), cfg.PaletteOptions()...)
	if err != nil {
		return err
	}
	if pal.Cycled {
		rn.warn(ctx, errors.New(errors.ErrCodeInvalidScale, "palette %s has fewer colors than the %d bins; colors repeat", pal.Name, cr.K()), "")
	}

	rn.res.Classification = cr
	rn.res.Palette = pal
	rn.res.Stats.Bins = cr.K()
	rn.res.Stats.RequestedBins = cr.Requested
	rn.Logger.Info("classified values",
		"method", cr.Method,
		"bins", cr.K(),
		"scale", pal.Kind,
		"palette", pal.Name)
	return nil
}

// colorOf returns the fill for a data point and whether it came from data.
func (rn *run) colorOf(p series.Point) (string, bool) {
	pal := rn.res.Palette
	cr := rn.res.Classification
	switch {
	case p.Color != "":
		return p.Color, true
	case cr == nil:
		return pal.NoData, false
	case p.Numeric:
		if i := cr.BinOf(p.Value); i >= 0 {
			return pal.Color(i), true
		}
	case p.Category != "":
		if i := cr.BinOfCategory(p.Category); i >= 0 {
			return pal.Color(i), true
		}
	}
	return pal.NoData, false
}

// =============================================================================
// Styled
// =============================================================================

type assignment struct {
	region region.Region
	color  string
	warns  []error
}

func (rn *run) style(ctx context.Context) error {
	tasks := make([]assignment, len(rn.resolution.Regions))
	for i, reg := range rn.resolution.Regions {
		p, _ := rn.data.Lookup(reg.Code)
		color, fromData := rn.colorOf(p)
		if !fromData {
			rn.noData = true
		}
		tasks[i] = assignment{region: reg, color: color}
	}

	parallel := rn.cfg.Parallelism > 1 && !rn.resolution.Overlapping
	if parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(rn.cfg.Parallelism)
		for i := range tasks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tasks[i].apply()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range tasks {
			tasks[i].apply()
		}
	}

	styled := make(map[*etree.Element]bool, rn.resolution.Elements())
	for _, t := range tasks {
		for _, err := range t.warns {
			rn.warn(ctx, err, t.region.Code)
		}
		for _, el := range t.region.Elements {
			styled[el] = true
		}
		rn.res.Stats.ColoredElements += len(t.region.Elements)
		if t.region.Kind == region.Multi {
			rn.res.Stats.MultiElements += len(t.region.Elements)
		}
	}

	if !rn.cfg.Regions.SkipDefaultFill {
		rn.defaultFill(styled)
	}

	rn.Logger.Info("styled regions",
		"elements", rn.res.Stats.ColoredElements,
		"multi", rn.res.Stats.MultiElements,
		"default_filled", rn.res.Stats.DefaultFilled,
		"parallel", parallel)
	return nil
}

func (a *assignment) apply() {
	for _, el := range a.region.Elements {
		if err := style.ApplyFill(el, a.color); err != nil {
			a.warns = append(a.warns, err)
		}
	}
}

// defaultFill paints unstyled shapes that have no fill of their own, and
// inherit none, with the no-data color.
func (rn *run) defaultFill(styled map[*etree.Element]bool) {
	color := rn.res.Palette.NoData
	rn.work.Walk(func(el *etree.Element) {
		if styled[el] || !slices.Contains(DefaultFillTags, el.Tag) {
			return
		}
		if fill, ok := style.Fill(el); ok {
			// Painted by an earlier run over the same map.
			if fill == color {
				rn.noData = true
			}
			return
		}
		if inheritsFill(el.Parent()) {
			return
		}
		// A malformed style has no readable fill; overwriting it is fine.
		_ = style.ApplyFill(el, color)
		rn.res.Stats.DefaultFilled++
		rn.noData = true
	})
}

func inheritsFill(el *etree.Element) bool {
	for e := el; e != nil; e = e.Parent() {
		if style.HasFill(e) {
			return true
		}
	}
	return false
}

// =============================================================================
// Annotated
// =============================================================================

func (rn *run) annotate(ctx context.Context) error {
	cfg := &rn.cfg
	frame := rn.work.ViewBox()
	showNoData := rn.noData && !cfg.Legend.HideNoData

	if cr := rn.res.Classification; cr != nil {
		rn.res.Legend = annotate.Entries(cr.Bins, rn.res.Palette, showNoData)
	} else {
		rn.res.Legend = annotate.ColorEntries(rn.data.Points)
		if showNoData {
			rn.res.Legend = append(rn.res.Legend, annotate.LegendEntry{
				Label: annotate.NoDataLabel,
				Color: rn.res.Palette.NoData,
				Order: len(rn.res.Legend),
			})
		}
	}

	if cfg.Legend.Enabled && len(rn.res.Legend) > 0 {
		rn.work.Append(annotate.BuildLegend(rn.res.Legend, frame, cfg.LegendOptions()))
	}
	if cfg.Title.Text != "" {
		rn.work.Append(annotate.BuildTitle(cfg.Title.Text, frame))
	}
	if cfg.Labels.Enabled {
		items, err := rn.labelItems(ctx)
		if err != nil {
			return err
		}
		rn.work.Append(annotate.BuildLabels(items, annotate.LabelOptions{FontSize: cfg.Labels.FontSize}))
	}
	return nil
}

func (rn *run) labelItems(ctx context.Context) ([]annotate.LabelItem, error) {
	table := rn.table
	if rn.cfg.Labels.Geometry {
		geo, hit, err := annotate.Geometry(ctx, rn.Cache, rn.work, rn.idx)
		if err != nil {
			return nil, err
		}
		rn.res.CacheInfo.GeometryHit = hit
		table = table.Merge(geo)
	}

	var items []annotate.LabelItem
	for _, reg := range rn.resolution.Regions {
		pos, ok := table.Lookup(reg.Code)
		if !ok {
			if alias, has := rn.idx.Alias(reg.Code); has {
				pos, ok = table.Lookup(alias)
			}
		}
		if !ok {
			rn.Logger.Debug("no label position", "region", reg.Code)
			continue
		}
		p, _ := rn.data.Lookup(reg.Code)
		items = append(items, annotate.LabelItem{Code: reg.Code, Text: labelText(rn.cfg.Labels.Text, reg.Code, p), At: pos})
	}
	return items, nil
}

func labelText(source, code string, p series.Point) string {
	switch source {
	case config.LabelName:
		if p.Label != "" {
			return p.Label
		}
	case config.LabelValue:
		switch {
		case p.Numeric:
			return classify.FormatNumber(p.Value)
		case p.Category != "":
			return p.Category
		}
	}
	return code
}
