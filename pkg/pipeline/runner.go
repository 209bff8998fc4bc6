package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/cache"
	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/observability"
	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/series"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// Runner executes styling runs.
//
// The Runner is stateless except for the cache and logger: every run owns
// its working document end-to-end. Multiple goroutines can safely use the
// same Runner.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. If cache is nil, a NullCache is used (geometry
// caching disabled). If logger is nil, the default logger is used.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// run carries the state of one Run call.
type run struct {
	*Runner
	cfg    config.Config
	data   *series.Series
	work   *svgdoc.Document
	idx    *region.Index
	table  annotate.Table
	res    *Result
	noData bool

	resolution region.Resolution
}

// Run styles a copy of doc with the values in data. doc is not modified.
//
// Configuration errors (ErrCodeInvalidClassification, ErrCodeInvalidScale,
// ErrCodeInvalidConfig) are reported before anything is resolved. A run in
// which no code resolves fails with ErrCodeUnresolvedRegion; a document
// without a namespace fails with ErrCodeNamespaceMissing at serialization.
func (r *Runner) Run(ctx context.Context, doc *svgdoc.Document, data *series.Series, cfg config.Config) (*Result, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no document")
	}
	if data == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no data series")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rn := &run{
		Runner: r,
		cfg:    cfg,
		data:   data,
		work:   doc.Copy(),
		res:    &Result{State: Loaded},
	}
	if n := annotate.Remove(rn.work); n > 0 {
		r.Logger.Debug("removed previous annotations", "count", n)
	}
	if cfg.Labels.Enabled && cfg.Labels.Table != "" {
		t, err := annotate.LoadTable(cfg.Labels.Table)
		if err != nil {
			return nil, err
		}
		rn.table = t
	}

	steps := []struct {
		state State
		fn    func(context.Context) error
		took  *time.Duration
	}{
		{Resolved, rn.resolve, &rn.res.Stats.ResolveTime},
		{Classified, rn.classify, &rn.res.Stats.ClassifyTime},
		{Styled, rn.style, &rn.res.Stats.StyleTime},
		{Annotated, rn.annotate, &rn.res.Stats.AnnotateTime},
		{Serialized, rn.serialize, nil},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := rn.stage(ctx, step.state, step.fn)
		if step.took != nil {
			*step.took = d
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.state, err)
		}
		rn.res.State = step.state
	}

	rn.res.Document = rn.work
	return rn.res, nil
}

// stage runs fn with hook notifications and timing.
func (rn *run) stage(ctx context.Context, st State, fn func(context.Context) error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, st.String())
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	hooks.OnStageComplete(ctx, st.String(), d, err)
	if err != nil {
		rn.Logger.Debug("stage failed", "stage", st, "error", err)
	}
	return d, err
}

// warn records a recoverable problem.
func (rn *run) warn(ctx context.Context, err error, regionCode string) {
	w := Warning{Code: errors.GetCode(err), Region: regionCode, Message: errors.UserMessage(err)}
	rn.res.Warnings = append(rn.res.Warnings, w)
	observability.Pipeline().OnWarning(ctx, string(w.Code), regionCode)
	if regionCode != "" {
		rn.Logger.Warn(w.Message, "region", regionCode)
	} else {
		rn.Logger.Warn(w.Message)
	}
}

func (rn *run) serialize(context.Context) error {
	out, err := rn.work.Bytes()
	if err != nil {
		return err
	}
	rn.res.Output = out
	rn.Logger.Debug("serialized document", "bytes", len(out))
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
