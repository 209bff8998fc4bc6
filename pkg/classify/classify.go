// Package classify partitions a data series into ordered bins.
//
// Numeric series are split with one of four [Method]s:
//
//   - [EqualInterval]: k bins of width (max-min)/k
//   - [Quantile]: boundaries at the i/k quantiles, linearly interpolated
//     between ranks, so bins hold (nearly) equal counts
//   - [NaturalBreaks]: Jenks optimization, minimizing the within-bin sum of
//     squared deviations by dynamic programming over the sorted values
//   - [Manual]: caller-supplied boundaries
//
// Numeric bins are half-open intervals [Lower, Upper); the last bin is
// closed, and may hold the maximum alone as [max, max]. A value equal to an internal boundary therefore belongs to the bin
// above it, and the global maximum belongs to the last bin. Together the bins
// cover [min, max] with no gaps and no overlaps.
//
// Categorical series skip binning: [Categorical] makes one bin per distinct
// category.
package classify

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// Method selects a numeric classification algorithm.
type Method string

const (
	EqualInterval Method = "equal-interval"
	Quantile      Method = "quantile"
	NaturalBreaks Method = "natural-breaks"
	Manual        Method = "manual"
)

// Methods lists the supported numeric methods.
var Methods = []Method{EqualInterval, Quantile, NaturalBreaks, Manual}

// ParseMethod validates a method name. "jenks" and "equal" are accepted as
// shorthands.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "equal-interval", "equal":
		return EqualInterval, nil
	case "quantile":
		return Quantile, nil
	case "natural-breaks", "jenks":
		return NaturalBreaks, nil
	case "manual":
		return Manual, nil
	}
	return "", errors.New(errors.ErrCodeInvalidClassification, "unknown classification method %q (must be equal-interval, quantile, natural-breaks or manual)", s)
}

// Bin is one class of a classification.
type Bin struct {
	Index int
	// Lower and Upper bound numeric bins. The interval is [Lower, Upper)
	// unless Closed is set, which only the last bin has.
	Lower, Upper float64
	Closed       bool
	// Categories holds the labels of a categorical bin.
	Categories []string
	// Count is the number of classified values that fell into the bin.
	Count int
}

// Categorical reports whether b is a category bin.
func (b Bin) Categorical() bool { return len(b.Categories) > 0 }

// Contains reports whether v falls into the numeric bin.
func (b Bin) Contains(v float64) bool {
	if v < b.Lower {
		return false
	}
	if b.Closed {
		return v <= b.Upper
	}
	return v < b.Upper
}

// Label returns a display label such as "10 - 20", a single value for a
// zero-width bin, or the category name.
func (b Bin) Label() string {
	if b.Categorical() {
		if len(b.Categories) == 1 {
			return b.Categories[0]
		}
		return fmt.Sprint(b.Categories)
	}
	if b.Lower == b.Upper {
		return FormatNumber(b.Lower)
	}
	return FormatNumber(b.Lower) + " - " + FormatNumber(b.Upper)
}

// FormatNumber renders a boundary compactly: integers without decimals,
// other values with at most three decimals.
func FormatNumber(v float64) string {
	if math.Abs(v) >= 1000 || v == math.Trunc(v) {
		return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// Result is a numeric or categorical classification.
type Result struct {
	Method Method
	Bins   []Bin
	// Breaks holds the k+1 boundaries of a numeric classification.
	Breaks []float64
	// Requested is the bin count asked for; it differs from len(Bins) when
	// the count had to be reduced.
	Requested int
	// Notice is an ErrCodeInsufficientData error describing a reduced bin
	// count. It is informational; the classification is usable.
	Notice error
	// GVF is the goodness of variance fit in [0,1] (numeric only).
	GVF float64
}

// K returns the number of bins.
func (r *Result) K() int { return len(r.Bins) }

// Reduced reports whether fewer bins than requested were produced.
func (r *Result) Reduced() bool { return r.Notice != nil }

// BinOf returns the index of the numeric bin containing v, or -1 if v lies
// outside the classified range.
func (r *Result) BinOf(v float64) int {
	k := len(r.Breaks) - 1
	if k < 1 || math.IsNaN(v) || v < r.Breaks[0] || v > r.Breaks[k] {
		return -1
	}
	if v == r.Breaks[k] {
		return k - 1
	}
	// First boundary strictly greater than v; the bin is the one below it.
	i := sortSearch(r.Breaks, v)
	return i - 1
}

// BinOfCategory returns the index of the bin holding category c, or -1.
func (r *Result) BinOfCategory(c string) int {
	for _, b := range r.Bins {
		if slices.Contains(b.Categories, c) {
			return b.Index
		}
	}
	return -1
}

func sortSearch(breaks []float64, v float64) int {
	lo, hi := 0, len(breaks)
	for lo < hi {
		mid := (lo + hi) / 2
		if breaks[mid] > v {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// Option configures Classify.
type Option func(*options)

type options struct {
	thresholds []float64
}

// WithThresholds supplies the boundaries used by the Manual method: k+1
// strictly increasing values whose first is at most the data minimum and
// whose last is at least the data maximum.
func WithThresholds(t []float64) Option {
	return func(o *options) { o.thresholds = slices.Clone(t) }
}

// Classify partitions values into k bins using method.
//
// It fails with ErrCodeInvalidClassification when k is not positive or the
// manual thresholds are malformed, and with ErrCodeInsufficientData when the
// series has fewer than two distinct values. When k exceeds the number of
// distinct values, k is reduced and Result.Notice says so.
func Classify(values []float64, method Method, k int, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeInvalidClassification, "value %v is not a finite number", v)
		}
		sorted = append(sorted, v)
	}
	slices.Sort(sorted)
	distinct := slices.Compact(slices.Clone(sorted))
	if len(distinct) < 2 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "need at least 2 distinct values to classify, got %d", len(distinct))
	}

	if method == Manual {
		breaks, err := manualBreaks(o.thresholds, sorted)
		if err != nil {
			return nil, err
		}
		return build(method, breaks, len(breaks)-1, len(distinct), sorted), nil
	}

	if k <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidClassification, "bin count must be positive, got %d", k)
	}
	requested := k
	k = min(k, len(distinct))

	var breaks []float64
	switch method {
	case EqualInterval:
		breaks = equalIntervalBreaks(sorted, k)
	case Quantile:
		// Tied values can make quantile boundaries coincide; merging them
		// avoids empty zero-width bins.
		breaks = slices.Compact(quantileBreaks(sorted, k))
	case NaturalBreaks:
		breaks = naturalBreaks(distinct, sorted, k)
	default:
		return nil, errors.New(errors.ErrCodeInvalidClassification, "unknown classification method %q", method)
	}

	return build(method, breaks, requested, len(distinct), sorted), nil
}

func build(method Method, breaks []float64, requested, distinct int, sorted []float64) *Result {
	k := len(breaks) - 1
	r := &Result{Method: method, Breaks: breaks, Requested: requested}
	r.Bins = make([]Bin, k)
	for i := range k {
		r.Bins[i] = Bin{Index: i, Lower: breaks[i], Upper: breaks[i+1], Closed: i == k-1}
	}
	for _, v := range sorted {
		if i := r.BinOf(v); i >= 0 {
			r.Bins[i].Count++
		}
	}
	switch {
	case k >= requested:
	case k < distinct:
		r.Notice = errors.New(errors.ErrCodeInsufficientData, "requested %d bins, tied values merge quantile boundaries into %d", requested, k)
	default:
		r.Notice = errors.New(errors.ErrCodeInsufficientData, "requested %d bins, data has only %d distinct values", requested, distinct)
	}
	r.GVF = gvf(r, sorted)
	return r
}

func equalIntervalBreaks(sorted []float64, k int) []float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	width := (hi - lo) / float64(k)
	breaks := make([]float64, k+1)
	for i := range k {
		breaks[i] = lo + float64(i)*width
	}
	breaks[k] = hi
	return breaks
}

func quantileBreaks(sorted []float64, k int) []float64 {
	breaks := make([]float64, k+1)
	breaks[0] = sorted[0]
	for i := 1; i < k; i++ {
		breaks[i] = quantile(sorted, float64(i)/float64(k))
	}
	breaks[k] = sorted[len(sorted)-1]
	return breaks
}

// quantile interpolates linearly between the order statistics around rank
// p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func manualBreaks(thresholds, sorted []float64) ([]float64, error) {
	if len(thresholds) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidClassification, "manual classification needs at least 2 thresholds, got %d", len(thresholds))
	}
	for i := 1; i < len(thresholds); i++ {
		if !(thresholds[i] > thresholds[i-1]) {
			return nil, errors.New(errors.ErrCodeInvalidClassification, "thresholds must be strictly increasing: %v <= %v at position %d", thresholds[i], thresholds[i-1], i)
		}
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if thresholds[0] > lo || thresholds[len(thresholds)-1] < hi {
		return nil, errors.New(errors.ErrCodeInvalidClassification, "thresholds [%v, %v] do not span data range [%v, %v]",
			thresholds[0], thresholds[len(thresholds)-1], lo, hi)
	}
	return slices.Clone(thresholds), nil
}

// gvf is 1 - SDCM/SDAM: the share of total squared deviation explained by
// the classification.
func gvf(r *Result, sorted []float64) float64 {
	variance, err := stats.PopulationVariance(sorted)
	if err != nil || variance == 0 {
		return 0
	}
	sdam := variance * float64(len(sorted))

	groups := make([][]float64, len(r.Bins))
	for _, v := range sorted {
		if i := r.BinOf(v); i >= 0 {
			groups[i] = append(groups[i], v)
		}
	}
	var sdcm float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		gv, _ := stats.PopulationVariance(g)
		sdcm += gv * float64(len(g))
	}
	return 1 - sdcm/sdam
}

// Summary holds descriptive statistics of a numeric series.
type Summary struct {
	Count    int
	Distinct int
	Min, Max float64
	Mean     float64
	StdDev   float64
	Median   float64
}

// Summarize computes descriptive statistics. An empty series yields the zero
// Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	data := stats.Float64Data(values)
	s := Summary{Count: len(values)}
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.Mean, _ = data.Mean()
	s.StdDev, _ = data.StandardDeviationPopulation()
	s.Median, _ = data.Median()

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	s.Distinct = len(slices.Compact(sorted))
	return s
}
