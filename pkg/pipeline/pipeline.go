// Package pipeline runs the choropleth styling pass.
//
// A run moves through a fixed sequence of states:
//
//  1. Loaded: configuration validated, working copy of the document made
//  2. Resolved: data codes matched to region elements
//  3. Classified: values binned and a palette chosen
//  4. Styled: fills written into region elements
//  5. Annotated: legend, title and labels appended
//  6. Serialized: the document rendered back to bytes
//
// Transitions are one-way. A run that fails at Resolved (no code matched
// anything) or at Classified (bad thresholds, impossible scale) stops before
// the first mutation. The input document is never modified: the runner works
// on a copy, so a failed run leaves the caller's document exactly as it was.
//
// Problems that concern a single region (an unknown code, a malformed inline
// style) do not stop the run; they are collected as [Warning]s on the
// [Result] and logged.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Run(ctx, doc, data, cfg)
//	if err != nil {
//	    return err
//	}
//	err = svgdoc.WriteFileAtomic("out.svg", result.Output)
package pipeline

import (
	"time"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/palette"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// =============================================================================
// States
// =============================================================================

// State is a stage of a run.
type State int

const (
	Loaded State = iota
	Resolved
	Classified
	Styled
	Annotated
	Serialized
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Resolved:
		return "resolved"
	case Classified:
		return "classified"
	case Styled:
		return "styled"
	case Annotated:
		return "annotated"
	case Serialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// DefaultFillTags are the element names painted with the no-data color when
// they carry no fill of their own.
var DefaultFillTags = []string{"path", "polygon"}

// =============================================================================
// Results
// =============================================================================

// Warning is a recoverable problem found during a run.
type Warning struct {
	Code    errors.Code
	Region  string
	Message string
}

func (w Warning) String() string {
	if w.Region == "" {
		return w.Message
	}
	return w.Region + ": " + w.Message
}

// Result is the outcome of a successful run.
type Result struct {
	// Document is the styled working copy.
	Document *svgdoc.Document

	// Output is the serialized document.
	Output []byte

	// State is the last state reached.
	State State

	// Classification is nil when every point carries an explicit color.
	Classification *classify.Result
	Palette        palette.Palette
	Legend         []annotate.LegendEntry

	Warnings []Warning
	Stats    Stats

	// CacheInfo tracks which lookups hit the geometry cache.
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	// Regions is the number of resolved regions.
	Regions int
	// ColoredElements counts elements styled from data.
	ColoredElements int
	// MultiElements counts styled elements that belong to group regions.
	MultiElements int
	// DefaultFilled counts elements painted with the no-data color because
	// they had no fill and no data.
	DefaultFilled int
	// Unresolved lists data codes that matched no element.
	Unresolved []string

	Bins          int
	RequestedBins int

	ResolveTime  time.Duration
	ClassifyTime time.Duration
	StyleTime    time.Duration
	AnnotateTime time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	GeometryHit bool
}
