// Package pkg provides the libraries behind the choropleth SVG styler.
//
// # Overview
//
// Choropleth takes an existing SVG map and a data series keyed by region
// code, and colors each region by its binned value. The document is edited in
// place (only fills change) so maps drawn by any tool keep their structure,
// strokes and metadata. The pkg directory is organized as:
//
//  1. Document model: [svgdoc] (parse, copy, serialize), [region] (code to
//     element resolution), [style] (inline style editing)
//  2. Data and classes: [series] (JSON/CSV input), [classify] (binning
//     methods), [palette] (scale kinds and named schemes)
//  3. Output: [annotate] (legend, title, labels and label geometry)
//  4. Orchestration: [pipeline] (the staged run), [config] (run settings)
//  5. Infrastructure: [cache] (geometry memoization), [errors] (coded
//     errors), [observability] (hooks)
//
// # Architecture
//
// The data flow of one run:
//
//	SVG map + data series + config
//	         ↓
//	    [region] resolve codes to elements
//	         ↓
//	    [classify] bin values, [palette] pick colors
//	         ↓
//	    [style] write fills
//	         ↓
//	    [annotate] append legend, title, labels
//	         ↓
//	    [svgdoc] serialize, write atomically
//
// # Quick Start
//
//	doc, _ := svgdoc.Load("world.svg")
//	data, _ := series.Load("gdp.csv")
//	cfg := config.Default()
//	cfg.Legend.Enabled = true
//
//	runner := pipeline.NewRunner(nil, nil)
//	res, err := runner.Run(ctx, doc, data, cfg)
//	if err != nil {
//	    return err
//	}
//	return svgdoc.WriteFileAtomic("gdp.svg", res.Output)
//
// Classify without a map:
//
//	res, _ := classify.Classify(values, classify.NaturalBreaks, 5)
//	pal, _ := palette.Build(palette.Sequential, "greens", res.K())
//	for i, b := range res.Bins {
//	    fmt.Println(b.Label(), pal.Color(i))
//	}
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/classify/...           # Specific package
//	go test -run Example                 # Examples only
//
// [svgdoc]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/svgdoc
// [region]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/region
// [style]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/style
// [series]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/series
// [classify]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/classify
// [palette]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/palette
// [annotate]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/annotate
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/choropleth/pkg/observability
package pkg
