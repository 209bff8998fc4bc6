// Package series loads the data that drives a choropleth: one value per
// region code.
//
// A [Point] carries either a number (classified into bins), a category
// (one bin per category), or an explicit color that bypasses classification.
// Points may also carry a display label used by legends.
//
// Two file formats are supported, chosen by extension:
//
//	{"US": 12.5, "FR": "high", "DE": "#3b82f6",
//	 "GB": {"value": 3.1, "label": "United Kingdom", "color": "#ff0000"}}
//
//	code,value,category,color,label
//	US,12.5,,,United States
package series

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// Kind describes what a series holds once explicit colors are set aside.
type Kind int

const (
	// Empty means every point has an explicit color or no data at all.
	Empty Kind = iota
	Numeric
	Categorical
	// Mixed series combine numbers and categories and cannot be classified.
	Mixed
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Mixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Point is one data entry.
type Point struct {
	Code     string
	Value    float64
	Numeric  bool
	Category string
	// Color, when set, is applied as-is.
	Color string
	Label string
}

// HasData reports whether p carries a value, a category or a color.
func (p Point) HasData() bool {
	return p.Numeric || p.Category != "" || p.Color != ""
}

// DisplayLabel returns the label, falling back to the code.
func (p Point) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Code
}

// Series is an ordered set of points with unique codes.
type Series struct {
	Points []Point
}

// New builds a series from points, rejecting duplicate codes
// (case-insensitively) and non-finite values.
func New(points ...Point) (*Series, error) {
	seen := make(map[string]bool, len(points))
	s := &Series{Points: make([]Point, 0, len(points))}
	for _, p := range points {
		p.Code = strings.TrimSpace(p.Code)
		if p.Code == "" {
			continue
		}
		key := strings.ToUpper(p.Code)
		if seen[key] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "duplicate region code %q", p.Code)
		}
		seen[key] = true
		if p.Numeric && (math.IsNaN(p.Value) || math.IsInf(p.Value, 0)) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "value for %q is not a finite number", p.Code)
		}
		s.Points = append(s.Points, p)
	}
	return s, nil
}

// Len returns the number of points.
func (s *Series) Len() int { return len(s.Points) }

// Codes returns all codes in order.
func (s *Series) Codes() []string {
	codes := make([]string, len(s.Points))
	for i, p := range s.Points {
		codes[i] = p.Code
	}
	return codes
}

// Lookup returns the point for code, matched case-insensitively.
func (s *Series) Lookup(code string) (Point, bool) {
	i := slices.IndexFunc(s.Points, func(p Point) bool { return strings.EqualFold(p.Code, code) })
	if i < 0 {
		return Point{}, false
	}
	return s.Points[i], true
}

// Kind classifies the series by the points that need classification.
func (s *Series) Kind() Kind {
	var num, cat bool
	for _, p := range s.Points {
		if p.Color != "" {
			continue
		}
		num = num || p.Numeric
		cat = cat || p.Category != ""
	}
	switch {
	case num && cat:
		return Mixed
	case num:
		return Numeric
	case cat:
		return Categorical
	default:
		return Empty
	}
}

// Values returns the numeric points that need classification.
func (s *Series) Values() (codes []string, values []float64) {
	for _, p := range s.Points {
		if p.Color == "" && p.Numeric {
			codes = append(codes, p.Code)
			values = append(values, p.Value)
		}
	}
	return codes, values
}

// Categories returns the categorical points that need classification.
func (s *Series) Categories() (codes, categories []string) {
	for _, p := range s.Points {
		if p.Color == "" && !p.Numeric && p.Category != "" {
			codes = append(codes, p.Code)
			categories = append(categories, p.Category)
		}
	}
	return codes, categories
}

// Load reads a .json or .csv data file.
func Load(path string) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "data file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSON(data)
	case ".csv":
		return ParseCSV(strings.NewReader(string(data)))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported data format %q (use .json or .csv)", ext)
	}
}

// IsColor reports whether s looks like a hex color ("#abc" or "#aabbcc").
func IsColor(s string) bool {
	if (len(s) != 4 && len(s) != 7) || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
