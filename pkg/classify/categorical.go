package classify

import (
	"slices"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// Categorical makes one bin per distinct category. Bins follow order first
// (categories listed there but absent from values still get a bin, so a
// legend can be kept stable across datasets), then any remaining categories
// in order of first appearance.
func Categorical(values []string, order []string) (*Result, error) {
	var cats []string
	seen := make(map[string]bool)
	for _, c := range order {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		cats = append(cats, v)
	}
	if len(cats) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "no categories to classify")
	}

	r := &Result{Requested: len(cats)}
	r.Bins = make([]Bin, len(cats))
	for i, c := range cats {
		r.Bins[i] = Bin{Index: i, Categories: []string{c}}
	}
	for _, v := range values {
		if i := slices.Index(cats, v); i >= 0 {
			r.Bins[i].Count++
		}
	}
	return r, nil
}
