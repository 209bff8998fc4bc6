// Package region resolves data codes to the SVG elements that draw them.
//
// Map documents address regions in two ways. Most regions are a single
// element with a unique id ("FR"). Regions made of several disjoint shapes,
// such as a country with islands, instead share a class token on every
// constituent element ("CA" or "Canada"). A resolved [Region] records which
// scheme matched as its [Kind].
//
// Resolution precedence is strict: an id match always wins over a class
// match, so an element is never styled twice for the same code.
package region

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// Kind tags how a Region was addressed.
type Kind int

const (
	// Single is a region owned by exactly one element with a unique id.
	Single Kind = iota + 1
	// Multi is a region whose elements share a class token.
	Multi
)

// String returns "single" or "multi".
func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return "unknown"
	}
}

// Region is a resolved addressable unit of the map. It always owns at least
// one element.
type Region struct {
	Code     string
	Kind     Kind
	Elements []*etree.Element
}

// Element returns the owning element of a Single region, or the first
// element of a Multi region.
func (r Region) Element() *etree.Element {
	return r.Elements[0]
}

// Tags lists the element names that can carry a region.
var Tags = []string{"path", "polygon", "polyline", "rect", "circle", "ellipse", "g", "use"}

// DefaultAliases maps codes to the class names used for multi-path countries
// in common world maps.
var DefaultAliases = map[string]string{
	"AO": "Angola",
	"AR": "Argentina",
	"AU": "Australia",
	"AZ": "Azerbaijan",
	"CA": "Canada",
	"CN": "China",
	"DK": "Denmark",
	"GR": "Greece",
	"GB": "United Kingdom",
}

// Normalize returns the canonical form of a code: trimmed and uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Index is a lookup table over a document's region elements. Building it is
// a single walk; lookups are map accesses.
type Index struct {
	byID    map[string]*etree.Element
	byClass map[string][]*etree.Element
	aliases map[string]string
	ids     []string
	classes []string
}

// NewIndex scans doc for region elements. aliases extends (and overrides)
// [DefaultAliases]; pass nil to use the defaults alone.
func NewIndex(doc *svgdoc.Document, aliases map[string]string) *Index {
	idx := &Index{
		byID:    make(map[string]*etree.Element),
		byClass: make(map[string][]*etree.Element),
		aliases: make(map[string]string, len(DefaultAliases)+len(aliases)),
	}
	for k, v := range DefaultAliases {
		idx.aliases[k] = v
	}
	for k, v := range aliases {
		idx.aliases[Normalize(k)] = v
	}

	doc.Walk(func(el *etree.Element) {
		if !slices.Contains(Tags, el.Tag) {
			return
		}
		if id := strings.TrimSpace(el.SelectAttrValue("id", "")); id != "" {
			key := Normalize(id)
			if _, dup := idx.byID[key]; !dup {
				idx.byID[key] = el
				idx.ids = append(idx.ids, key)
			}
		}
		class := strings.TrimSpace(el.SelectAttrValue("class", ""))
		if class == "" {
			return
		}
		seen := map[string]bool{}
		add := func(key string) {
			if seen[key] {
				return
			}
			seen[key] = true
			if _, ok := idx.byClass[key]; !ok {
				idx.classes = append(idx.classes, key)
			}
			idx.byClass[key] = append(idx.byClass[key], el)
		}
		for _, tok := range strings.Fields(class) {
			add(Normalize(tok))
		}
		// Multi-word class values such as "United Kingdom" are matched whole.
		if whole := Normalize(strings.Join(strings.Fields(class), " ")); strings.Contains(whole, " ") {
			add(whole)
		}
	})
	return idx
}

// Resolve finds the region for code. A missing region is reported as an
// ErrCodeUnresolvedRegion error, which callers treat as a warning.
func (idx *Index) Resolve(code string) (Region, error) {
	key := Normalize(code)
	if key == "" {
		return Region{}, errors.New(errors.ErrCodeUnresolvedRegion, "empty region code")
	}
	if el, ok := idx.byID[key]; ok {
		return Region{Code: key, Kind: Single, Elements: []*etree.Element{el}}, nil
	}
	if els := idx.byClass[key]; len(els) > 0 {
		return Region{Code: key, Kind: Multi, Elements: slices.Clone(els)}, nil
	}
	if alias, ok := idx.aliases[key]; ok {
		if els := idx.byClass[Normalize(alias)]; len(els) > 0 {
			return Region{Code: key, Kind: Multi, Elements: slices.Clone(els)}, nil
		}
	}
	return Region{}, errors.New(errors.ErrCodeUnresolvedRegion, "no element matches region code %q", code)
}

// Alias returns the normalized class name code is aliased to.
func (idx *Index) Alias(code string) (string, bool) {
	alias, ok := idx.aliases[Normalize(code)]
	if !ok {
		return "", false
	}
	return Normalize(alias), true
}

// Codes returns every addressable code: ids first, then class tokens, each
// in document order. Class tokens that are also ids are omitted.
func (idx *Index) Codes() (ids, classes []string) {
	ids = slices.Clone(idx.ids)
	for _, c := range idx.classes {
		if _, ok := idx.byID[c]; !ok {
			classes = append(classes, c)
		}
	}
	return ids, classes
}

// Resolve is a convenience for resolving one code without keeping an Index.
func Resolve(doc *svgdoc.Document, code string) (Region, error) {
	return NewIndex(doc, nil).Resolve(code)
}
