package region

import "github.com/beevik/etree"

// Resolution is the outcome of resolving a set of codes.
type Resolution struct {
	// Regions are the resolved regions in input order.
	Regions []Region
	// Missing lists the normalized codes that matched no element.
	Missing []string
	// Unresolved holds one ErrCodeUnresolvedRegion error per missing code.
	Unresolved []error
	// Overlapping is true when some element belongs to more than one region.
	Overlapping bool
}

// Elements returns the number of elements across all regions.
func (r Resolution) Elements() int {
	n := 0
	for _, reg := range r.Regions {
		n += len(reg.Elements)
	}
	return n
}

// ResolveAll resolves codes in order. Duplicate codes (after normalization)
// are resolved once.
func (idx *Index) ResolveAll(codes []string) Resolution {
	var res Resolution
	seenCode := make(map[string]bool, len(codes))
	owner := make(map[*etree.Element]string)

	for _, code := range codes {
		key := Normalize(code)
		if seenCode[key] {
			continue
		}
		seenCode[key] = true

		reg, err := idx.Resolve(code)
		if err != nil {
			res.Missing = append(res.Missing, key)
			res.Unresolved = append(res.Unresolved, err)
			continue
		}
		for _, el := range reg.Elements {
			if prev, ok := owner[el]; ok && prev != reg.Code {
				res.Overlapping = true
			}
			owner[el] = reg.Code
		}
		res.Regions = append(res.Regions, reg)
	}
	return res
}
