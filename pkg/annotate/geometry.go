package annotate

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/cache"
	"github.com/matzehuels/choropleth/pkg/observability"
	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

// geometryVersion is part of the cache key; bump it when the bounds
// computation changes.
const geometryVersion = 1

const geometryKeyType = "geometry"

// Geometry returns a label table computed from the shapes of every
// addressable region in doc: the center and size of each region's bounding
// box. Results are cached under the document content hash, so repeated runs
// over the same map skip the computation. The boolean reports a cache hit.
//
// Transform attributes are not applied.
func Geometry(ctx context.Context, c cache.Cache, doc *svgdoc.Document, idx *region.Index) (Table, bool, error) {
	if c == nil {
		c = cache.NewNullCache()
	}
	key := cache.GeometryKey(doc.Hash(), geometryVersion)
	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		var t Table
		if err := json.Unmarshal(data, &t); err == nil {
			observability.Cache().OnCacheHit(ctx, geometryKeyType)
			return t, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, geometryKeyType)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	ids, classes := idx.Codes()
	t := make(Table, len(ids)+len(classes))
	for _, code := range append(ids, classes...) {
		reg, err := idx.Resolve(code)
		if err != nil {
			continue
		}
		var b bounds
		for _, el := range reg.Elements {
			b.union(elementBounds(el))
		}
		if box, ok := b.box(); ok {
			t[code] = Position{
				X: box.X + box.Width/2,
				Y: box.Y + box.Height/2,
				W: box.Width,
				H: box.Height,
			}
		}
	}

	if data, err := json.Marshal(t); err == nil {
		if c.Set(ctx, key, data, cache.DefaultTTL) == nil {
			observability.Cache().OnCacheSet(ctx, geometryKeyType, len(data))
		}
	}
	return t, false, nil
}

// BBox returns the bounding box of a shape element, or false when the
// element has no measurable geometry.
func BBox(el *etree.Element) (svgdoc.Box, bool) {
	return elementBounds(el).box()
}

type bounds struct {
	minX, minY, maxX, maxY float64
	valid                  bool
}

func (b *bounds) add(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	if !b.valid {
		b.minX, b.maxX, b.minY, b.maxY = x, x, y, y
		b.valid = true
		return
	}
	b.minX = min(b.minX, x)
	b.maxX = max(b.maxX, x)
	b.minY = min(b.minY, y)
	b.maxY = max(b.maxY, y)
}

func (b *bounds) union(o bounds) {
	if !o.valid {
		return
	}
	b.add(o.minX, o.minY)
	b.add(o.maxX, o.maxY)
}

func (b bounds) box() (svgdoc.Box, bool) {
	if !b.valid {
		return svgdoc.Box{}, false
	}
	return svgdoc.Box{X: b.minX, Y: b.minY, Width: b.maxX - b.minX, Height: b.maxY - b.minY}, true
}

func attrFloat(el *etree.Element, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(el.SelectAttrValue(name, "")), "px"), 64)
	if err != nil {
		return 0
	}
	return v
}

func elementBounds(el *etree.Element) bounds {
	var b bounds
	switch el.Tag {
	case "path":
		b = pathBounds(el.SelectAttrValue("d", ""))
	case "polygon", "polyline":
		sc := pathScanner{s: el.SelectAttrValue("points", "")}
		for {
			x, ok := sc.number()
			if !ok {
				break
			}
			y, ok := sc.number()
			if !ok {
				break
			}
			b.add(x, y)
		}
	case "rect":
		x, y := attrFloat(el, "x"), attrFloat(el, "y")
		w, h := attrFloat(el, "width"), attrFloat(el, "height")
		if w > 0 && h > 0 {
			b.add(x, y)
			b.add(x+w, y+h)
		}
	case "circle":
		cx, cy, r := attrFloat(el, "cx"), attrFloat(el, "cy"), attrFloat(el, "r")
		if r > 0 {
			b.add(cx-r, cy-r)
			b.add(cx+r, cy+r)
		}
	case "ellipse":
		cx, cy := attrFloat(el, "cx"), attrFloat(el, "cy")
		rx, ry := attrFloat(el, "rx"), attrFloat(el, "ry")
		if rx > 0 && ry > 0 {
			b.add(cx-rx, cy-ry)
			b.add(cx+rx, cy+ry)
		}
	case "g":
		for _, child := range el.ChildElements() {
			b.union(elementBounds(child))
		}
	}
	return b
}

// pathBounds measures SVG path data. Curve control points are included, so
// the box may be slightly larger than the drawn outline; arcs contribute
// their endpoints only.
func pathBounds(d string) bounds {
	var b bounds
	sc := pathScanner{s: d}
	var cx, cy, sx, sy float64
	var cmd byte

	for {
		if c, ok := sc.command(); ok {
			cmd = c
		} else if cmd == 0 || !sc.more() {
			break
		}
		rel := cmd >= 'a'
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = cx, cy
		}

		switch cmd {
		case 'Z', 'z':
			cx, cy = sx, sy
			cmd = 0
			continue
		case 'M', 'm':
			x, y, ok := sc.pair()
			if !ok {
				return b
			}
			cx, cy = ox+x, oy+y
			sx, sy = cx, cy
			b.add(cx, cy)
			// Further pairs after a moveto are implicit linetos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'l', 'T', 't':
			x, y, ok := sc.pair()
			if !ok {
				return b
			}
			cx, cy = ox+x, oy+y
			b.add(cx, cy)
		case 'H', 'h':
			x, ok := sc.number()
			if !ok {
				return b
			}
			cx = ox + x
			b.add(cx, cy)
		case 'V', 'v':
			y, ok := sc.number()
			if !ok {
				return b
			}
			cy = oy + y
			b.add(cx, cy)
		case 'C', 'c', 'S', 's', 'Q', 'q':
			n := 3
			switch cmd {
			case 'S', 's', 'Q', 'q':
				n = 2
			}
			for i := range n {
				x, y, ok := sc.pair()
				if !ok {
					return b
				}
				b.add(ox+x, oy+y)
				if i == n-1 {
					cx, cy = ox+x, oy+y
				}
			}
		case 'A', 'a':
			if _, _, ok := sc.pair(); !ok { // radii
				return b
			}
			if _, ok := sc.number(); !ok { // rotation
				return b
			}
			if !sc.flag() || !sc.flag() {
				return b
			}
			x, y, ok := sc.pair()
			if !ok {
				return b
			}
			cx, cy = ox+x, oy+y
			b.add(cx, cy)
		default:
			return b
		}
	}
	return b
}

// pathScanner tokenizes path data and point lists. Numbers may be separated
// by whitespace, commas, a sign or a second decimal point ("1-2", ".5.5").
type pathScanner struct {
	s string
	i int
}

func (sc *pathScanner) skip() {
	for sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case ' ', '\t', '\n', '\r', ',':
			sc.i++
		default:
			return
		}
	}
}

func (sc *pathScanner) more() bool {
	sc.skip()
	return sc.i < len(sc.s)
}

func (sc *pathScanner) command() (byte, bool) {
	sc.skip()
	if sc.i >= len(sc.s) {
		return 0, false
	}
	c := sc.s[sc.i]
	if (c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') && c != 'e' && c != 'E' {
		sc.i++
		return c, true
	}
	return 0, false
}

func (sc *pathScanner) number() (float64, bool) {
	sc.skip()
	start := sc.i
	digits := func() int {
		n := 0
		for sc.i < len(sc.s) && sc.s[sc.i] >= '0' && sc.s[sc.i] <= '9' {
			sc.i++
			n++
		}
		return n
	}
	if sc.i < len(sc.s) && (sc.s[sc.i] == '+' || sc.s[sc.i] == '-') {
		sc.i++
	}
	n := digits()
	if sc.i < len(sc.s) && sc.s[sc.i] == '.' {
		sc.i++
		n += digits()
	}
	if n == 0 {
		sc.i = start
		return 0, false
	}
	if sc.i < len(sc.s) && (sc.s[sc.i] == 'e' || sc.s[sc.i] == 'E') {
		mark := sc.i
		sc.i++
		if sc.i < len(sc.s) && (sc.s[sc.i] == '+' || sc.s[sc.i] == '-') {
			sc.i++
		}
		if digits() == 0 {
			sc.i = mark
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:sc.i], 64)
	if err != nil {
		sc.i = start
		return 0, false
	}
	return v, true
}

func (sc *pathScanner) pair() (x, y float64, ok bool) {
	if x, ok = sc.number(); !ok {
		return 0, 0, false
	}
	y, ok = sc.number()
	return x, y, ok
}

// flag reads a single arc flag digit, which may be written without a
// separator before the next number.
func (sc *pathScanner) flag() bool {
	sc.skip()
	if sc.i < len(sc.s) && (sc.s[sc.i] == '0' || sc.s[sc.i] == '1') {
		sc.i++
		return true
	}
	return false
}
