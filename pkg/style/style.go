// Package style reads and rewrites inline SVG style declarations.
//
// An inline style such as "stroke:#000;fill:#fff;opacity:0.8" is parsed into
// an ordered list of declarations. Updating one property keeps every other
// property and its position intact, and serializing an unmodified list
// reproduces the normalized input.
//
// [ApplyFill] is the entry point used by the styling pass: it writes the fill
// color into both the style attribute and the plain fill attribute so
// renderers that prefer either location agree.
package style

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/errors"
)

const (
	attrStyle = "style"
	attrFill  = "fill"
	propFill  = "fill"
)

// Declaration is a single property:value pair.
type Declaration struct {
	Property string
	Value    string
}

// Declarations is an ordered property map. The zero value is an empty style.
type Declarations struct {
	items []Declaration
}

// Parse splits s on ";" and each segment on its first ":".
// Empty segments (trailing or doubled semicolons) are ignored. A non-empty
// segment without a colon, or with an empty property name, makes the whole
// style malformed: Parse then returns empty Declarations and an
// ErrCodeMalformedStyle error so callers can overwrite it cleanly.
func Parse(s string) (Declarations, error) {
	var d Declarations
	for _, seg := range strings.Split(s, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		prop, val, ok := strings.Cut(seg, ":")
		prop = strings.TrimSpace(prop)
		if !ok || prop == "" {
			return Declarations{}, errors.New(errors.ErrCodeMalformedStyle, "unparsable declaration %q in style %q", seg, s)
		}
		d.Set(prop, strings.TrimSpace(val))
	}
	return d, nil
}

// Get returns the value of prop and whether it is present.
func (d *Declarations) Get(prop string) (string, bool) {
	if i := d.index(prop); i >= 0 {
		return d.items[i].Value, true
	}
	return "", false
}

// Set overwrites prop in place, or appends it if absent.
func (d *Declarations) Set(prop, value string) {
	if i := d.index(prop); i >= 0 {
		d.items[i].Value = value
		return
	}
	d.items = append(d.items, Declaration{Property: prop, Value: value})
}

// Delete removes prop, keeping the order of the rest.
func (d *Declarations) Delete(prop string) {
	if i := d.index(prop); i >= 0 {
		d.items = append(d.items[:i], d.items[i+1:]...)
	}
}

// Len returns the number of declarations.
func (d *Declarations) Len() int { return len(d.items) }

// Items returns a copy of the declarations in order.
func (d *Declarations) Items() []Declaration {
	out := make([]Declaration, len(d.items))
	copy(out, d.items)
	return out
}

// String serializes the declarations as "prop:value;prop:value".
func (d *Declarations) String() string {
	var sb strings.Builder
	for i, it := range d.items {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(it.Property)
		sb.WriteByte(':')
		sb.WriteString(it.Value)
	}
	return sb.String()
}

// index finds prop case-insensitively; CSS property names are ASCII.
func (d *Declarations) index(prop string) int {
	for i, it := range d.items {
		if strings.EqualFold(it.Property, prop) {
			return i
		}
	}
	return -1
}

// ApplyFill sets the fill of el to color in both its inline style and its
// fill attribute. Unrelated style properties are preserved in order; fill is
// appended when it was absent. The style attribute is only written when the
// element already had one, so plain elements gain a fill attribute alone.
//
// A malformed style is replaced by "fill:<color>" and the
// ErrCodeMalformedStyle error is returned as a warning; the element is
// styled either way.
func ApplyFill(el *etree.Element, color string) error {
	var warn error
	if a := el.SelectAttr(attrStyle); a != nil {
		decls, err := Parse(a.Value)
		if err != nil {
			warn = err
		}
		decls.Set(propFill, color)
		a.Value = decls.String()
	}
	el.CreateAttr(attrFill, color)
	return warn
}

// Fill returns the effective fill of el, preferring the inline style over
// the attribute the way SVG renderers resolve presentation attributes.
func Fill(el *etree.Element) (string, bool) {
	if a := el.SelectAttr(attrStyle); a != nil {
		if decls, err := Parse(a.Value); err == nil {
			if v, ok := decls.Get(propFill); ok {
				return v, true
			}
		}
	}
	if a := el.SelectAttr(attrFill); a != nil && a.Value != "" {
		return a.Value, true
	}
	return "", false
}

// HasFill reports whether el carries an explicit fill in either location.
func HasFill(el *etree.Element) bool {
	_, ok := Fill(el)
	return ok
}
