// Package svgdoc loads, inspects and serializes SVG map documents.
//
// A [Document] wraps an element tree parsed with etree. The root's namespace
// declaration is kept as an ordinary attribute, so serializing the tree never
// invents prefixes such as "ns0:". Reading and writing an unmodified document
// yields semantically equivalent markup.
//
// Output is written with [WriteFileAtomic]: the bytes go to a temporary file
// next to the destination which is renamed into place only after a complete
// write, so a failed run never leaves a truncated map behind.
package svgdoc

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/cache"
	"github.com/matzehuels/choropleth/pkg/errors"
)

// SVGNamespace is the namespace URI of SVG documents.
const SVGNamespace = "http://www.w3.org/2000/svg"

// Default frame used when a document declares neither viewBox nor size.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

// Document is a parsed SVG map.
type Document struct {
	tree *etree.Document
	hash string
}

// Box is a rectangle in document coordinates.
type Box struct {
	X, Y, Width, Height float64
}

// Area returns Width*Height.
func (b Box) Area() float64 { return b.Width * b.Height }

// Parse decodes an SVG document from data.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse svg")
	}
	if tree.Root() == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "svg document has no root element")
	}
	return &Document{tree: tree, hash: cache.Hash(data)}, nil
}

// Load reads and parses the SVG file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input svg not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Root returns the root element.
func (d *Document) Root() *etree.Element { return d.tree.Root() }

// Hash returns the SHA-256 of the bytes the document was parsed from.
// Copies share the hash of their source.
func (d *Document) Hash() string { return d.hash }

// Copy returns a deep copy that can be mutated independently.
func (d *Document) Copy() *Document {
	return &Document{tree: d.tree.Copy(), hash: d.hash}
}

// Namespace returns the namespace URI bound to the root element's prefix,
// or the empty string when none is declared.
func (d *Document) Namespace() string {
	root := d.Root()
	if root.Space != "" {
		return root.SelectAttrValue("xmlns:"+root.Space, "")
	}
	for _, a := range root.Attr {
		if a.Space == "" && a.Key == "xmlns" {
			return a.Value
		}
	}
	return ""
}

// Walk calls fn for every element in document order, root first.
func (d *Document) Walk(fn func(*etree.Element)) {
	walk(d.Root(), fn)
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}

// ElementCount returns the number of elements in the tree.
func (d *Document) ElementCount() int {
	n := 0
	d.Walk(func(*etree.Element) { n++ })
	return n
}

// Append adds elements as the last children of the root, so they render
// above everything already in the document.
func (d *Document) Append(els ...*etree.Element) {
	root := d.Root()
	for _, el := range els {
		root.AddChild(el)
	}
}

// ViewBox returns the document frame: the viewBox attribute when it has four
// numbers, else the width and height attributes ("px" stripped), else the
// 800x600 default.
func (d *Document) ViewBox() Box {
	root := d.Root()
	if vb := root.SelectAttrValue("viewBox", ""); vb != "" {
		parts := strings.FieldsFunc(vb, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
		if len(parts) == 4 {
			var nums [4]float64
			ok := true
			for i, p := range parts {
				v, err := strconv.ParseFloat(p, 64)
				if err != nil {
					ok = false
					break
				}
				nums[i] = v
			}
			if ok {
				return Box{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}
			}
		}
	}
	return Box{
		Width:  dimension(root.SelectAttrValue("width", ""), DefaultWidth),
		Height: dimension(root.SelectAttrValue("height", ""), DefaultHeight),
	}
}

func dimension(s string, def float64) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
		return v
	}
	return def
}

// Bytes serializes the document. It fails with ErrCodeNamespaceMissing when
// the root declares no namespace, since renderers would not treat the output
// as SVG.
func (d *Document) Bytes() ([]byte, error) {
	if d.Namespace() == "" {
		return nil, errors.New(errors.ErrCodeNamespaceMissing, "root element <%s> declares no namespace", d.Root().FullTag())
	}
	var buf bytes.Buffer
	if _, err := d.tree.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "serialize svg")
	}
	return buf.Bytes(), nil
}
