package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The serializer is hand-rolled rather than built on xml.Marshal: the
// round-trip law (serialize → parse → serialize must be byte-identical)
// needs full control over attribute order and number formatting.

// fnum formats a float with the shortest representation that parses back
// to the same value, so round trips are exact.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// Serialize writes the whole document as a portable SVG string. Decals
// appear in insertion order; all attributes derive from decal state, so
// equal documents serialize identically.
func (doc *Document) Serialize() string {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		fnum(doc.Width), fnum(doc.Height), fnum(doc.Width), fnum(doc.Height))
	b.WriteString("\n")
	fmt.Fprintf(&b, "<style>%s</style>\n", escapeText(doc.Style))

	for _, d := range doc.decals {
		writeDecal(&b, d)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func writeDecal(b *strings.Builder, d *Decal) {
	fmt.Fprintf(b, `<g id="%s" class="decal" data-kind="%s" data-active="%t" data-x="%s" data-y="%s" data-rotation="%s" data-scale="%s" data-color="%s" data-content-width="%s" data-content-height="%s">`,
		escapeAttr(d.ID), d.Kind, d.Active,
		fnum(d.Position.X), fnum(d.Position.Y),
		fnum(d.NormalizedRotation()), fnum(d.Scale),
		escapeAttr(d.Color),
		fnum(d.ContentWidth), fnum(d.ContentHeight))
	b.WriteString("\n")

	bounds := d.Bounds()

	// Container: the selection outline tracking the bounding box.
	b.WriteString(`<g class="container">` + "\n")
	fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s" fill="none" stroke="#1e90ff" stroke-width="2"/>`,
		fnum(bounds.X), fnum(bounds.Y), fnum(bounds.W), fnum(bounds.H))
	b.WriteString("\n</g>\n")

	// Content: the decal payload under its transform.
	fmt.Fprintf(b, `<g class="content" transform="translate(%s %s) rotate(%s) scale(%s)">`,
		fnum(d.Position.X), fnum(d.Position.Y), fnum(d.NormalizedRotation()), fnum(d.Scale))
	b.WriteString("\n")
	switch d.Kind {
	case KindText:
		fmt.Fprintf(b, `<text x="0" y="0" font-size="%s" text-anchor="middle" dominant-baseline="central" fill="%s">%s</text>`,
			fnum(defaultTextSize), escapeAttr(d.Color), escapeText(d.Text))
	case KindImage:
		fmt.Fprintf(b, `<image href="%s" x="%s" y="%s" width="%s" height="%s"/>`,
			escapeAttr(d.ImageRef),
			fnum(-d.ContentWidth/2), fnum(-d.ContentHeight/2),
			fnum(d.ContentWidth), fnum(d.ContentHeight))
	case KindIcon:
		fmt.Fprintf(b, `<path d="%s" transform="translate(%s %s)" fill="%s"/>`,
			escapeAttr(d.IconPath),
			fnum(-d.ContentWidth/2), fnum(-d.ContentHeight/2),
			escapeAttr(d.Color))
	}
	b.WriteString("\n</g>\n")

	// Controls: gesture affordances pinned to the bounding box corners.
	b.WriteString(`<g class="controls">` + "\n")
	for _, c := range d.controlCenters() {
		fmt.Fprintf(b, `<circle class="control" data-action="%s" cx="%s" cy="%s" r="%s"/>`,
			c.Action, fnum(c.Center.X), fnum(c.Center.Y), fnum(ControlRadius))
		b.WriteString("\n")
	}
	b.WriteString("</g>\n")

	b.WriteString("</g>\n")
}

// Parse rebuilds a Document from its serialized form. Only the document
// frame, stylesheet and per-decal data attributes plus content payloads
// are read; the container and control geometry is derived state and is
// regenerated on the next Serialize.
func Parse(data string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(data))
	doc := &Document{}

	var current *Decal
	// Tracks which sub-group of the current decal we are inside.
	var section string
	inStyle := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("malformed document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "svg":
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "width":
						doc.Width, err = strconv.ParseFloat(a.Value, 64)
					case "height":
						doc.Height, err = strconv.ParseFloat(a.Value, 64)
					}
					if err != nil {
						return nil, fmt.Errorf("svg attribute %s: %w", a.Name.Local, err)
					}
				}
			case "style":
				inStyle = true
			case "g":
				class := attrValue(t.Attr, "class")
				switch class {
				case "decal":
					d, err := decalFromAttrs(t.Attr)
					if err != nil {
						return nil, err
					}
					current = d
					doc.decals = append(doc.decals, d)
					section = ""
				case "container", "content", "controls":
					section = class
				}
			case "text":
				if current != nil && section == "content" && current.Kind == KindText {
					var body string
					if err := dec.DecodeElement(&body, &t); err != nil {
						return nil, fmt.Errorf("text content: %w", err)
					}
					current.Text = body
				}
			case "image":
				if current != nil && section == "content" && current.Kind == KindImage {
					current.ImageRef = attrValue(t.Attr, "href")
				}
			case "path":
				if current != nil && section == "content" && current.Kind == KindIcon {
					current.IconPath = attrValue(t.Attr, "d")
				}
			}
		case xml.CharData:
			if inStyle {
				doc.Style += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "style":
				inStyle = false
			case "g":
				if section != "" {
					section = ""
				} else {
					current = nil
				}
			}
		}
	}

	if doc.Width == 0 || doc.Height == 0 {
		return nil, fmt.Errorf("document missing width/height")
	}
	return doc, nil
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func decalFromAttrs(attrs []xml.Attr) (*Decal, error) {
	d := &Decal{}
	d.ID = attrValue(attrs, "id")

	kind, ok := kindFromString(attrValue(attrs, "data-kind"))
	if !ok {
		return nil, fmt.Errorf("decal %q: unknown kind %q", d.ID, attrValue(attrs, "data-kind"))
	}
	d.Kind = kind
	d.Active = attrValue(attrs, "data-active") == "true"
	d.Color = attrValue(attrs, "data-color")

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"data-x", &d.Position.X},
		{"data-y", &d.Position.Y},
		{"data-rotation", &d.Rotation},
		{"data-scale", &d.Scale},
		{"data-content-width", &d.ContentWidth},
		{"data-content-height", &d.ContentHeight},
	}
	for _, n := range numeric {
		v, err := strconv.ParseFloat(attrValue(attrs, n.name), 64)
		if err != nil {
			return nil, fmt.Errorf("decal %q: attribute %s: %w", d.ID, n.name, err)
		}
		*n.dst = v
	}
	return d, nil
}

// Merge copies the decal children of the given documents, in order, into
// a single exportable document sized like the first one.
func Merge(docs ...*Document) *Document {
	if len(docs) == 0 {
		return New(0, 0)
	}
	merged := New(docs[0].Width, docs[0].Height)
	merged.Style = docs[0].Style
	for _, doc := range docs {
		// Copy the nodes; a decal never belongs to two documents.
		for _, d := range doc.decals {
			c := *d
			merged.decals = append(merged.decals, &c)
		}
	}
	return merged
}
