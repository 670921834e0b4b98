// Package annotate renders declarative annotation documents onto images.
//
// A document is a defaults map plus an ordered list of element records.
// Each record is merged over the defaults, its coordinates resolved to
// pixels, and decoded into a typed Element. Rendering then runs in three
// passes: spotlights, rects, then arrows and texts, which may anchor to
// any rect or spotlight resolved before them.
package annotate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/pkg/js"
)

// ErrShape is returned for documents that are neither a list nor an
// object with an annotations list.
var ErrShape = errors.New("spec must be a list or an object with 'annotations'")

// Document is a parsed annotation spec. Annotations keeps non-object
// entries so that element indexes match their position in the source.
type Document struct {
	Defaults    map[string]any `json:"defaults"`
	Annotations []any          `json:"annotations"`
}

// Format selects the document syntax.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatScript
)

// FormatFor picks a format from a file name or URL extension.
func FormatFor(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(name, "://") {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".js":
		return FormatScript
	}
	return FormatJSON
}

// FromValue validates the shape of a decoded document. A bare list is
// shorthand for {"defaults": {}, "annotations": list}.
func FromValue(v any) (*Document, error) {
	switch t := js.Normalize(v).(type) {
	case []any:
		return &Document{Defaults: map[string]any{}, Annotations: t}, nil
	case map[string]any:
		raw, ok := t["annotations"]
		if !ok {
			return nil, ErrShape
		}
		doc := &Document{Defaults: map[string]any{}}
		switch list := raw.(type) {
		case []any:
			doc.Annotations = list
		case nil:
		default:
			return nil, fmt.Errorf("annotations must be a list, got %T", raw)
		}
		switch d := t["defaults"].(type) {
		case map[string]any:
			doc.Defaults = d
		case nil:
		default:
			return nil, fmt.Errorf("defaults must be an object, got %T", d)
		}
		return doc, nil
	}
	return nil, ErrShape
}

// Parse decodes a JSON or YAML document. Scripts need an image size and go
// through ParseScript.
func Parse(data []byte, format Format) (*Document, error) {
	var v any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid spec YAML: %w", err)
		}
	case FormatScript:
		return nil, errors.New("script documents need an image size")
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid spec JSON: %w", err)
		}
	}
	return FromValue(v)
}

// ParseScript evaluates a spec script for an image of the given size.
func ParseScript(name string, src []byte, size image.Point) (*Document, error) {
	v, err := js.New().Evaluate(name, string(src), size.X, size.Y)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// Load reads a document from a file, an http(s) URL, or stdin when src is
// "-". Stdin is read as JSON. size is exposed to script documents.
func Load(src string, size image.Point) (*Document, error) {
	data, err := fileio.ReadSource(src)
	if err != nil {
		return nil, errs.Input("failed to read spec", src, err)
	}
	var doc *Document
	format := FormatJSON
	if src != "-" {
		format = FormatFor(src)
	}
	if format == FormatScript {
		doc, err = ParseScript(src, data, size)
	} else {
		doc, err = Parse(data, format)
	}
	if err != nil {
		return nil, errs.Input("invalid spec", src, err)
	}
	return doc, nil
}
