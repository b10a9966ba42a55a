package gridcodec

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"trenchline.gg/internal/grid"
)

var ErrMalformedDocument = errors.New("malformed grid document")

//go:embed save.schema.json
var schemaJSON string

const schemaURL = "https://trenchline.gg/schemas/save.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// SchemaJSON returns the JSON schema every document is validated against.
func SchemaJSON() string { return schemaJSON }

type MetaPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Entry[T any] struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Value T   `json:"value"`
}

// Document is the on-disk shape of a saved grid.
type Document[T any] struct {
	Metadata []MetaPair `json:"metadata"`
	Entries  []Entry[T] `json:"entries"`
}

// Encode flattens grid and meta into a document. Entries are emitted in
// row-major order and metadata sorted by key so output is stable; callers
// should still not rely on entry order.
func Encode[T any](g map[grid.Coord]T, meta map[string]string) Document[T] {
	coords := make([]grid.Coord, 0, len(g))
	for c := range g {
		coords = append(coords, c)
	}
	grid.SortCoords(coords)

	doc := Document[T]{
		Metadata: make([]MetaPair, 0, len(meta)),
		Entries:  make([]Entry[T], 0, len(g)),
	}
	for _, c := range coords {
		doc.Entries = append(doc.Entries, Entry[T]{X: c.X, Y: c.Y, Value: g[c]})
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Metadata = append(doc.Metadata, MetaPair{Key: k, Value: meta[k]})
	}
	return doc
}

// Decode rebuilds the grid and metadata maps. Repeated coordinates or keys
// resolve to the last occurrence.
func Decode[T any](doc Document[T]) (map[grid.Coord]T, map[string]string) {
	g := make(map[grid.Coord]T, len(doc.Entries))
	for _, e := range doc.Entries {
		g[grid.Coord{X: e.X, Y: e.Y}] = e.Value
	}
	meta := make(map[string]string, len(doc.Metadata))
	for _, p := range doc.Metadata {
		meta[p.Key] = p.Value
	}
	return g, meta
}

func Marshal[T any](doc Document[T]) ([]byte, error) {
	if doc.Metadata == nil {
		doc.Metadata = []MetaPair{}
	}
	if doc.Entries == nil {
		doc.Entries = []Entry[T]{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses and validates a document. Every failure wraps ErrMalformedDocument.
func Unmarshal[T any](b []byte) (Document[T], error) {
	var doc Document[T]

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	s, err := compiledSchema()
	if err != nil {
		return doc, fmt.Errorf("compile save schema: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc, nil
}

// ToJSON encodes grid and meta straight to indented JSON.
func ToJSON[T any](g map[grid.Coord]T, meta map[string]string) ([]byte, error) {
	return Marshal(Encode(g, meta))
}

func FromJSON[T any](b []byte) (map[grid.Coord]T, map[string]string, error) {
	doc, err := Unmarshal[T](b)
	if err != nil {
		return nil, nil, err
	}
	g, meta := Decode(doc)
	return g, meta, nil
}
