// Package graphemes provides the glyph substitution table.
//
// Some characters (emoji, a few symbols) render differently depending on
// which fonts happen to be installed. The table maps those grapheme
// clusters to pre-rendered images; the markup generator emits the image
// verbatim wherever the cluster appears in text.
//
// The default table is embedded in the binary. [Load] reads a replacement
// from disk.
package graphemes

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

//go:embed graphemes.json
var defaultJSON []byte

// Table maps a grapheme cluster to an image data URI.
// A Table is read-only once built.
type Table struct {
	images map[string]string
}

// Parse decodes a JSON object of cluster → image data URI. Keys are NFC
// normalized so lookups match titles regardless of how they were composed.
// Values must be data:image/ URIs; rendering never touches the network, so
// a remote reference could not be drawn.
func Parse(data []byte) (*Table, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse grapheme table: %w", err)
	}
	t := &Table{images: make(map[string]string, len(raw))}
	for k, v := range raw {
		if k == "" {
			return nil, fmt.Errorf("grapheme table: empty key")
		}
		if !strings.HasPrefix(v, "data:image/") || !strings.Contains(v, ",") {
			return nil, fmt.Errorf("grapheme table: %q must map to a data:image/ URI", k)
		}
		t.images[norm.NFC.String(k)] = v
	}
	return t, nil
}

// Load reads a table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the embedded table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultJSON)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Empty returns a table with no substitutions.
func Empty() *Table { return &Table{images: map[string]string{}} }

// Lookup returns the image for cluster.
func (t *Table) Lookup(cluster string) (string, bool) {
	if t == nil || len(t.images) == 0 {
		return "", false
	}
	src, ok := t.images[norm.NFC.String(cluster)]
	return src, ok
}

// Len is the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.images)
}
