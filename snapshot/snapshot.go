// Package snapshot groups extraction results by category and publishes the
// final catalog artifact atomically.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fkoehler/gearharvest/models"
)

// Uncategorized is the bucket for results whose reference lost its category.
const Uncategorized = "Uncategorized"

// Entry is the serialized form of one result. Discovery routing fields are
// stripped here; only the product URL survives alongside the field map.
type Entry struct {
	URL string `json:"product_url"`
	models.Fields
	Error *models.ExtractionError `json:"error,omitempty"`
}

// Snapshot maps category name to its ordered extraction results. Categories
// that contributed zero products are still present, with an empty sequence.
type Snapshot map[string][]Entry

// Aggregate builds a snapshot covering every discovered category. Results are
// kept in the order given; callers that need a stable artifact feed a stable
// order in.
func Aggregate(categories []models.Category, results []models.Result) Snapshot {
	snap := make(Snapshot, len(categories))
	for _, cat := range categories {
		if _, ok := snap[cat.Name]; !ok {
			snap[cat.Name] = []Entry{}
		}
	}
	for _, res := range results {
		name := res.Reference.Category
		if name == "" {
			name = Uncategorized
		}
		snap[name] = append(snap[name], Entry{
			URL:    res.Reference.URL,
			Fields: res.Fields,
			Error:  res.Err,
		})
	}
	return snap
}

// Write serializes the whole snapshot and publishes it atomically: the JSON
// is written to a temporary file in the target directory and renamed into
// place, so a crash mid-write never leaves a partial artifact behind the
// final path. Output is indented UTF-8 with HTML left unescaped, for diffing.
func Write(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Marshal renders the snapshot exactly as Write would, for callers that need
// the bytes rather than a file.
func Marshal(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
