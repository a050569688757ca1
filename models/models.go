// Package models defines the data structures flowing through the harvest pipeline.
package models

// Category is a top-level product category discovered on the entry page.
type Category struct {
	Name string
	URL  string
}

// ProductReference is the unit of work handed to the extraction engine: one
// product URL and the category it was discovered under.
type ProductReference struct {
	Category string
	URL      string
}

// Key identifies a reference for de-duplication. The same URL listed under two
// categories is two distinct keys; a repeat within one category is not.
func (r ProductReference) Key() string {
	return r.Category + "|" + r.URL
}

// Specifications holds the parsed key/value lines of a product's technical
// section. Lines without a separator are kept as notes instead of dropped.
type Specifications struct {
	Values map[string]string `json:"values,omitempty"`
	Notes  []string          `json:"notes,omitempty"`
}

// Empty reports whether nothing was extracted.
func (s Specifications) Empty() bool {
	return len(s.Values) == 0 && len(s.Notes) == 0
}

// Variant is one purchasable reference row, flattened to a (color, size) pair.
type Variant struct {
	Color         string   `json:"color,omitempty"`
	Size          string   `json:"size,omitempty"`
	ArticleNumber string   `json:"article_number,omitempty"`
	GTIN          string   `json:"gtin,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Stock         *int     `json:"stock,omitempty"`
}

// DocumentLink points at a downloadable document attached to a product page.
type DocumentLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Fields is the normalized field map an extractor produces from one product
// page. Every field is optional; a section the extractor cannot locate is
// simply absent.
type Fields struct {
	Title          string          `json:"title,omitempty"`
	Subtitle       string          `json:"subtitle,omitempty"`
	Description    string          `json:"description,omitempty"`
	Gallery        []string        `json:"gallery,omitempty"`
	Features       []string        `json:"features,omitempty"`
	Specifications *Specifications `json:"specifications,omitempty"`
	References     []Variant       `json:"references,omitempty"`
	Documents      []DocumentLink  `json:"technical_documents,omitempty"`
}

// ErrorKind tags a per-reference extraction failure.
type ErrorKind string

// Extraction failure kinds.
const (
	ErrorHTTPStatus ErrorKind = "http_status"
	ErrorTimeout    ErrorKind = "timeout"
	ErrorUnexpected ErrorKind = "unexpected"
)

// ExtractionError is a contained per-reference failure. It never aborts the
// batch; it travels with the reference into the snapshot instead.
type ExtractionError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// Result is the outcome of extracting one reference: either Fields or Err is
// meaningful, never both.
type Result struct {
	Reference ProductReference
	Fields    Fields
	Err       *ExtractionError
}

// NewRecord builds a successful result.
func NewRecord(ref ProductReference, fields Fields) Result {
	return Result{Reference: ref, Fields: fields}
}

// NewErrorRecord builds a failed result tagged with kind.
func NewErrorRecord(ref ProductReference, kind ErrorKind, detail string) Result {
	return Result{Reference: ref, Err: &ExtractionError{Kind: kind, Detail: detail}}
}
