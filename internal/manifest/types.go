package manifest

import (
	"encoding/json"
	"strings"
)

// Kind is the category a manifest section declares.
type Kind int

const (
	KindModel Kind = iota
	KindPipeline
	KindResource
)

// String returns the singular spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindPipeline:
		return "pipeline"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// ParseKind classifies a top-level manifest key. Matching is
// case-insensitive and accepts both singular and plural spellings.
func ParseKind(key string) (Kind, bool) {
	switch strings.ToLower(key) {
	case "model", "models":
		return KindModel, true
	case "pipeline", "pipelines":
		return KindPipeline, true
	case "resource", "resources":
		return KindResource, true
	default:
		return 0, false
	}
}

// Section is one top-level entry of a manifest: a classified key and its
// raw JSON value (a single object or an array of objects).
type Section struct {
	Key  string // key as written in the document
	Kind Kind
	raw  json.RawMessage
}

// Manifest is a fully loaded rpk_config.json document. Sections appear in
// document order, which fixes the order of registration calls.
type Manifest struct {
	Path     string
	Sections []Section
}

// Item is one normalized declaration ready for dispatch. Exactly one of
// Path/Pipeline carries the kind-specific payload: Path for models and
// resources, Pipeline for pipelines. A resource declaration with a path
// list expands into one Item per path.
type Item struct {
	Kind        Kind
	Name        string
	Path        string
	Pipeline    string
	Description string
	Active      bool
}

// Issue describes one skipped item. Element is the index within the
// section's array (0 for a scalar section); Name may be empty when the
// name itself was missing.
type Issue struct {
	Kind    Kind
	Element int
	Name    string
	Reason  string
}
