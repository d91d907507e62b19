package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Items normalizes a section's value into dispatch-ready items. The
// section value is either a single object or an array of objects; each
// object yields items according to the section kind. Malformed elements
// are reported as issues and skipped, never failing the section.
//
// Ordering: items follow the section's array order, and a resource path
// list expands in path order. Both slices are fully materialized so a
// caller can iterate them any number of times.
func (s Section) Items() ([]Item, []Issue) {
	elements, issues := s.elements()

	var items []Item
	for _, el := range elements {
		switch s.Kind {
		case KindModel:
			item, issue := normalizeModel(el)
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			items = append(items, item)
		case KindPipeline:
			item, issue := normalizePipeline(el)
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			items = append(items, item)
		case KindResource:
			expanded, resIssues := normalizeResource(el)
			issues = append(issues, resIssues...)
			items = append(items, expanded...)
		}
	}

	return items, issues
}

// element is one object of a section with its array index, 0 when the
// section value is a single object.
type element struct {
	index  int
	fields map[string]json.RawMessage
}

// elements splits the section value into objects. A non-object array
// entry yields an issue; a scalar section value yields one element.
func (s Section) elements() ([]element, []Issue) {
	var issues []Issue

	if isArray(s.raw) {
		var raws []json.RawMessage
		if err := json.Unmarshal(s.raw, &raws); err != nil {
			issues = append(issues, Issue{Kind: s.Kind, Reason: fmt.Sprintf("invalid array: %v", err)})
			return nil, issues
		}

		var elements []element
		for i, raw := range raws {
			fields, ok := objectFields(raw)
			if !ok {
				issues = append(issues, Issue{Kind: s.Kind, Element: i, Reason: "element is not an object"})
				continue
			}
			elements = append(elements, element{index: i, fields: fields})
		}
		return elements, issues
	}

	fields, ok := objectFields(s.raw)
	if !ok {
		issues = append(issues, Issue{Kind: s.Kind, Reason: "section value is not an object"})
		return nil, issues
	}
	return []element{{index: 0, fields: fields}}, issues
}

func normalizeModel(el element) (Item, *Issue) {
	name, _ := stringField(el.fields, "name")
	model, _ := stringField(el.fields, "model")
	if name == "" || model == "" {
		return Item{}, &Issue{Kind: KindModel, Element: el.index, Name: name, Reason: "missing name or model"}
	}

	desc, _ := stringField(el.fields, "description")
	activate, _ := stringField(el.fields, "activate")

	return Item{
		Kind:        KindModel,
		Name:        name,
		Path:        model,
		Description: desc,
		Active:      strings.EqualFold(activate, "true"),
	}, nil
}

func normalizePipeline(el element) (Item, *Issue) {
	name, _ := stringField(el.fields, "name")
	pipeline, _ := stringField(el.fields, "pipeline")
	if name == "" || pipeline == "" {
		return Item{}, &Issue{Kind: KindPipeline, Element: el.index, Name: name, Reason: "missing name or pipeline"}
	}

	return Item{Kind: KindPipeline, Name: name, Pipeline: pipeline}, nil
}

// normalizeResource fans a resource declaration out into one item per
// path. A declaration with no resolvable path yields issues only.
func normalizeResource(el element) ([]Item, []Issue) {
	name, _ := stringField(el.fields, "name")
	if name == "" {
		return nil, []Issue{{Kind: KindResource, Element: el.index, Reason: "missing name"}}
	}

	desc, _ := stringField(el.fields, "description")

	pathRaw, ok := el.fields["path"]
	if !ok {
		return nil, []Issue{{Kind: KindResource, Element: el.index, Name: name, Reason: "missing path"}}
	}

	paths, issues := resourcePaths(pathRaw, el.index, name)

	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, Item{Kind: KindResource, Name: name, Path: p, Description: desc})
	}
	return items, issues
}

// resourcePaths resolves a resource's path field: a single string, or an
// array of strings expanded in order. Non-string array entries are
// skipped with an issue; an empty array yields an issue and no paths.
func resourcePaths(raw json.RawMessage, index int, name string) ([]string, []Issue) {
	if !isArray(raw) {
		var p string
		if err := json.Unmarshal(raw, &p); err != nil || p == "" {
			return nil, []Issue{{Kind: KindResource, Element: index, Name: name, Reason: "path is not a string"}}
		}
		return []string{p}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, []Issue{{Kind: KindResource, Element: index, Name: name, Reason: fmt.Sprintf("invalid path array: %v", err)}}
	}
	if len(raws) == 0 {
		return nil, []Issue{{Kind: KindResource, Element: index, Name: name, Reason: "empty path array"}}
	}

	var paths []string
	var issues []Issue
	for i, r := range raws {
		var p string
		if err := json.Unmarshal(r, &p); err != nil || p == "" {
			issues = append(issues, Issue{
				Kind:    KindResource,
				Element: index,
				Name:    name,
				Reason:  fmt.Sprintf("path %d is not a string", i),
			})
			continue
		}
		paths = append(paths, p)
	}
	return paths, issues
}

// objectFields unmarshals a raw value as a JSON object. Field values stay
// raw; string extraction happens per field so a non-string value is
// simply treated as absent.
func objectFields(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := trimLeft(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// stringField extracts a string-valued field. Missing fields and fields
// of another JSON type both report absence.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := trimLeft(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func trimLeft(raw json.RawMessage) []byte {
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return raw[i:]
		}
	}
	return nil
}
