package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FileName is the fixed manifest filename bundled in resource packages.
const FileName = "rpk_config.json"

// Load reads and parses a manifest file. Every failure here is structural:
// a missing or irregular file, unreadable contents, invalid JSON, a
// non-object top level, or a top-level key that does not classify to a
// known kind. Classification of all keys happens here, before any
// registration is attempted.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("locating manifest %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("manifest %s is not a regular file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	sections, err := parseSections(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	return &Manifest{Path: path, Sections: sections}, nil
}

// Decode parses manifest bytes that did not come from a file.
func Decode(data []byte) (*Manifest, error) {
	sections, err := parseSections(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &Manifest{Sections: sections}, nil
}

// parseSections decodes the top-level object token-wise so that sections
// keep document order. encoding/json map decoding would randomize key
// order and with it the registration call order.
func parseSections(data []byte) ([]Section, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("top level must be a JSON object, got %v", tok)
	}

	var sections []Section
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v for object key", tok)
		}

		kind, ok := ParseKind(key)
		if !ok {
			return nil, fmt.Errorf("unrecognized section %q", key)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid value for section %q: %w", key, err)
		}

		sections = append(sections, Section{Key: key, Kind: kind, raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	// Nothing may follow the top-level object.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after top-level object")
	}

	return sections, nil
}
