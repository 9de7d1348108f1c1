// Package sidecar persists trace records next to generated assets.
package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Paranoid-AF/vctrace"
)

// EncodeTOML renders r as a TOML sidecar document.
func EncodeTOML(r *vctrace.TraceRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(vctrace.ToDocument(r)); err != nil {
		return nil, fmt.Errorf("encoding sidecar for %q: %w", r.RequestID, err)
	}
	return buf.Bytes(), nil
}

// DecodeTOML parses a TOML sidecar document back into a record.
func DecodeTOML(data []byte) (*vctrace.TraceRecord, error) {
	var doc vctrace.Document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding sidecar: %w", err)
	}
	return doc.Record()
}

// EncodeJSON renders r as an indented JSON sidecar document.
func EncodeJSON(r *vctrace.TraceRecord) ([]byte, error) {
	data, err := json.MarshalIndent(vctrace.ToDocument(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sidecar for %q: %w", r.RequestID, err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON sidecar document back into a record.
func DecodeJSON(data []byte) (*vctrace.TraceRecord, error) {
	var doc vctrace.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding sidecar: %w", err)
	}
	return doc.Record()
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// WriteFile writes r to path. Files ending in .json are written as JSON,
// everything else as TOML.
func WriteFile(path string, r *vctrace.TraceRecord) error {
	encode := EncodeTOML
	if isJSON(path) {
		encode = EncodeJSON
	}
	data, err := encode(r)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a sidecar written by WriteFile.
func ReadFile(path string) (*vctrace.TraceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isJSON(path) {
		return DecodeJSON(data)
	}
	return DecodeTOML(data)
}
