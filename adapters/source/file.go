// Package source provides tariff dataset sources: files (JSON or HCL),
// in-memory datasets and Postgres.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/errors"
)

// File reads a tariff dataset from disk on every Load
type File struct {
	path string
}

// NewFile creates a file source. The path is made absolute so it can key the cache.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.SourceLoad(path, err)
	}
	return &File{path: filepath.Clean(abs)}, nil
}

// Name returns the absolute path
func (f *File) Name() string {
	return f.path
}

// Load reads, parses and normalizes the file
func (f *File) Load(ctx context.Context) (tariff.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := ReadRaw(f.path)
	if err != nil {
		return nil, err
	}

	dataset, err := tariff.Normalize(raw)
	if err != nil {
		return nil, errors.SourceLoad(f.path, err)
	}
	return dataset, nil
}

// ReadRaw reads and parses a .json or .hcl tariff file without normalizing it
func ReadRaw(path string) (tariff.RawDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.SourceLoad(path, err)
	}

	var raw tariff.RawDataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw, err = ParseJSON(data)
	case ".hcl":
		raw, err = ParseHCL(data, path)
	default:
		err = fmt.Errorf("unsupported tariff file extension %q (use .json or .hcl)", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.SourceLoad(path, err)
	}
	return raw, nil
}

// ParseJSON decodes jurisdiction -> category -> table JSON
func ParseJSON(data []byte) (tariff.RawDataset, error) {
	var raw tariff.RawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tariff json: %w", err)
	}
	return raw, nil
}
