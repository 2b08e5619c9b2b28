package source

import (
	"context"

	"slab-tariff/core/tariff"
	"slab-tariff/data"
	"slab-tariff/internal/errors"
)

// Static serves a dataset held in memory
type Static struct {
	name string
	raw  tariff.RawDataset
}

// NewStatic creates a static source; name keys the cache
func NewStatic(name string, raw tariff.RawDataset) *Static {
	return &Static{name: name, raw: raw}
}

// NewEmbedded serves the dataset compiled into the binary
func NewEmbedded() (*Static, error) {
	raw, err := ParseJSON(data.TariffsJSON)
	if err != nil {
		return nil, errors.SourceLoad("embedded", err)
	}
	return NewStatic("embedded", raw), nil
}

// Name returns the source name
func (s *Static) Name() string {
	return s.name
}

// Load normalizes the held dataset
func (s *Static) Load(ctx context.Context) (tariff.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dataset, err := tariff.Normalize(s.raw)
	if err != nil {
		return nil, errors.SourceLoad(s.name, err)
	}
	return dataset, nil
}
