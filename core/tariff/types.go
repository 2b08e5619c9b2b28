// Package tariff implements slab tariff resolution and bill computation.
package tariff

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"slab-tariff/internal/errors"
)

// DefaultCategory is used when a billing context names no category
const DefaultCategory = "domestic"

// SlabLine is one tier of a slab tariff
type SlabLine struct {
	// UpTo is the inclusive upper bound of the tier; nil means unbounded
	UpTo *decimal.Decimal `json:"upto,omitempty"`

	// Rate is the price per unit inside the tier
	Rate decimal.Decimal `json:"rate"`
}

// Unbounded reports whether the tier has no upper bound
func (s SlabLine) Unbounded() bool {
	return s.UpTo == nil
}

// Table is the resolved rate table for one jurisdiction and category.
// Multiplier labels are lower-case. A Table is read-only once built.
type Table struct {
	Jurisdiction string `json:"jurisdiction"`
	Category     string `json:"category"`

	// Slabs are ordered by strictly increasing upper bound; only the last may be unbounded
	Slabs []SlabLine `json:"slabs,omitempty"`

	// FlatRate applies when there are no slabs
	FlatRate *decimal.Decimal `json:"flat_rate,omitempty"`

	FixedCharge decimal.Decimal `json:"fixed_charge"`

	SeasonMultipliers    map[string]decimal.Decimal `json:"season_multipliers,omitempty"`
	TimeOfDayMultipliers map[string]decimal.Decimal `json:"time_of_day_multipliers,omitempty"`
}

// BillingContext selects the table and multipliers for a computation
type BillingContext struct {
	Jurisdiction string `json:"state"`
	Category     string `json:"category"`
	Season       string `json:"season,omitempty"`
	TimeOfDay    string `json:"time_of_day,omitempty"`
}

// Dataset holds every table from a source, keyed by lower-cased
// jurisdiction then lower-cased category.
type Dataset map[string]map[string]*Table

// NormalizeKey is the single key normalization applied to jurisdictions,
// categories and multiplier labels.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup returns the table for a jurisdiction and category, ignoring case
func (d Dataset) Lookup(jurisdiction, category string) (*Table, error) {
	categories, ok := d[NormalizeKey(jurisdiction)]
	if !ok {
		return nil, errors.NotFound(jurisdiction, category)
	}
	table, ok := categories[NormalizeKey(category)]
	if !ok {
		return nil, errors.NotFound(jurisdiction, category)
	}
	return table, nil
}

// JurisdictionIndex lists the categories defined for a jurisdiction
type JurisdictionIndex struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Index returns the dataset's jurisdictions and categories, sorted by name
func (d Dataset) Index() []JurisdictionIndex {
	out := make([]JurisdictionIndex, 0, len(d))
	for _, categories := range d {
		var idx JurisdictionIndex
		for _, table := range categories {
			idx.Name = table.Jurisdiction
			idx.Categories = append(idx.Categories, table.Category)
		}
		sort.Strings(idx.Categories)
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Breakdown is the result of a bill computation
type Breakdown struct {
	Jurisdiction string          `json:"state"`
	Category     string          `json:"category"`
	Units        decimal.Decimal `json:"units"`

	// Slabs itemizes the slab computation; amounts are exact and sum to the unrounded base
	Slabs []SlabCharge `json:"slabs,omitempty"`

	BaseAmount      decimal.Decimal `json:"base_amount"`
	Season          string          `json:"season,omitempty"`
	SeasonFactor    decimal.Decimal `json:"season_factor"`
	TimeOfDay       string          `json:"time_of_day,omitempty"`
	TimeOfDayFactor decimal.Decimal `json:"tod_factor"`
	FixedCharge     decimal.Decimal `json:"fixed_charge"`
	TotalAmount     decimal.Decimal `json:"total_amount"`

	// Overflow is set when units ran past the last bounded slab and were billed at its rate
	Overflow bool `json:"overflow,omitempty"`
}
