package tariff

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RawSlab is a slab row as authored in a source: exactly one of Upto or Above is set
type RawSlab struct {
	Upto  *decimal.Decimal `json:"upto,omitempty"`
	Above *decimal.Decimal `json:"above,omitempty"`
	Rate  decimal.Decimal  `json:"rate"`
}

// RawTable is a category entry as authored in a source
type RawTable struct {
	Slabs    []RawSlab        `json:"slabs,omitempty"`
	FlatRate *decimal.Decimal `json:"flat_rate,omitempty"`

	// AverageRate is accepted as an alias of FlatRate
	AverageRate *decimal.Decimal `json:"average_rate,omitempty"`

	FixedCharge          *decimal.Decimal           `json:"fixed_charge,omitempty"`
	SeasonMultipliers    map[string]decimal.Decimal `json:"season_multipliers,omitempty"`
	TimeOfDayMultipliers map[string]decimal.Decimal `json:"time_of_day_multipliers,omitempty"`
}

// RawDataset is jurisdiction -> category -> table, keys in any case
type RawDataset map[string]map[string]RawTable

// Normalize validates a raw dataset and lower-cases every key.
// Two keys that differ only in case are a conflict.
func Normalize(raw RawDataset) (Dataset, error) {
	out := make(Dataset, len(raw))
	for jurisdiction, categories := range raw {
		jKey := NormalizeKey(jurisdiction)
		if jKey == "" {
			return nil, fmt.Errorf("empty jurisdiction name")
		}
		if _, dup := out[jKey]; dup {
			return nil, fmt.Errorf("jurisdiction %q defined more than once", jurisdiction)
		}
		if len(categories) == 0 {
			return nil, fmt.Errorf("jurisdiction %q has no categories", jurisdiction)
		}

		byCategory := make(map[string]*Table, len(categories))
		for category, rt := range categories {
			cKey := NormalizeKey(category)
			if cKey == "" {
				return nil, fmt.Errorf("%s: empty category name", jurisdiction)
			}
			if _, dup := byCategory[cKey]; dup {
				return nil, fmt.Errorf("%s: category %q defined more than once", jurisdiction, category)
			}
			table, err := buildTable(jurisdiction, category, rt)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", jurisdiction, category, err)
			}
			byCategory[cKey] = table
		}
		out[jKey] = byCategory
	}
	return out, nil
}

func buildTable(jurisdiction, category string, rt RawTable) (*Table, error) {
	slabs, err := buildSlabs(rt.Slabs)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Jurisdiction: jurisdiction,
		Category:     category,
		Slabs:        slabs,
		FixedCharge:  decimal.Zero,
	}

	flat := rt.FlatRate
	if flat == nil {
		flat = rt.AverageRate
	}
	if flat != nil {
		if flat.IsNegative() {
			return nil, fmt.Errorf("negative flat rate %s", flat)
		}
		v := *flat
		t.FlatRate = &v
	}

	if rt.FixedCharge != nil {
		if rt.FixedCharge.IsNegative() {
			return nil, fmt.Errorf("negative fixed charge %s", rt.FixedCharge)
		}
		t.FixedCharge = *rt.FixedCharge
	}

	if t.SeasonMultipliers, err = buildMultipliers("season", rt.SeasonMultipliers); err != nil {
		return nil, err
	}
	if t.TimeOfDayMultipliers, err = buildMultipliers("time-of-day", rt.TimeOfDayMultipliers); err != nil {
		return nil, err
	}
	return t, nil
}

func buildSlabs(rows []RawSlab) ([]SlabLine, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	slabs := make([]SlabLine, 0, len(rows))
	prev := decimal.Zero
	for i, row := range rows {
		if row.Rate.IsNegative() {
			return nil, fmt.Errorf("slab %d: negative rate %s", i, row.Rate)
		}
		switch {
		case row.Upto != nil && row.Above != nil:
			return nil, fmt.Errorf("slab %d: both upto and above set", i)
		case row.Above != nil:
			if i != len(rows)-1 {
				return nil, fmt.Errorf("slab %d: unbounded slab must be last", i)
			}
			slabs = append(slabs, SlabLine{Rate: row.Rate})
		case row.Upto != nil:
			if !row.Upto.GreaterThan(prev) {
				return nil, fmt.Errorf("slab %d: bound %s does not exceed previous bound %s", i, row.Upto, prev)
			}
			upto := *row.Upto
			prev = upto
			slabs = append(slabs, SlabLine{UpTo: &upto, Rate: row.Rate})
		default:
			return nil, fmt.Errorf("slab %d: neither upto nor above set", i)
		}
	}
	return slabs, nil
}

func buildMultipliers(kind string, in map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for label, factor := range in {
		key := NormalizeKey(label)
		if key == "" {
			return nil, fmt.Errorf("empty %s label", kind)
		}
		if factor.IsNegative() {
			return nil, fmt.Errorf("negative %s multiplier %q", kind, label)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%s label %q defined more than once", kind, label)
		}
		out[key] = factor
	}
	return out, nil
}
