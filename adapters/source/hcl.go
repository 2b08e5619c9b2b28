package source

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"slab-tariff/core/tariff"
)

// HCL layout:
//
//	jurisdiction "Tamil Nadu" {
//	  category "domestic" {
//	    fixed_charge       = 50
//	    season_multipliers = { summer = 1.1 }
//	    slab { upto = 100  rate = 0 }
//	    slab { above = 100 rate = 2.35 }
//	  }
//	}
type hclFile struct {
	Jurisdictions []hclJurisdiction `hcl:"jurisdiction,block"`
}

type hclJurisdiction struct {
	Name       string        `hcl:"name,label"`
	Categories []hclCategory `hcl:"category,block"`
}

type hclCategory struct {
	Name                 string             `hcl:"name,label"`
	Slabs                []hclSlab          `hcl:"slab,block"`
	FlatRate             *float64           `hcl:"flat_rate,optional"`
	AverageRate          *float64           `hcl:"average_rate,optional"`
	FixedCharge          *float64           `hcl:"fixed_charge,optional"`
	SeasonMultipliers    map[string]float64 `hcl:"season_multipliers,optional"`
	TimeOfDayMultipliers map[string]float64 `hcl:"time_of_day_multipliers,optional"`
}

type hclSlab struct {
	Upto  *float64 `hcl:"upto,optional"`
	Above *float64 `hcl:"above,optional"`
	Rate  float64  `hcl:"rate"`
}

// ParseHCL decodes an HCL tariff document
func ParseHCL(data []byte, filename string) (tariff.RawDataset, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse tariff hcl: %w", diags)
	}

	var doc hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decode tariff hcl: %w", diags)
	}

	raw := make(tariff.RawDataset, len(doc.Jurisdictions))
	for _, j := range doc.Jurisdictions {
		if _, dup := raw[j.Name]; dup {
			return nil, fmt.Errorf("jurisdiction %q declared more than once", j.Name)
		}
		categories := make(map[string]tariff.RawTable, len(j.Categories))
		for _, c := range j.Categories {
			if _, dup := categories[c.Name]; dup {
				return nil, fmt.Errorf("%s: category %q declared more than once", j.Name, c.Name)
			}
			categories[c.Name] = c.raw()
		}
		raw[j.Name] = categories
	}
	return raw, nil
}

func (c hclCategory) raw() tariff.RawTable {
	rt := tariff.RawTable{
		FlatRate:             decimalPtr(c.FlatRate),
		AverageRate:          decimalPtr(c.AverageRate),
		FixedCharge:          decimalPtr(c.FixedCharge),
		SeasonMultipliers:    decimalMap(c.SeasonMultipliers),
		TimeOfDayMultipliers: decimalMap(c.TimeOfDayMultipliers),
	}
	for _, s := range c.Slabs {
		rt.Slabs = append(rt.Slabs, tariff.RawSlab{
			Upto:  decimalPtr(s.Upto),
			Above: decimalPtr(s.Above),
			Rate:  decimal.NewFromFloat(s.Rate),
		})
	}
	return rt
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func decimalMap(in map[string]float64) map[string]decimal.Decimal {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}
