package tariff

import (
	"time"

	"github.com/shopspring/decimal"
)

// Labels with fixed meaning
const (
	DefaultLabel     = "default"
	DefaultTimeOfDay = "mid"

	SeasonSummer  = "summer"
	SeasonMonsoon = "monsoon"
	SeasonWinter  = "winter"
)

// InferSeason maps a calendar month to a season label defined in multipliers:
// April–June summer, July–September monsoon, October–February winter.
// March, or a month whose season the table lacks, yields DefaultLabel.
func InferSeason(month time.Month, multipliers map[string]decimal.Decimal) string {
	var label string
	switch month {
	case time.April, time.May, time.June:
		label = SeasonSummer
	case time.July, time.August, time.September:
		label = SeasonMonsoon
	case time.October, time.November, time.December, time.January, time.February:
		label = SeasonWinter
	default:
		return DefaultLabel
	}
	if _, ok := multipliers[label]; ok {
		return label
	}
	return DefaultLabel
}

// SeasonFactor resolves the season multiplier. An empty label is inferred from
// now. Tables without season multipliers, the "default" label and unmapped
// labels all give 1.
func (t *Table) SeasonFactor(label string, now time.Time) (string, decimal.Decimal) {
	if len(t.SeasonMultipliers) == 0 {
		return NormalizeKey(label), decimal.NewFromInt(1)
	}

	key := NormalizeKey(label)
	if key == "" {
		key = InferSeason(now.Month(), t.SeasonMultipliers)
	}
	if key == DefaultLabel {
		return key, decimal.NewFromInt(1)
	}
	return key, lookupFactor(t.SeasonMultipliers, key)
}

// TimeOfDayFactor resolves the time-of-day multiplier. An empty label means
// "mid"; unmapped labels give 1.
func (t *Table) TimeOfDayFactor(label string) (string, decimal.Decimal) {
	if len(t.TimeOfDayMultipliers) == 0 {
		return NormalizeKey(label), decimal.NewFromInt(1)
	}

	key := NormalizeKey(label)
	if key == "" {
		key = DefaultTimeOfDay
	}
	return key, lookupFactor(t.TimeOfDayMultipliers, key)
}

func lookupFactor(multipliers map[string]decimal.Decimal, key string) decimal.Decimal {
	if f, ok := multipliers[key]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}
