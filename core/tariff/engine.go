package tariff

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"slab-tariff/internal/errors"
	"slab-tariff/internal/logging"
)

// Output precision
const (
	AmountPlaces = 2
	FactorPlaces = 4
)

// Bounds on accepted units. Checked on the exponent and digit count only,
// before any comparison rescales the value.
const (
	MaxUnitDigits = 15
	MaxUnitPlaces = 9
)

// TableResolver resolves a rate table; *Resolver is the production implementation
type TableResolver interface {
	Table(ctx context.Context, jurisdiction, category string) (*Table, error)
}

// Engine computes bills against resolved tables
type Engine struct {
	tables TableResolver
	now    func() time.Time
	log    *zap.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock sets the time source used to infer the season
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithEngineLogger overrides the logger
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine
func NewEngine(tables TableResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		tables: tables,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logging.Named("tariff.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeBill bills units under the table selected by bc.
// Total = base × season factor × time-of-day factor + fixed charge.
func (e *Engine) ComputeBill(ctx context.Context, units decimal.Decimal, bc BillingContext) (*Breakdown, error) {
	if err := checkUnitsRange(units); err != nil {
		return nil, err
	}
	if units.IsNegative() {
		return nil, errors.InvalidArgument("units must not be negative, got %s", units)
	}
	if strings.TrimSpace(bc.Jurisdiction) == "" {
		return nil, errors.InvalidArgument("jurisdiction is required")
	}
	if strings.TrimSpace(bc.Category) == "" {
		bc.Category = DefaultCategory
	}

	table, err := e.tables.Table(ctx, bc.Jurisdiction, bc.Category)
	if err != nil {
		return nil, err
	}

	season, seasonFactor := table.SeasonFactor(bc.Season, e.now())
	tod, todFactor := table.TimeOfDayFactor(bc.TimeOfDay)

	var (
		base     decimal.Decimal
		charges  []SlabCharge
		overflow bool
	)
	switch {
	case len(table.Slabs) > 0:
		charges, overflow = SlabCharges(units, table.Slabs)
		base = decimal.Zero
		for _, c := range charges {
			base = base.Add(c.Amount)
		}
	case table.FlatRate != nil:
		base = units.Mul(*table.FlatRate)
	default:
		base = decimal.Zero
	}

	if overflow {
		last := table.Slabs[len(table.Slabs)-1]
		e.log.Warn("units exceed last bounded slab, billing remainder at last rate",
			zap.String("jurisdiction", table.Jurisdiction),
			zap.String("category", table.Category),
			zap.Stringer("units", units),
			zap.Stringer("last_bound", last.UpTo),
			zap.Stringer("rate", last.Rate))
	}

	total := base.Mul(seasonFactor).Mul(todFactor).Add(table.FixedCharge)

	return &Breakdown{
		Jurisdiction:    table.Jurisdiction,
		Category:        table.Category,
		Units:           units,
		Slabs:           charges,
		BaseAmount:      base.Round(AmountPlaces),
		Season:          season,
		SeasonFactor:    seasonFactor.Round(FactorPlaces),
		TimeOfDay:       tod,
		TimeOfDayFactor: todFactor.Round(FactorPlaces),
		FixedCharge:     table.FixedCharge.Round(AmountPlaces),
		TotalAmount:     total.Round(AmountPlaces),
		Overflow:        overflow,
	}, nil
}

func checkUnitsRange(units decimal.Decimal) error {
	exp := int64(units.Exponent())
	if exp < -MaxUnitPlaces {
		return errors.InvalidArgument("units must have at most %d decimal places", MaxUnitPlaces)
	}
	if int64(units.NumDigits())+exp > MaxUnitDigits {
		return errors.InvalidArgument("units must have at most %d integer digits", MaxUnitDigits)
	}
	return nil
}
