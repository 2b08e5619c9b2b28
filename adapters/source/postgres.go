package source

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/errors"
	"slab-tariff/internal/logging"
)

// Postgres reads the tariff dataset from the tariff_tables and tariff_slabs tables
type Postgres struct {
	pool *pgxpool.Pool
	name string
	log  *zap.Logger
}

// NewPostgres connects, applies migrations from migrationsPath (skipped when
// empty) and returns the source.
func NewPostgres(ctx context.Context, dsn, migrationsPath string) (*Postgres, error) {
	log := logging.Named("source.postgres")

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Config("parse postgres dsn", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.SourceLoad("postgres", err)
	}

	if migrationsPath != "" {
		if err := migrateUp(dsn, migrationsPath); err != nil {
			pool.Close()
			return nil, err
		}
	}

	name := fmt.Sprintf("postgres://%s:%d/%s", poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, poolConfig.ConnConfig.Database)
	log.Info("postgres tariff source connected", zap.String("source", name))

	return &Postgres{pool: pool, name: name, log: log}, nil
}

func migrateUp(dsn, migrationsPath string) error {
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return errors.Config("resolve migrations path", err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), dsn)
	if err != nil {
		return errors.SourceLoad("postgres migrations", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.SourceLoad("postgres migrations", err)
	}
	return nil
}

// Close releases the pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// Name identifies the database without credentials
func (p *Postgres) Name() string {
	return p.name
}

// Load reads every table and slab
func (p *Postgres) Load(ctx context.Context) (tariff.Dataset, error) {
	raw, err := p.readRaw(ctx)
	if err != nil {
		return nil, errors.SourceLoad(p.name, err)
	}
	dataset, err := tariff.Normalize(raw)
	if err != nil {
		return nil, errors.SourceLoad(p.name, err)
	}
	return dataset, nil
}

func (p *Postgres) readRaw(ctx context.Context) (tariff.RawDataset, error) {
	raw := make(tariff.RawDataset)

	rows, err := p.pool.Query(ctx, `
		SELECT jurisdiction, category, flat_rate::text, fixed_charge::text,
		       season_multipliers::text, time_of_day_multipliers::text
		FROM tariff_tables`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jurisdiction, category string
			flat, fixed            *string
			season, tod            string
		)
		if err := rows.Scan(&jurisdiction, &category, &flat, &fixed, &season, &tod); err != nil {
			return nil, err
		}

		rt := tariff.RawTable{}
		if rt.FlatRate, err = parseNullable(flat); err != nil {
			return nil, fmt.Errorf("%s/%s flat_rate: %w", jurisdiction, category, err)
		}
		if rt.FixedCharge, err = parseNullable(fixed); err != nil {
			return nil, fmt.Errorf("%s/%s fixed_charge: %w", jurisdiction, category, err)
		}
		if err := json.Unmarshal([]byte(season), &rt.SeasonMultipliers); err != nil {
			return nil, fmt.Errorf("%s/%s season_multipliers: %w", jurisdiction, category, err)
		}
		if err := json.Unmarshal([]byte(tod), &rt.TimeOfDayMultipliers); err != nil {
			return nil, fmt.Errorf("%s/%s time_of_day_multipliers: %w", jurisdiction, category, err)
		}

		if raw[jurisdiction] == nil {
			raw[jurisdiction] = make(map[string]tariff.RawTable)
		}
		raw[jurisdiction][category] = rt
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slabRows, err := p.pool.Query(ctx, `
		SELECT jurisdiction, category, upto::text, rate::text
		FROM tariff_slabs
		ORDER BY jurisdiction, category, position`)
	if err != nil {
		return nil, err
	}
	defer slabRows.Close()

	for slabRows.Next() {
		var (
			jurisdiction, category string
			upto                   *string
			rate                   string
		)
		if err := slabRows.Scan(&jurisdiction, &category, &upto, &rate); err != nil {
			return nil, err
		}

		slab := tariff.RawSlab{}
		if slab.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("%s/%s rate: %w", jurisdiction, category, err)
		}
		if upto == nil {
			above := decimal.Zero
			slab.Above = &above
		} else if slab.Upto, err = parseNullable(upto); err != nil {
			return nil, fmt.Errorf("%s/%s upto: %w", jurisdiction, category, err)
		}

		rt := raw[jurisdiction][category]
		rt.Slabs = append(rt.Slabs, slab)
		raw[jurisdiction][category] = rt
	}
	return raw, slabRows.Err()
}

// Import replaces the stored tables with raw in a single transaction.
// The dataset is validated first so a bad file never reaches the database.
func (p *Postgres) Import(ctx context.Context, raw tariff.RawDataset) error {
	if _, err := tariff.Normalize(raw); err != nil {
		return errors.InvalidArgument("invalid tariff dataset: %v", err)
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tariff_tables`); err != nil {
			return err
		}
		for jurisdiction, categories := range raw {
			for category, rt := range categories {
				season, err := json.Marshal(nonNil(rt.SeasonMultipliers))
				if err != nil {
					return err
				}
				tod, err := json.Marshal(nonNil(rt.TimeOfDayMultipliers))
				if err != nil {
					return err
				}
				flat := rt.FlatRate
				if flat == nil {
					flat = rt.AverageRate
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO tariff_tables
						(jurisdiction, category, flat_rate, fixed_charge, season_multipliers, time_of_day_multipliers)
					VALUES ($1, $2, $3::numeric, $4::numeric, $5::jsonb, $6::jsonb)`,
					jurisdiction, category, textOrNil(flat), textOrNil(rt.FixedCharge), string(season), string(tod),
				); err != nil {
					return err
				}
				for i, s := range rt.Slabs {
					if _, err := tx.Exec(ctx, `
						INSERT INTO tariff_slabs (jurisdiction, category, position, upto, rate)
						VALUES ($1, $2, $3, $4::numeric, $5::numeric)`,
						jurisdiction, category, i, textOrNil(s.Upto), s.Rate.String(),
					); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.Internal("import tariff dataset", err)
	}

	p.log.Info("tariff dataset imported", zap.Int("jurisdictions", len(raw)))
	return nil
}

func parseNullable(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func textOrNil(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func nonNil(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
