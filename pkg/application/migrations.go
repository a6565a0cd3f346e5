package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"
)

var ErrNoPool = errors.New("migrations: database pool is not configured")

type schema struct {
	module string
	fsys   fs.FS
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []schema
}

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

func (m *migrationManager) RegisterSchema(module string, migrations fs.FS) {
	m.schemas = append(m.schemas, schema{module: module, fsys: migrations})
}

// Up applies pending migrations module by module, in registration order.
func (m *migrationManager) Up(ctx context.Context) error {
	return m.each(func(s schema, p *goose.Provider) error {
		results, err := p.Up(ctx)
		if err != nil {
			return gerrors.Wrapf(err, "migrate %s", s.module)
		}
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"module":   s.module,
				"version":  r.Source.Version,
				"path":     r.Source.Path,
				"duration": r.Duration,
			}).Info("migration applied")
		}
		return nil
	})
}

func (m *migrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	var out []MigrationStatus
	err := m.each(func(s schema, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return gerrors.Wrapf(err, "status %s", s.module)
		}
		for _, st := range statuses {
			out = append(out, MigrationStatus{
				Module:  s.module,
				Version: st.Source.Version,
				Path:    st.Source.Path,
				Applied: st.State == goose.StateApplied,
			})
		}
		return nil
	})
	return out, err
}

func (m *migrationManager) each(fn func(schema, *goose.Provider) error) error {
	if m.pool == nil {
		return ErrNoPool
	}
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	for _, s := range m.schemas {
		store, err := database.NewStore(database.DialectPostgres, fmt.Sprintf("goose_%s_version", s.module))
		if err != nil {
			return err
		}
		p, err := goose.NewProvider("", db, s.fsys, goose.WithStore(store))
		if err != nil {
			return gerrors.Wrapf(err, "goose provider for %s", s.module)
		}
		if err := fn(s, p); err != nil {
			return err
		}
	}
	return nil
}
