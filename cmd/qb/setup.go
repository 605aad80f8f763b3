package main

import (
	"context"
	"errors"

	"github.com/querybench/querybench/internal/store"
	"github.com/querybench/querybench/internal/strategies"
)

// openStore opens the configured database, creates the schema and seeds an
// empty hierarchy with the configured generator settings.
func openStore(ctx context.Context) (*store.DB, error) {
	db, err := store.Open(cfg.Database.Path, store.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		return nil, err
	}

	if err := db.InitSchemaContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	count, err := db.GetEmployeeCountContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if count == 0 {
		logger.Info("database is empty, seeding", "path", db.Path(), "employees", cfg.Database.Seed.Employees)
		if _, err := db.Seed(ctx, cfg.SeedOptions()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// openSuite prepares every strategy against db.
func openSuite(ctx context.Context, db *store.DB) (*strategies.Suite, error) {
	gdb, err := strategies.OpenGorm(db.RawDB())
	if err != nil {
		return nil, err
	}

	suite, err := strategies.New(ctx, strategies.Deps{
		DB:     db.RawDB(),
		Gorm:   gdb,
		RootID: cfg.Query.RootID,
	})
	if err != nil {
		return nil, err
	}

	// A root without reports would time nothing but empty result sets.
	rows, err := suite.Count(ctx, strategies.SQLPrepared)
	if err != nil {
		return nil, errors.Join(err, suite.Close())
	}
	if rows == 0 {
		logger.Warn("root has no reports", "root_id", suite.RootID())
	}
	return suite, nil
}
