// Package repository selects the record store backend configured for the
// deployment.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/repository/csvfile"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/repository/sheets"
	"github.com/mamadbah2/shiftlog/internal/repository/sqlite"
)

// Open returns the record store selected by cfg together with a function
// releasing it.
func Open(ctx context.Context, cfg config.StoreConfig, sheetsCfg config.SheetsConfig, logger *zap.Logger) (records.Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendCSV:
		store, err := csvfile.New(cfg.DataDir, logger.Named("repo.csv"))
		if err != nil {
			return nil, nil, fmt.Errorf("open csv store: %w", err)
		}
		return store, noop, nil
	case config.BackendSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, logger.Named("repo.sqlite"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case config.BackendSheets:
		store, err := sheets.NewGoogleSheetStore(ctx, sheetsCfg, logger.Named("repo.sheets"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sheets store: %w", err)
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
