package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/csvfile"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/repository/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		check   func(t *testing.T, s records.Store)
		wantErr bool
	}{
		{
			name:  "csv",
			cfg:   config.StoreConfig{Backend: config.BackendCSV, DataDir: filepath.Join(dir, "csv")},
			check: func(t *testing.T, s records.Store) { assert.IsType(t, &csvfile.Store{}, s) },
		},
		{
			name:  "sqlite",
			cfg:   config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "db", "shiftlog.db")},
			check: func(t *testing.T, s records.Store) { assert.IsType(t, &sqlite.Store{}, s) },
		},
		{
			name:    "unknown",
			cfg:     config.StoreConfig{Backend: "excel"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := Open(ctx, tt.cfg, config.SheetsConfig{}, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()
			tt.check(t, store)

			require.NoError(t, store.Append(ctx, models.TableOutput, records.NewRow(map[string]string{models.ColMachine: "M001"})))
			rows, err := store.ReadAll(ctx, models.TableOutput)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})
	}
}
