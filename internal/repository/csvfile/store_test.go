package csvfile

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func outputRow(machine, kg string) records.Row {
	return records.NewRow(map[string]string{
		models.ColDateTime: "2024-01-01 09:00",
		models.ColShift:    "A",
		models.ColMachine:  machine,
		models.ColOutputKg: kg,
	})
}

func TestStore_MissingTableReadsEmpty(t *testing.T) {
	store := newStore(t)

	rows, err := store.ReadAll(context.Background(), models.TableOutput)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, statErr := os.Stat(store.Path(models.TableOutput))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "reading must not create the file")
}

func TestStore_AppendReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	want := []records.Row{outputRow("M001", "2.5"), outputRow("M002", "3"), outputRow("M003", "0.75")}
	for _, row := range want {
		require.NoError(t, store.Append(ctx, models.TableOutput, row))
	}

	got, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Get(models.ColMachine), got[i].Get(models.ColMachine))
		assert.Equal(t, want[i].Get(models.ColOutputKg), got[i].Get(models.ColOutputKg))
	}

	reopened, err := New(store.dir, nil)
	require.NoError(t, err)
	again, err := reopened.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	assert.Len(t, again, len(want))
}

func TestStore_HeaderFollowsSchema(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Append(ctx, models.TableRejection, records.NewRow(map[string]string{models.ColReason: "Flash"})))

	data, err := os.ReadFile(store.Path(models.TableRejection))
	require.NoError(t, err)
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	assert.Equal(t, strings.Join(models.MustSchema(models.TableRejection).Header(), ","), firstLine)
}

func TestStore_CorruptFileReadsEmptyButRefusesWrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, os.WriteFile(store.Path(models.TableOutput), []byte("Machine,Output (kg)\n\"M001,2.5\n"), 0o644))

	rows, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = store.Append(ctx, models.TableOutput, outputRow("M001", "1"))
	var ioErr *records.StoreIOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, "append", ioErr.Op)

	data, readErr := os.ReadFile(store.Path(models.TableOutput))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "\"M001,2.5", "corrupt file must be left untouched")
}

func TestStore_LegacyHeaderIsMerged(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	legacy := "\ufeffDate & Time,Machine,Material Type,KG Used\n2024-01-01 10:00,M001,HDPE,12.5\n"
	require.NoError(t, os.WriteFile(store.Path(models.TableRawMaterial), []byte(legacy), 0o644))

	require.NoError(t, store.Append(ctx, models.TableRawMaterial, records.NewRow(map[string]string{
		models.ColDateTime:     "2024-01-01 11:00",
		models.ColMachine:      "M002",
		models.ColMaterialType: "PP",
		models.ColKgUsed:       "4",
		models.ColGrade:        "B",
	})))

	rows, err := store.ReadAll(ctx, models.TableRawMaterial)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].ID)
	assert.Equal(t, "HDPE", rows[0].Get(models.ColMaterialType))
	assert.Equal(t, "", rows[0].Get(models.ColGrade))
	assert.NotEmpty(t, rows[1].ID)
	assert.Equal(t, "B", rows[1].Get(models.ColGrade))
}

func TestStore_AppendAfterMissingFinalNewline(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	header := strings.Join(models.MustSchema(models.TableDowntime).Header(), ",")
	content := header + "\n" + "e1,2024-01-01 10:00,A,auto,M001,2024-01-01 10:30,30,Leak,"
	require.NoError(t, os.WriteFile(store.Path(models.TableDowntime), []byte(content), 0o644))

	row := records.NewRow(map[string]string{
		models.ColDateTime:        "2024-01-01 11:00",
		models.ColShift:           "A",
		models.ColMachine:         "M002",
		models.ColDowntimeMinutes: "5",
		models.ColReason:          "Mould change",
	})
	require.NoError(t, store.Append(ctx, models.TableDowntime, row))

	rows, err := store.ReadAll(ctx, models.TableDowntime)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "e1", rows[0].ID)
	assert.Equal(t, "M001", rows[0].Get(models.ColMachine))
	assert.Equal(t, "", rows[0].Get(models.ColRemarks))
	assert.Equal(t, row.ID, rows[1].ID)
	assert.Equal(t, "M002", rows[1].Get(models.ColMachine))
	assert.Equal(t, "Mould change", rows[1].Get(models.ColReason))

	require.NoError(t, store.Append(ctx, models.TableDowntime, records.NewRow(map[string]string{models.ColMachine: "M003"})))
	rows, err = store.ReadAll(ctx, models.TableDowntime)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	for _, m := range []string{"M001", "M002", "M003"} {
		require.NoError(t, store.Append(ctx, models.TableOutput, outputRow(m, "1")))
	}
	rows, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, models.TableOutput, records.RowRef{Index: 0, ID: rows[0].ID}))

	left, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "M002", left[0].Get(models.ColMachine))
}

func TestStore_RemoveStaleAfterOtherWriter(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	for _, m := range []string{"M001", "M002"} {
		require.NoError(t, store.Append(ctx, models.TableOutput, outputRow(m, "1")))
	}
	snapshot, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)

	other, err := New(store.dir, nil)
	require.NoError(t, err)
	require.NoError(t, other.Remove(ctx, models.TableOutput, records.RowRef{Index: 0}))
	require.NoError(t, other.Append(ctx, models.TableOutput, outputRow("M003", "1")))

	err = store.Remove(ctx, models.TableOutput, records.RowRef{Index: 1, ID: snapshot[1].ID})
	var stale *records.StaleRowError
	require.True(t, errors.As(err, &stale), "got %v", err)

	rows, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "M002", rows[0].Get(models.ColMachine))
	assert.Equal(t, "M003", rows[1].Get(models.ColMachine))
}

func TestStore_RemoveFromMissingTableIsStale(t *testing.T) {
	store := newStore(t)

	err := store.Remove(context.Background(), models.TableDowntime, records.RowRef{Index: 0})
	var stale *records.StaleRowError
	assert.True(t, errors.As(err, &stale), "got %v", err)
}

func TestStore_CancelledContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Append(ctx, models.TableOutput, outputRow("M001", "1"))
	assert.ErrorIs(t, err, context.Canceled)
}
