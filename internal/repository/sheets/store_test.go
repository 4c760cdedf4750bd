package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

func fakeSheets(t *testing.T, handler http.HandlerFunc) *GoogleSheetStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return newStore(svc, "sheet-id", nil)
}

func TestGoogleSheetStore_ReadAll(t *testing.T) {
	store := fakeSheets(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/values/output") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"range": "output!A1:C3",
			"majorDimension": "ROWS",
			"values": [
				["Entry ID", "Machine", "Output (kg)"],
				["id-1", "M001", "2.5"],
				["id-2", "M002"]
			]
		}`))
	})

	rows, err := store.ReadAll(context.Background(), models.TableOutput)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id-1", rows[0].ID)
	assert.Equal(t, "2.5", rows[0].Get(models.ColOutputKg))
	assert.Equal(t, "M002", rows[1].Get(models.ColMachine))
	assert.False(t, rows[1].Has(models.ColOutputKg))
}

func TestGoogleSheetStore_MissingSheetReadsEmpty(t *testing.T) {
	store := fakeSheets(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Unable to parse range: downtime!A:ZZ"}}`))
	})

	rows, err := store.ReadAll(context.Background(), models.TableDowntime)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// spreadsheet is an in-memory stand-in for the Sheets API covering the calls
// the store makes.
type spreadsheet struct {
	mu      sync.Mutex
	nextID  int64
	ids     map[string]int64
	values  map[string][][]string
	batches []*sheetsapi.BatchUpdateSpreadsheetRequest
	headers map[string][]string
}

func newSpreadsheet() *spreadsheet {
	return &spreadsheet{
		nextID:  100,
		ids:     map[string]int64{},
		values:  map[string][][]string{},
		headers: map[string][]string{},
	}
}

func (f *spreadsheet) addSheet(title string, rows ...[]string) {
	f.nextID++
	f.ids[title] = f.nextID
	f.values[title] = rows
}

func (f *spreadsheet) handle(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		path := r.URL.Path
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
			var req sheetsapi.BatchUpdateSpreadsheetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.batches = append(f.batches, &req)
			f.writeJSON(t, w, f.applyBatch(&req))

		case strings.Contains(path, "/values/"):
			rng := path[strings.Index(path, "/values/")+len("/values/"):]
			rng = strings.TrimSuffix(rng, ":append")
			title, cells, _ := strings.Cut(rng, "!")
			switch r.Method {
			case http.MethodGet:
				if _, ok := f.ids[title]; !ok {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Unable to parse range"}}`))
					return
				}
				rows := f.values[title]
				if cells == "1:1" && len(rows) > 1 {
					rows = rows[:1]
				}
				f.writeJSON(t, w, map[string]any{"values": rows})
			case http.MethodPost:
				var vr sheetsapi.ValueRange
				require.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
				for _, row := range vr.Values {
					f.values[title] = append(f.values[title], fromCells(row))
				}
				f.writeJSON(t, w, map[string]any{})
			case http.MethodPut:
				var vr sheetsapi.ValueRange
				require.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
				header := fromCells(vr.Values[0])
				f.headers[title] = header
				if len(f.values[title]) == 0 {
					f.values[title] = [][]string{header}
				} else {
					f.values[title][0] = header
				}
				f.writeJSON(t, w, map[string]any{})
			}

		case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
			var sheets []map[string]any
			for title, id := range f.ids {
				sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title, "sheetId": id}})
			}
			f.writeJSON(t, w, map[string]any{"sheets": sheets})

		default:
			http.NotFound(w, r)
		}
	}
}

func (f *spreadsheet) applyBatch(req *sheetsapi.BatchUpdateSpreadsheetRequest) map[string]any {
	var replies []map[string]any
	for _, op := range req.Requests {
		switch {
		case op.AddSheet != nil:
			title := op.AddSheet.Properties.Title
			f.addSheet(title)
			replies = append(replies, map[string]any{"addSheet": map[string]any{
				"properties": map[string]any{"title": title, "sheetId": f.ids[title]},
			}})
		case op.DeleteDimension != nil:
			rng := op.DeleteDimension.Range
			for title, id := range f.ids {
				if id != rng.SheetId {
					continue
				}
				rows := f.values[title]
				f.values[title] = append(rows[:rng.StartIndex:rng.StartIndex], rows[rng.EndIndex:]...)
			}
			replies = append(replies, map[string]any{})
		}
	}
	return map[string]any{"replies": replies}
}

func (f *spreadsheet) writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGoogleSheetStore_AppendCreatesSheetAndHeader(t *testing.T) {
	ctx := context.Background()
	fake := newSpreadsheet()
	store := fakeSheets(t, fake.handle(t))

	first := records.NewRow(map[string]string{models.ColMachine: "M001", models.ColReason: "Leak", models.ColDowntimeMinutes: "30"})
	second := records.NewRow(map[string]string{models.ColMachine: "M002", models.ColReason: "Power"})
	require.NoError(t, store.Append(ctx, models.TableDowntime, first))
	require.NoError(t, store.Append(ctx, models.TableDowntime, second))

	require.Len(t, fake.batches, 1, "the sheet is added once")
	require.NotNil(t, fake.batches[0].Requests[0].AddSheet)
	assert.Equal(t, "downtime", fake.batches[0].Requests[0].AddSheet.Properties.Title)
	assert.Equal(t, models.MustSchema(models.TableDowntime).Header(), fake.headers["downtime"])

	rows, err := store.ReadAll(ctx, models.TableDowntime)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, "30", rows[0].Get(models.ColDowntimeMinutes))
	assert.Equal(t, second.ID, rows[1].ID)
	assert.Equal(t, "Power", rows[1].Get(models.ColReason))
}

func TestGoogleSheetStore_AppendMergesLegacyHeader(t *testing.T) {
	ctx := context.Background()
	fake := newSpreadsheet()
	legacy := []string{models.ColDateTime, models.ColMachine, models.ColMaterialType, models.ColKgUsed}
	fake.addSheet("raw_material", legacy, []string{"2024-01-01 10:00", "M001", "HDPE", "12.5"})
	store := fakeSheets(t, fake.handle(t))

	row := records.NewRow(map[string]string{models.ColMachine: "M002", models.ColMaterialType: "PP", models.ColKgUsed: "4", models.ColGrade: "B"})
	require.NoError(t, store.Append(ctx, models.TableRawMaterial, row))

	merged := records.MergeHeader(models.TableRawMaterial, legacy)
	assert.Equal(t, merged, fake.headers["raw_material"])
	assert.Empty(t, fake.batches, "existing sheet is reused")

	rows, err := store.ReadAll(ctx, models.TableRawMaterial)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "HDPE", rows[0].Get(models.ColMaterialType))
	assert.Equal(t, "B", rows[1].Get(models.ColGrade))
}

func TestGoogleSheetStore_RemoveSkipsHeaderRow(t *testing.T) {
	ctx := context.Background()
	fake := newSpreadsheet()
	fake.addSheet("output",
		[]string{models.ColEntryID, models.ColMachine},
		[]string{"id-1", "M001"},
		[]string{"id-2", "M002"},
		[]string{"id-3", "M003"},
	)
	sheetID := fake.ids["output"]
	store := fakeSheets(t, fake.handle(t))

	require.NoError(t, store.Remove(ctx, models.TableOutput, records.RowRef{Index: 1, ID: "id-2"}))

	require.Len(t, fake.batches, 1)
	del := fake.batches[0].Requests[0].DeleteDimension
	require.NotNil(t, del)
	assert.Equal(t, sheetID, del.Range.SheetId)
	assert.Equal(t, "ROWS", del.Range.Dimension)
	assert.Equal(t, int64(2), del.Range.StartIndex)
	assert.Equal(t, int64(3), del.Range.EndIndex)

	rows, err := store.ReadAll(ctx, models.TableOutput)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id-1", rows[0].ID)
	assert.Equal(t, "id-3", rows[1].ID)
}

func TestGoogleSheetStore_RemoveStaleRef(t *testing.T) {
	ctx := context.Background()
	fake := newSpreadsheet()
	fake.addSheet("output",
		[]string{models.ColEntryID, models.ColMachine},
		[]string{"id-1", "M001"},
		[]string{"id-3", "M003"},
	)
	store := fakeSheets(t, fake.handle(t))

	err := store.Remove(ctx, models.TableOutput, records.RowRef{Index: 1, ID: "id-2"})
	var stale *records.StaleRowError
	require.True(t, errors.As(err, &stale), "got %v", err)
	assert.Equal(t, "id-3", stale.Found)
	assert.Empty(t, fake.batches, "nothing is deleted for a stale ref")

	err = store.Remove(ctx, models.TableOutput, records.RowRef{Index: 5})
	require.True(t, errors.As(err, &stale), "got %v", err)
	assert.Empty(t, fake.batches)
}
