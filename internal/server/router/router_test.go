package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/metrics"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/server/handlers"
	"github.com/mamadbah2/shiftlog/internal/service/deletion"
	"github.com/mamadbah2/shiftlog/internal/service/entry"
	"github.com/mamadbah2/shiftlog/internal/service/reporting"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

type brokenStore struct {
	*records.MemoryStore
	table models.TableName
}

func (s *brokenStore) Append(ctx context.Context, table models.TableName, row records.Row) error {
	if table == s.table {
		return &records.StoreIOError{Op: "append", Table: table, Err: errors.New("read-only file system")}
	}
	return s.MemoryStore.Append(ctx, table, row)
}

type fakeArchive struct{}

func (fakeArchive) ListShiftReports(_ context.Context, month string) ([]models.ShiftReport, error) {
	return []models.ShiftReport{{Date: month + "-01", Shift: "A", Month: month}}, nil
}

type fakeNotifier struct{ to []string }

func (f *fakeNotifier) SendShiftReport(_ context.Context, _ models.ShiftReport, to string) (string, error) {
	f.to = append(f.to, to)
	return "wamid.1", nil
}

type stack struct {
	engine http.Handler
	store  records.Store
}

func newStack(t *testing.T, store records.Store, archive handlers.ReportArchive, notifier handlers.ReportNotifier) stack {
	t.Helper()
	roster, err := models.NewRoster(models.DefaultMachines)
	require.NoError(t, err)
	parser := shift.NewParser(time.UTC)
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg)
	require.NoError(t, err)
	log := zap.NewNop()

	h := Handlers{
		Entries: handlers.NewEntryHandler(entry.NewService(store, roster, parser, rec, log), log),
		Tables:  handlers.NewTableHandler(deletion.NewService(store, parser, rec, log), log),
		Reports: handlers.NewReportHandler(reporting.NewService(store, roster, parser, log), archive, notifier, log),
	}
	return stack{engine: New(h, reg, log), store: store}
}

func (s stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func outputEntry(ts, machine string, bottles float64) map[string]any {
	return map[string]any{
		"timestamp": ts,
		"machine":   machine,
		"tables":    []string{"output", "rejection"},
		"fields": map[string]any{
			"bottle_weight_g":   25,
			"output_bottles":    bottles,
			"rejection_bottles": 4,
			"rejection_reason":  "Short shot",
		},
	}
}

func TestHealthAndMachines(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/machines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Machines []models.Machine `json:"machines"`
	}
	decode(t, w, &body)
	assert.Equal(t, models.DefaultMachines, body.Machines)
}

func TestOptions(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	w := s.do(t, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var opts entry.Options
	decode(t, w, &opts)

	assert.Equal(t, models.DefaultMachines, opts.Machines)
	assert.Equal(t, []shift.Label{shift.A, shift.B}, opts.Shifts)
	require.Len(t, opts.Tables, len(models.Tables))
	assert.Equal(t, models.TableOutput, opts.Tables[0].Table)

	raw := opts.Tables[1]
	require.Equal(t, models.TableRawMaterial, raw.Table)
	assert.Equal(t, "Raw Material", raw.Title)
	assert.Equal(t, models.ColMaterialType, raw.Fields[0].Column)
	assert.True(t, raw.Fields[0].Required)
	assert.Equal(t, []string{"HDPE", "PP", "Others"}, raw.Fields[0].Choices)
	assert.False(t, raw.Fields[1].Required, "grade is optional")

	downtime := opts.Tables[5]
	var reason entry.FieldOption
	for _, f := range downtime.Fields {
		if f.Field == models.FieldDowntimeReason {
			reason = f
		}
	}
	assert.Contains(t, reason.Choices, "Mould change")
}

func TestValidateEntry(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	w := s.do(t, http.MethodPost, "/api/entries/validate", outputEntry("2024-01-01 09:30", "M001", 100))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accepted":true,"missing":[]}`, w.Body.String())

	incomplete := outputEntry("2024-01-01 09:30", "M001", 100)
	delete(incomplete["fields"].(map[string]any), "rejection_reason")
	w = s.do(t, http.MethodPost, "/api/entries/validate", incomplete)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accepted":false,"missing":["Rejection Reason"]}`, w.Body.String())

	rows, err := s.store.ReadAll(context.Background(), models.TableOutput)
	require.NoError(t, err)
	assert.Empty(t, rows, "validation never writes")
}

func TestSubmitEntry(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	w := s.do(t, http.MethodPost, "/api/entries", outputEntry("2024-01-01 09:30", "M001", 100))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var receipt entry.Receipt
	decode(t, w, &receipt)
	assert.Equal(t, shift.A, receipt.Classification.Shift)
	require.Len(t, receipt.Results, 2)
	assert.NotEmpty(t, receipt.Results[0].EntryID)

	rows, err := s.store.ReadAll(context.Background(), models.TableOutput)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2.5", rows[0].Get(models.ColOutputKg))

	w = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shiftlog_submissions_total{result="ok"} 1`)
}

func TestSubmitEntry_Invalid(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)
	body := map[string]any{
		"timestamp": "2024-01-01 09:30",
		"machine":   "M001",
		"tables":    []string{"output", "raw_material"},
		"fields":    map[string]any{"bottle_weight_g": 0, "output_bottles": 10, "output_kg": 1, "material_type": "", "material_kg_used": 1},
	}

	w := s.do(t, http.MethodPost, "/api/entries", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Missing []string `json:"missing"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{models.ColBottleWeight, models.ColMaterialType}, resp.Missing)

	w = s.do(t, http.MethodPost, "/api/entries", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEntry_Partial(t *testing.T) {
	s := newStack(t, &brokenStore{MemoryStore: records.NewMemoryStore(), table: models.TableRejection}, nil, nil)

	w := s.do(t, http.MethodPost, "/api/entries", outputEntry("2024-01-01 09:30", "M001", 100))
	require.Equal(t, http.StatusMultiStatus, w.Code)

	var resp struct {
		Failed []models.TableName `json:"failed"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []models.TableName{models.TableRejection}, resp.Failed)
}

func TestSuggest(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	w := s.do(t, http.MethodPost, "/api/entries/suggest", map[string]any{
		"timestamp": "2024-01-01 22:00",
		"fields":    map[string]any{"bottle_weight_g": 25, "output_bottles": 100},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got entry.Suggestion
	decode(t, w, &got)
	require.NotNil(t, got.OutputKg)
	assert.Equal(t, 2.5, *got.OutputKg)
	require.NotNil(t, got.Classification)
	assert.Equal(t, shift.B, got.Classification.Shift)
}

func TestDeleteFlow(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)
	for _, e := range []map[string]any{
		outputEntry("2024-01-01 09:00", "M001", 10),
		outputEntry("2024-01-01 09:00", "M002", 20),
		outputEntry("2024-01-01 21:00", "M001", 30),
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/entries", e).Code)
	}

	w := s.do(t, http.MethodGet, "/api/tables/output/dates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dates":["2024-01-01"]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/tables/output/machines?date=2024-01-01&shift=A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"machines":["M001","M002"]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/tables/output/machines?date=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/tables/output/candidates?date=2024-01-01&shift=A&machine=M002", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Rows []deletion.Candidate `json:"rows"`
	}
	decode(t, w, &found)
	require.Len(t, found.Rows, 1)
	target := found.Rows[0]
	assert.Equal(t, 1, target.Index)

	w = s.do(t, http.MethodDelete, "/api/tables/output/rows/1?id=not-the-row", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/tables/output/rows/1?id="+target.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/tables/output/candidates?date=2024-01-01&shift=A&machine=M002", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rows":[],"message":"no entries"}`, w.Body.String())

	rows, _ := s.store.ReadAll(context.Background(), models.TableRejection)
	assert.Len(t, rows, 3, "deletion does not cascade")

	w = s.do(t, http.MethodGet, "/api/tables/output/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Title   string               `json:"title"`
		Version int                  `json:"version"`
		Header  []string             `json:"header"`
		Rows    []deletion.Candidate `json:"rows"`
	}
	decode(t, w, &all)
	assert.Equal(t, "Output", all.Title)
	assert.Equal(t, models.MustSchema(models.TableOutput).Version, all.Version)
	assert.Equal(t, models.MustSchema(models.TableOutput).Header(), all.Header)
	require.Len(t, all.Rows, 2)
	assert.Equal(t, "M001", all.Rows[1].Values[models.ColMachine])

	w = s.do(t, http.MethodDelete, "/api/tables/output/rows/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownTable(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)

	for _, path := range []string{"/api/tables/scrap/rows", "/api/summary/scrap/shift", "/api/export/scrap/shift.csv"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestSummariesAndExports(t *testing.T) {
	s := newStack(t, records.NewMemoryStore(), nil, nil)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/entries", outputEntry("2024-01-01 09:00", "M001", 400)).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/entries", outputEntry("2024-01-01 10:00", "M002", 200)).Code)

	w := s.do(t, http.MethodGet, "/api/summary/output/shift", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Summary []reporting.ShiftSummary `json:"summary"`
	}
	decode(t, w, &summary)
	require.Len(t, summary.Summary, 1)
	assert.Equal(t, 600.0, summary.Summary[0].Measures[models.ColOutputBottles])
	assert.Equal(t, 15.0, summary.Summary[0].Measures[models.ColOutputKg])

	w = s.do(t, http.MethodGet, "/api/summary/output/monthly", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"month":"2024-01"`)

	w = s.do(t, http.MethodGet, "/api/export/output/shift.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="shift_output.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Shift,Output (bottles),Output (kg),Target Output (kg)\n2024-01-01,A,600,15,0\n"), w.Body.String())

	w = s.do(t, http.MethodGet, "/api/export/rejection/monthly.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="monthly_rejection.csv"`, w.Header().Get("Content-Disposition"))

	w = s.do(t, http.MethodGet, "/api/export/output/summary.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="summary_output.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	w = s.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d reporting.Dashboard
	decode(t, w, &d)
	assert.Equal(t, 600.0, d.OutputBottles)
	assert.Equal(t, 0.2, d.RejectionKg)

	w = s.do(t, http.MethodGet, "/api/reports/shift?date=2024-01-01&shift=A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.ShiftReport
	decode(t, w, &report)
	assert.Equal(t, 15.0, report.OutputKg)
	assert.Equal(t, 8.0, report.RejectionBottles)

	w = s.do(t, http.MethodGet, "/api/reports/shift?date=yesterday&shift=A", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptionalReportRoutes(t *testing.T) {
	disabled := newStack(t, records.NewMemoryStore(), nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(t, http.MethodGet, "/api/reports/archive?month=2024-01", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(t, http.MethodPost, "/api/reports/send", models.SendReportRequest{Date: "2024-01-01", Shift: "A"}).Code)

	notifier := &fakeNotifier{}
	enabled := newStack(t, records.NewMemoryStore(), fakeArchive{}, notifier)

	w := enabled.do(t, http.MethodGet, "/api/reports/archive?month=2024-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"date":"2024-01-01"`)
	assert.Equal(t, http.StatusBadRequest, enabled.do(t, http.MethodGet, "/api/reports/archive?month=jan", nil).Code)

	w = enabled.do(t, http.MethodPost, "/api/reports/send", models.SendReportRequest{Date: "2024-01-01", Shift: "B", To: "2246000000"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"message_id":"wamid.1"}`, w.Body.String())
	assert.Equal(t, []string{"2246000000"}, notifier.to)

	w = enabled.do(t, http.MethodPost, "/api/reports/send", models.SendReportRequest{Date: "2024-01-01", Shift: "C"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
