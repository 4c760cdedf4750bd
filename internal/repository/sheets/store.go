// Package sheets keeps each production table in its own sheet of a Google
// Sheets spreadsheet. Row 1 of every sheet is the header.
package sheets

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

// GoogleSheetStore implements records.Store using the official Google Sheets API.
type GoogleSheetStore struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger

	mu       sync.Mutex
	sheetIDs map[models.TableName]int64
}

// NewGoogleSheetStore builds a Google Sheets backed store instance.
func NewGoogleSheetStore(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetStore, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newStore(service, cfg.SpreadsheetID, logger), nil
}

func newStore(service *sheetsapi.Service, spreadsheetID string, logger *zap.Logger) *GoogleSheetStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleSheetStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		sheetIDs:      make(map[models.TableName]int64),
	}
}

// ReadAll fetches every data row of the table's sheet. A missing sheet or a
// failed read is logged and treated as an empty table.
func (s *GoogleSheetStore) ReadAll(ctx context.Context, table models.TableName) ([]records.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rows, err := s.readTable(ctx, table)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("sheet unreadable, treating as empty", zap.String("table", string(table)), zap.Error(err))
		return []records.Row{}, nil
	}
	return rows, nil
}

// Append adds row below the last row of the table's sheet, creating the sheet
// and its header on first use.
func (s *GoogleSheetStore) Append(ctx context.Context, table models.TableName, row records.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ensureSheet(ctx, table); err != nil {
		return &records.StoreIOError{Op: "append", Table: table, Err: err}
	}

	header, err := s.readHeader(ctx, table)
	if err != nil {
		return &records.StoreIOError{Op: "append", Table: table, Err: err}
	}
	merged := records.MergeHeader(table, header)
	if !records.SameHeader(header, merged) {
		if err := s.writeHeader(ctx, table, merged); err != nil {
			return &records.StoreIOError{Op: "append", Table: table, Err: err}
		}
	}

	row = records.EnsureID(row)
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(records.Encode(merged, row))}}
	call := s.service.Spreadsheets.Values.Append(s.spreadsheetID, fullRange(table), payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return &records.StoreIOError{Op: "append", Table: table, Err: fmt.Errorf("append row into range %s: %w", fullRange(table), err)}
	}

	s.logger.Debug("row appended to sheet", zap.String("table", string(table)), zap.String("entry_id", row.ID))
	return nil
}

// Remove deletes the sheet row ref points at.
func (s *GoogleSheetStore) Remove(ctx context.Context, table models.TableName, ref records.RowRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rows, err := s.readTable(ctx, table)
	if err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	if err := records.CheckRef(table, rows, ref); err != nil {
		return err
	}

	sheetID, err := s.ensureSheet(ctx, table)
	if err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}

	// Data row i lives on sheet row i+1 (zero based) because of the header.
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: []*sheetsapi.Request{{
		DeleteDimension: &sheetsapi.DeleteDimensionRequest{Range: &sheetsapi.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(ref.Index + 1),
			EndIndex:   int64(ref.Index + 2),
		}},
	}}}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: fmt.Errorf("delete sheet row: %w", err)}
	}
	return nil
}

func (s *GoogleSheetStore) readTable(ctx context.Context, table models.TableName) ([]string, []records.Row, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, fullRange(table)).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("read range %s: %w", fullRange(table), err)
	}
	if len(resp.Values) == 0 {
		return nil, []records.Row{}, nil
	}
	header := fromCells(resp.Values[0])
	rows := make([]records.Row, 0, len(resp.Values)-1)
	for _, cells := range resp.Values[1:] {
		rows = append(rows, records.Decode(header, fromCells(cells)))
	}
	return header, rows, nil
}

func (s *GoogleSheetStore) readHeader(ctx context.Context, table models.TableName) ([]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, string(table)+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", table, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return fromCells(resp.Values[0]), nil
}

func (s *GoogleSheetStore) writeHeader(ctx context.Context, table models.TableName, header []string) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, string(table)+"!A1", payload).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", table, err)
	}
	return nil
}

// ensureSheet returns the numeric sheet id of table, adding the sheet when
// the spreadsheet does not have one yet.
func (s *GoogleSheetStore) ensureSheet(ctx context.Context, table models.TableName) (int64, error) {
	if id, ok := s.sheetIDs[table]; ok {
		return id, nil
	}

	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("load spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == string(table) {
			s.sheetIDs[table] = sheet.Properties.SheetId
			return sheet.Properties.SheetId, nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: []*sheetsapi.Request{{
		AddSheet: &sheetsapi.AddSheetRequest{Properties: &sheetsapi.SheetProperties{Title: string(table)}},
	}}}
	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", table, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", table)
	}
	id := resp.Replies[0].AddSheet.Properties.SheetId
	s.sheetIDs[table] = id
	s.logger.Info("sheet created", zap.String("table", string(table)), zap.Int64("sheet_id", id))
	return id, nil
}

func fullRange(table models.TableName) string {
	return string(table) + "!A:ZZ"
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func fromCells(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}
