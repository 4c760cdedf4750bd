package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/notify"
	"github.com/mamadbah2/shiftlog/internal/service/reporting"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportService produces summaries and exports.
type ReportService interface {
	ShiftSummary(ctx context.Context, table models.TableName) ([]reporting.ShiftSummary, error)
	MonthlySummary(ctx context.Context, table models.TableName) ([]reporting.MonthlySummary, error)
	Dashboard(ctx context.Context) (reporting.Dashboard, error)
	ShiftReport(ctx context.Context, date string, label shift.Label) (models.ShiftReport, error)
	ExportShiftCSV(ctx context.Context, table models.TableName, w io.Writer) error
	ExportMonthlyCSV(ctx context.Context, table models.TableName, w io.Writer) error
	ExportWorkbook(ctx context.Context, table models.TableName, w io.Writer) error
}

// ReportArchive lists archived shift reports.
type ReportArchive interface {
	ListShiftReports(ctx context.Context, month string) ([]models.ShiftReport, error)
}

// ReportNotifier sends a shift report.
type ReportNotifier interface {
	SendShiftReport(ctx context.Context, report models.ShiftReport, to string) (string, error)
}

// ReportHandler serves summaries, exports and shift reports. The archive and
// notifier are optional; their routes answer 503 when they are missing.
type ReportHandler struct {
	svc      ReportService
	archive  ReportArchive
	notifier ReportNotifier
	logger   *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc ReportService, archive ReportArchive, notifier ReportNotifier, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, archive: archive, notifier: notifier, logger: logger}
}

// ShiftSummary returns the per date and shift totals of a table.
func (h *ReportHandler) ShiftSummary(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	summaries, err := h.svc.ShiftSummary(c.Request.Context(), table)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "measures": models.MustSchema(table).Measures, "summary": summaries})
}

// MonthlySummary returns the per month totals of a table.
func (h *ReportHandler) MonthlySummary(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	summaries, err := h.svc.MonthlySummary(c.Request.Context(), table)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "measures": models.MustSchema(table).Measures, "summary": summaries})
}

// ExportShiftCSV downloads shift_<table>.csv.
func (h *ReportHandler) ExportShiftCSV(c *gin.Context) {
	h.export(c, reporting.ShiftCSVName, csvContentType, h.svc.ExportShiftCSV)
}

// ExportMonthlyCSV downloads monthly_<table>.csv.
func (h *ReportHandler) ExportMonthlyCSV(c *gin.Context) {
	h.export(c, reporting.MonthlyCSVName, csvContentType, h.svc.ExportMonthlyCSV)
}

// ExportWorkbook downloads summary_<table>.xlsx.
func (h *ReportHandler) ExportWorkbook(c *gin.Context) {
	h.export(c, reporting.WorkbookName, xlsxContentType, h.svc.ExportWorkbook)
}

func (h *ReportHandler) export(
	c *gin.Context,
	name func(models.TableName) string,
	contentType string,
	write func(context.Context, models.TableName, io.Writer) error,
) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := write(c.Request.Context(), table, &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name(table)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Dashboard returns the all-time line totals.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ShiftReport builds the live report of the shift run that started on date.
func (h *ReportHandler) ShiftReport(c *gin.Context) {
	date, label, ok := shiftQuery(c, c.Query("date"), c.Query("shift"))
	if !ok {
		return
	}
	report, err := h.svc.ShiftReport(c.Request.Context(), date, label)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Archive lists the archived reports of a month.
func (h *ReportHandler) Archive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report archive is not configured"})
		return
	}
	month := c.Query("month")
	if _, err := time.Parse(shift.MonthLayout, month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must look like 2006-01"})
		return
	}
	reports, err := h.archive.ListShiftReports(c.Request.Context(), month)
	if err != nil {
		h.logger.Error("failed listing archived reports", zap.String("month", month), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to read report archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": month, "reports": reports})
}

// SendReport pushes the report of one shift to a recipient.
func (h *ReportHandler) SendReport(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications are not configured"})
		return
	}
	var req models.SendReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send report payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	date, label, ok := shiftQuery(c, req.Date, req.Shift)
	if !ok {
		return
	}

	report, err := h.svc.ShiftReport(c.Request.Context(), date, label)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.notifier.SendShiftReport(c.Request.Context(), report, req.To)
	if err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed sending shift report", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send report"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message_id": id})
}

func (h *ReportHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, models.ErrUnknownTable) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("report request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build report"})
}

func shiftQuery(c *gin.Context, date, rawShift string) (string, shift.Label, bool) {
	if _, err := time.Parse(shift.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must look like 2006-01-02"})
		return "", "", false
	}
	label, err := shift.ParseLabel(rawShift)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", "", false
	}
	return date, label, true
}
