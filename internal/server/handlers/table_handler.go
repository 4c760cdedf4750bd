package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/deletion"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

const noEntries = "no entries"

// DeletionService locates and removes rows.
type DeletionService interface {
	Rows(ctx context.Context, table models.TableName) ([]deletion.Candidate, error)
	Dates(ctx context.Context, table models.TableName) ([]string, error)
	Machines(ctx context.Context, table models.TableName, date string, label shift.Label) ([]string, error)
	Candidates(ctx context.Context, table models.TableName, filter deletion.Filter) ([]deletion.Candidate, error)
	Delete(ctx context.Context, table models.TableName, ref records.RowRef) error
}

// TableHandler browses tables and deletes single rows.
type TableHandler struct {
	svc    DeletionService
	logger *zap.Logger
}

// NewTableHandler constructs the HTTP handler adapter.
func NewTableHandler(svc DeletionService, logger *zap.Logger) *TableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableHandler{svc: svc, logger: logger}
}

// Rows returns the full table with each row's index and entry id.
func (h *TableHandler) Rows(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	rows, err := h.svc.Rows(c.Request.Context(), table)
	if err != nil {
		h.fail(c, err)
		return
	}
	schema := models.MustSchema(table)
	c.JSON(http.StatusOK, gin.H{
		"table":   table,
		"title":   schema.Title,
		"version": schema.Version,
		"header":  schema.Header(),
		"rows":    rows,
	})
}

// Dates lists the dates present in the table.
func (h *TableHandler) Dates(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	dates, err := h.svc.Dates(c.Request.Context(), table)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, narrowed(gin.H{"dates": dates}, len(dates)))
}

// Machines lists the machines logged on a date and shift.
func (h *TableHandler) Machines(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	date := c.Query("date")
	label, err := shift.ParseLabel(c.Query("shift"))
	if date == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date and shift (A or B) are required"})
		return
	}
	machines, err := h.svc.Machines(c.Request.Context(), table, date, label)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, narrowed(gin.H{"machines": machines}, len(machines)))
}

// Candidates lists the rows matching date, shift and machine.
func (h *TableHandler) Candidates(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	filter := deletion.Filter{Date: c.Query("date"), Machine: c.Query("machine")}
	if raw := c.Query("shift"); raw != "" {
		label, err := shift.ParseLabel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Shift = label
	}
	rows, err := h.svc.Candidates(c.Request.Context(), table, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, narrowed(gin.H{"rows": rows}, len(rows)))
}

// Delete removes one row. The id query parameter guards against deleting a
// row that moved since the caller read the table.
func (h *TableHandler) Delete(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row index must be an integer"})
		return
	}

	err = h.svc.Delete(c.Request.Context(), table, records.RowRef{Index: index, ID: c.Query("id")})
	var stale *records.StaleRowError
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{"error": stale.Error()})
	default:
		h.fail(c, err)
	}
}

func (h *TableHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, models.ErrUnknownTable) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("table request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to access table"})
}

func narrowed(body gin.H, n int) gin.H {
	if n == 0 {
		body["message"] = noEntries
	}
	return body
}
