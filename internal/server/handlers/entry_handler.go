package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/entry"
)

// EntryService is what the entry forms need.
type EntryService interface {
	Machines() []models.Machine
	Options() entry.Options
	Suggest(sub entry.Submission) entry.Suggestion
	Validate(sub entry.Submission) entry.Result
	Submit(ctx context.Context, sub entry.Submission) (entry.Receipt, error)
}

// EntryHandler serves the production entry forms.
type EntryHandler struct {
	svc    EntryService
	logger *zap.Logger
}

// NewEntryHandler constructs the HTTP handler adapter.
func NewEntryHandler(svc EntryService, logger *zap.Logger) *EntryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryHandler{svc: svc, logger: logger}
}

// Machines lists the machines a form may log against.
func (h *EntryHandler) Machines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"machines": h.svc.Machines()})
}

// Options describes the machines, shifts and table forms.
func (h *EntryHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Options())
}

// Validate reports the fields a form still lacks without writing anything.
func (h *EntryHandler) Validate(c *gin.Context) {
	var req models.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid validate payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result := h.svc.Validate(submission(req))
	missing := result.Missing
	if missing == nil {
		missing = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"accepted": result.Accepted(), "missing": missing})
}

// Suggest returns the values a form should be pre-filled with.
func (h *EntryHandler) Suggest(c *gin.Context) {
	var req models.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid suggest payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Suggest(submission(req)))
}

// Submit validates a form and writes it to every selected table.
func (h *EntryHandler) Submit(c *gin.Context) {
	var req models.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.svc.Submit(c.Request.Context(), submission(req))

	var invalid *entry.ValidationError
	var partial *entry.PartialCommitError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, receipt)
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "please fill in all required fields", "missing": invalid.Fields})
	case errors.As(err, &partial):
		c.JSON(http.StatusMultiStatus, gin.H{"error": partial.Error(), "failed": partial.Failed, "receipt": receipt})
	default:
		h.logger.Error("failed saving entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to save entry"})
	}
}

func submission(req models.EntryRequest) entry.Submission {
	return entry.Submission{
		Timestamp: req.Timestamp,
		ShiftMode: entry.ShiftMode(req.ShiftMode),
		Shift:     req.Shift,
		Machine:   req.Machine,
		Tables:    req.TableNames(),
		Fields:    req.FieldSet(),
	}
}
