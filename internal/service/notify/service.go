// Package notify pushes closing shift reports to the plant manager over
// WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	client "github.com/mamadbah2/shiftlog/pkg/clients/whatsapp"
)

// ErrNoRecipient is returned when neither the request nor the configuration
// names a recipient.
var ErrNoRecipient = errors.New("no report recipient configured")

// Service sends shift reports through the WhatsApp Cloud API.
type Service struct {
	client    client.Client
	defaultTo string
	logger    *zap.Logger
}

// NewService wires a notifier sending to defaultTo unless told otherwise.
func NewService(c client.Client, defaultTo string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: c, defaultTo: strings.TrimSpace(defaultTo), logger: logger}
}

// SendShiftReport formats report and sends it to to, or to the configured
// recipient when to is blank. It returns the message id.
func (s *Service) SendShiftReport(ctx context.Context, report models.ShiftReport, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		to = s.defaultTo
	}
	if to == "" {
		return "", ErrNoRecipient
	}

	resp, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{To: to, Body: FormatShiftReport(report)})
	if err != nil {
		return "", fmt.Errorf("send shift report %s/%s: %w", report.Date, report.Shift, err)
	}

	id := resp.MessageID()
	s.logger.Info("shift report sent",
		zap.String("date", report.Date),
		zap.String("shift", report.Shift),
		zap.String("message_id", id))
	return id, nil
}

// FormatShiftReport renders report as a short chat message.
func FormatShiftReport(r models.ShiftReport) string {
	title := fmt.Sprintf("Shift %s report, %s", r.Shift, r.Date)
	if r.Empty() {
		return title + ": no entries logged."
	}

	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\nOutput: %s bottles, %s kg", num(r.OutputBottles), num(r.OutputKg))
	if r.TargetOutputKg > 0 {
		fmt.Fprintf(&b, " (target %s kg)", num(r.TargetOutputKg))
	}
	fmt.Fprintf(&b, "\nRaw material: %s kg", num(r.RawMaterialKg))
	fmt.Fprintf(&b, "\nMasterbatch: %s kg", num(r.MasterbatchKg))
	fmt.Fprintf(&b, "\nColour batches: %s", num(r.ColourBatches))
	fmt.Fprintf(&b, "\nRejection: %s bottles, %s kg (%.2f%%)", num(r.RejectionBottles), num(r.RejectionKg), r.RejectionRate)
	fmt.Fprintf(&b, "\nDowntime: %s min across %d stops", num(r.DowntimeMinutes), r.DowntimeEntries)
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
