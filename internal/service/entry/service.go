// Package entry turns filled-in production forms into table rows: it
// suggests derived values, validates the submission and fans the event out
// into the per concern tables.
package entry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/metrics"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// PartialCommitError reports a submission where some tables were written and
// others were not. The written rows are kept; the operator retries the rest.
type PartialCommitError struct {
	Failed []models.TableName
}

func (e *PartialCommitError) Error() string {
	names := make([]string, len(e.Failed))
	for i, t := range e.Failed {
		names[i] = string(t)
	}
	return fmt.Sprintf("tables not written: %s", strings.Join(names, ", "))
}

// Receipt describes a committed submission.
type Receipt struct {
	Timestamp      string               `json:"timestamp"`
	Machine        string               `json:"machine"`
	Classification shift.Classification `json:"classification"`
	CommitReport
}

// Suggestion pre-populates a form.
type Suggestion struct {
	Timestamp      string                `json:"timestamp"`
	Classification *shift.Classification `json:"classification,omitempty"`
	Suggestions
}

// Service handles production form submissions.
type Service struct {
	roster    *models.Roster
	parser    *shift.Parser
	validator *Validator
	writer    *Writer
	metrics   metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a submission service over store.
func NewService(store records.Store, roster *models.Roster, parser *shift.Parser, rec metrics.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		roster:    roster,
		parser:    parser,
		validator: NewValidator(roster, parser),
		writer:    NewWriter(store, parser, rec, logger.Named("writer")),
		metrics:   rec,
		logger:    logger,
		now:       time.Now,
	}
}

// Machines returns the machines operators may log against.
func (s *Service) Machines() []models.Machine {
	return s.roster.Machines()
}

// Suggest returns the values a form should be pre-filled with: the current
// time when no timestamp was typed, its shift, and every derived quantity
// the entered fields allow.
func (s *Service) Suggest(sub Submission) Suggestion {
	out := Suggestion{Timestamp: strings.TrimSpace(sub.Timestamp)}
	if out.Timestamp == "" {
		out.Timestamp = s.parser.Format(s.parser.Now(s.now))
	}

	start, err := s.parser.Parse(out.Timestamp)
	if err == nil {
		c := shift.Classify(start)
		if sub.mode() == ShiftManual {
			if manual, err := shift.ClassifyManual(start, sub.Shift); err == nil {
				c = manual
			}
		}
		out.Classification = &c
	}

	out.Suggestions = suggest(sub.fields(), start, err == nil, s.parser)
	return out
}

// Validate fills in derived values the operator left out and checks the
// result.
func (s *Service) Validate(sub Submission) Result {
	sub.Fields = s.derived(sub)
	return s.validator.Validate(sub)
}

// Submit validates sub and, when accepted, writes one row to every selected
// table. A rejected submission writes nothing and returns *ValidationError.
// When only some tables could be written the receipt lists each outcome and
// the error is *PartialCommitError.
func (s *Service) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	sub.Fields = s.derived(sub)

	result := s.validator.Validate(sub)
	if !result.Accepted() {
		s.metrics.Submission(metrics.ResultInvalid)
		s.logger.Info("submission rejected", zap.Strings("fields", result.Missing))
		return Receipt{}, &ValidationError{Fields: result.Missing}
	}

	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	event, err := s.event(sub)
	if err != nil {
		return Receipt{}, err
	}

	report := s.writer.Commit(ctx, event, sub.Fields, sub.Tables)
	receipt := Receipt{
		Timestamp:      s.parser.Format(event.Timestamp),
		Machine:        event.Machine,
		Classification: event.Classification,
		CommitReport:   report,
	}

	failed := report.Failed()
	switch {
	case len(failed) == 0:
		s.metrics.Submission(metrics.ResultOK)
		s.logger.Info("submission saved",
			zap.String("machine", event.Machine),
			zap.String("date", event.Classification.Date),
			zap.String("shift", string(event.Classification.Shift)),
			zap.Int("tables", len(report.Results)))
		return receipt, nil
	case len(failed) == len(report.Results):
		s.metrics.Submission(metrics.ResultFailed)
	default:
		s.metrics.Submission(metrics.ResultPartial)
	}
	s.logger.Warn("submission incomplete", zap.Int("failed", len(failed)), zap.Int("tables", len(report.Results)))
	return receipt, &PartialCommitError{Failed: failed}
}

func (s *Service) derived(sub Submission) models.FieldSet {
	start, err := s.parser.Parse(sub.Timestamp)
	return withDerived(sub.fields(), suggest(sub.fields(), start, err == nil, s.parser))
}

func (s *Service) event(sub Submission) (Event, error) {
	ts, err := s.parser.Parse(sub.Timestamp)
	if err != nil {
		return Event{}, err
	}
	c := shift.Classify(ts)
	if sub.mode() == ShiftManual {
		if c, err = shift.ClassifyManual(ts, sub.Shift); err != nil {
			return Event{}, err
		}
	}
	return Event{Timestamp: ts, Classification: c, Machine: strings.TrimSpace(sub.Machine)}, nil
}

func (s Submission) fields() models.FieldSet {
	if s.Fields == nil {
		return models.FieldSet{}
	}
	return s.Fields
}
