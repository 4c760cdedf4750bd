// Package metrics counts submissions, table writes and deletions for
// Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultPartial  = "partial"
	ResultFailed   = "failed"
	ResultStale    = "stale"
	ResultNotFound = "not_found"
)

// Recorder receives operation outcomes.
type Recorder interface {
	Submission(result string)
	TableWrite(table, result string)
	Deletion(result string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Submission(string)         {}
func (Nop) TableWrite(string, string) {}
func (Nop) Deletion(string)           {}

// Prometheus is a Recorder backed by counters on a registry.
type Prometheus struct {
	submissions *prometheus.CounterVec
	writes      *prometheus.CounterVec
	deletions   *prometheus.CounterVec
}

// NewPrometheus creates the counters and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftlog",
			Name:      "submissions_total",
			Help:      "Production entry submissions by outcome.",
		}, []string{"result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftlog",
			Name:      "table_writes_total",
			Help:      "Rows appended per table by outcome.",
		}, []string{"table", "result"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftlog",
			Name:      "deletions_total",
			Help:      "Row deletions by outcome.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{p.submissions, p.writes, p.deletions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Submission(result string) {
	p.submissions.WithLabelValues(result).Inc()
}

func (p *Prometheus) TableWrite(table, result string) {
	p.writes.WithLabelValues(table, result).Inc()
}

func (p *Prometheus) Deletion(result string) {
	p.deletions.WithLabelValues(result).Inc()
}
