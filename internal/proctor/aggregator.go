// Package proctor maintains per-attempt integrity records built from
// client-side violation reports.
package proctor

import (
	"context"
	"log/slog"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/store"
)

// Aggregator merges violation reports into cheating logs and decides when an
// attempt has exhausted its violation allowance.
type Aggregator struct {
	store         *store.Store
	maxViolations int
}

// New creates an aggregator. maxViolations <= 0 disables termination hints.
func New(s *store.Store, maxViolations int) *Aggregator {
	return &Aggregator{store: s, maxViolations: maxViolations}
}

// Report is the merged state of an attempt's log plus the server's verdict on
// whether the exam session should be terminated.
type Report struct {
	Log       model.CheatingLog `json:"log"`
	Terminate bool              `json:"terminate"`
}

// Record merges one violation report into the stored log and returns the
// merged state. Counters never decrease across merges and screenshots
// accumulate as a set, so clients may re-send their full state safely.
func (a *Aggregator) Record(ctx context.Context, r model.ViolationReport) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if r.ExamID == "" || r.Email == "" || r.Username == "" {
		return Report{}, apperr.Validation("please provide examId, email and username")
	}

	log, err := a.store.UpsertCheatingLog(r)
	if err != nil {
		return Report{}, err
	}

	terminate := a.maxViolations > 0 && log.TotalViolations >= a.maxViolations
	if terminate {
		slog.Warn("violation limit reached", "exam_id", r.ExamID, "email", r.Email,
			"violations", log.TotalViolations, "limit", a.maxViolations)
	}
	return Report{Log: log, Terminate: terminate}, nil
}

// ListByExam returns every cheating log recorded for an exam.
func (a *Aggregator) ListByExam(examID string) ([]model.CheatingLog, error) {
	if examID == "" {
		return nil, apperr.Validation("please provide examId")
	}
	return a.store.ListCheatingLogs(examID)
}
