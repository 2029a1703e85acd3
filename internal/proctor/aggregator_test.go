package proctor

import (
	"context"
	"testing"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/store"
)

func newTestAggregator(t *testing.T, limit int) (*Aggregator, *store.Store, model.Exam) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	exam, err := s.CreateExam(model.Exam{Name: "Watched Exam", Duration: 60})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	return New(s, limit), s, exam
}

func TestRecordValidation(t *testing.T) {
	agg, _, exam := newTestAggregator(t, 5)

	tests := []struct {
		name   string
		report model.ViolationReport
	}{
		{"missing exam", model.ViolationReport{Email: "a@b.c", Username: "A"}},
		{"missing email", model.ViolationReport{ExamID: exam.ExamID, Username: "A"}},
		{"missing username", model.ViolationReport{ExamID: exam.ExamID, Email: "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := agg.Record(context.Background(), tt.report); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRecordCancelledContext(t *testing.T) {
	agg, _, exam := newTestAggregator(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := agg.Record(ctx, model.ViolationReport{
		ExamID: exam.ExamID, Email: "s@example.com", Username: "S", TotalViolations: 1,
	}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRecordTerminateThreshold(t *testing.T) {
	agg, _, exam := newTestAggregator(t, 3)

	report := model.ViolationReport{
		ExamID: exam.ExamID, Email: "s@example.com", Username: "S",
		TotalViolations: 2, NoFaceCount: 2,
	}
	merged, err := agg.Record(context.Background(), report)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if merged.Terminate {
		t.Error("below the limit must not terminate")
	}

	report.TotalViolations = 3
	report.NoFaceCount = 3
	merged, err = agg.Record(context.Background(), report)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !merged.Terminate {
		t.Error("reaching the limit must terminate")
	}
	if merged.Log.TotalViolations != 3 {
		t.Errorf("merged total = %d, want 3", merged.Log.TotalViolations)
	}
}

func TestRecordUnlimitedWhenDisabled(t *testing.T) {
	agg, _, exam := newTestAggregator(t, 0)

	merged, err := agg.Record(context.Background(), model.ViolationReport{
		ExamID: exam.ExamID, Email: "s@example.com", Username: "S",
		TotalViolations: 100,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if merged.Terminate {
		t.Error("limit 0 disables termination")
	}
}

func TestListByExam(t *testing.T) {
	agg, _, exam := newTestAggregator(t, 5)

	if _, err := agg.ListByExam(""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for empty examID")
	}

	if _, err := agg.Record(context.Background(), model.ViolationReport{
		ExamID: exam.ExamID, Email: "s@example.com", Username: "S", TotalViolations: 1,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	logs, err := agg.ListByExam(exam.ExamID)
	if err != nil {
		t.Fatalf("ListByExam: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}
}
