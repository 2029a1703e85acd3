package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/proctor/internal/model"
)

// ExportExam builds an export-ready snapshot of one exam: every result with
// its subjective and coding details, plus the integrity logs.
func (s *Store) ExportExam(examID string) (model.ExamExport, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return model.ExamExport{}, err
	}

	details, err := s.ExamReport(examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("exam report: %w", err)
	}

	var results []model.ResultExport
	for _, d := range details {
		results = append(results, model.ResultExport{
			StudentName:  d.StudentName,
			StudentEmail: d.StudentEmail,
			TotalMarks:   d.TotalMarks,
			Percentage:   d.Percentage,
			Flagged:      d.Flagged,
			SubmittedAt:  d.CreatedAt,
			Subjective:   d.SubjectiveResponses,
			Coding:       d.CodingSubmissions,
		})
	}

	logs, err := s.ListCheatingLogs(examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("list cheating logs: %w", err)
	}

	return model.ExamExport{
		ExamID:     exam.ExamID,
		ExamName:   exam.Name,
		ExportedAt: time.Now(),
		NumResults: len(results),
		Results:    results,
		Integrity:  logs,
	}, nil
}
