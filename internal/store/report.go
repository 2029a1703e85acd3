package store

import (
	"fmt"

	"github.com/pavelanni/proctor/internal/model"
)

// detail joins one result with the owning student's identity, coding
// submissions for that exam, and subjective responses.
func (s *Store) detail(r model.Result) (model.ResultDetail, error) {
	d := model.ResultDetail{Result: r}

	user, err := s.GetUserByID(r.UserID)
	if err != nil {
		return d, fmt.Errorf("get user %d: %w", r.UserID, err)
	}
	if user != nil {
		d.StudentName = user.DisplayName
		d.StudentEmail = user.Email
	}

	if d.CodingSubmissions, err = s.ListCodingDetails(r.ExamID, r.UserID); err != nil {
		return d, fmt.Errorf("list coding submissions: %w", err)
	}
	if d.SubjectiveResponses, err = s.ListSubjectiveResponses(r.ExamID, d.StudentEmail); err != nil {
		return d, fmt.Errorf("list subjective responses: %w", err)
	}
	return d, nil
}

func (s *Store) details(results []model.Result) ([]model.ResultDetail, error) {
	var out []model.ResultDetail
	for _, r := range results {
		d, err := s.detail(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ExamReport returns the joined result views for one exam, newest first.
func (s *Store) ExamReport(examID string) ([]model.ResultDetail, error) {
	results, err := s.ListResultsByExam(examID)
	if err != nil {
		return nil, err
	}
	return s.details(results)
}

// UserReport returns the caller's visible results with details, newest first.
func (s *Store) UserReport(userID int64) ([]model.ResultDetail, error) {
	results, err := s.ListResultsByUser(userID)
	if err != nil {
		return nil, err
	}
	return s.details(results)
}

// AllReports returns every result with details, newest first.
func (s *Store) AllReports() ([]model.ResultDetail, error) {
	results, err := s.ListAllResults()
	if err != nil {
		return nil, err
	}
	return s.details(results)
}
