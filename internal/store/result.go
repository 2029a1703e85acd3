package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

// CreateResult persists a scored submission. The UNIQUE (exam_id, user_id)
// constraint is the duplicate-submission guard: two racing submissions can
// both pass any earlier existence check, but only one insert wins.
func (s *Store) CreateResult(r model.Result) (model.Result, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return r, err
	}
	r.CreatedAt = time.Now()
	res, err := s.db.Exec(
		`INSERT INTO results (exam_id, user_id, answers, total_marks, percentage, show_to_student, flagged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ExamID, r.UserID, string(answers), r.TotalMarks, r.Percentage, r.ShowToStudent, r.Flagged, r.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r, apperr.Duplicate("you have already submitted this exam")
		}
		return r, err
	}
	r.ID, err = res.LastInsertId()
	return r, err
}

// HasResult reports whether a result exists for the given attempt. Used as a
// friendly pre-check only; CreateResult is the authoritative guard.
func (s *Store) HasResult(examID string, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM results WHERE exam_id = ? AND user_id = ?`, examID, userID,
	).Scan(&n)
	return n > 0, err
}

const resultColumns = `id, exam_id, user_id, answers, total_marks, percentage, show_to_student, flagged, created_at`

func scanResult(row interface{ Scan(...any) error }) (model.Result, error) {
	var r model.Result
	var answers string
	err := row.Scan(&r.ID, &r.ExamID, &r.UserID, &answers, &r.TotalMarks,
		&r.Percentage, &r.ShowToStudent, &r.Flagged, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		r.Answers = map[string]string{}
	}
	return r, nil
}

// GetResult returns a result by row ID.
func (s *Store) GetResult(id int64) (model.Result, error) {
	r, err := scanResult(s.db.QueryRow(
		`SELECT `+resultColumns+` FROM results WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return r, apperr.NotFound("result not found")
	}
	return r, err
}

func (s *Store) queryResults(query string, args ...any) ([]model.Result, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListResultsByExam returns all results for an exam, newest first.
func (s *Store) ListResultsByExam(examID string) ([]model.Result, error) {
	return s.queryResults(
		`SELECT `+resultColumns+` FROM results WHERE exam_id = ? ORDER BY created_at DESC, id DESC`, examID,
	)
}

// ListResultsByUser returns a student's visible results, newest first.
func (s *Store) ListResultsByUser(userID int64) ([]model.Result, error) {
	return s.queryResults(
		`SELECT `+resultColumns+` FROM results WHERE user_id = ? AND show_to_student = 1 ORDER BY created_at DESC, id DESC`, userID,
	)
}

// ListAllResults returns every result, newest first.
func (s *Store) ListAllResults() ([]model.Result, error) {
	return s.queryResults(`SELECT ` + resultColumns + ` FROM results ORDER BY created_at DESC, id DESC`)
}

// ToggleResultVisibility flips the show_to_student flag and returns the
// updated result.
func (s *Store) ToggleResultVisibility(id int64) (model.Result, error) {
	res, err := s.db.Exec(`UPDATE results SET show_to_student = NOT show_to_student WHERE id = ?`, id)
	if err != nil {
		return model.Result{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Result{}, err
	}
	if n == 0 {
		return model.Result{}, apperr.NotFound("result not found")
	}
	return s.GetResult(id)
}
