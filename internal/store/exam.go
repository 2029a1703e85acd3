package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

// CreateExam stores a new exam and assigns its public token.
func (s *Store) CreateExam(e model.Exam) (model.Exam, error) {
	if len(e.Departments) == 0 {
		e.Departments = []string{model.AccessAll}
	}
	if len(e.Classes) == 0 {
		e.Classes = []string{model.AccessAll}
	}
	e.ExamID = uuid.NewString()
	e.CreatedAt = time.Now()

	res, err := s.db.Exec(
		`INSERT INTO exams (exam_id, name, total_questions, duration_minutes, live_date, dead_date, departments, classes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExamID, e.Name, e.TotalQuestions, e.Duration, e.LiveDate, e.DeadDate,
		marshalStrings(e.Departments), marshalStrings(e.Classes), e.CreatedAt,
	)
	if err != nil {
		return model.Exam{}, err
	}
	e.ID, err = res.LastInsertId()
	return e, err
}

const examColumns = `id, exam_id, name, total_questions, duration_minutes, live_date, dead_date, departments, classes, created_at`

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var e model.Exam
	var depts, classes string
	err := row.Scan(&e.ID, &e.ExamID, &e.Name, &e.TotalQuestions, &e.Duration,
		&e.LiveDate, &e.DeadDate, &depts, &classes, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.Departments = unmarshalStrings(depts)
	e.Classes = unmarshalStrings(classes)
	return e, nil
}

// GetExam returns an exam by its public token.
func (s *Store) GetExam(examID string) (model.Exam, error) {
	e, err := scanExam(s.db.QueryRow(
		`SELECT `+examColumns+` FROM exams WHERE exam_id = ?`, examID,
	))
	if err == sql.ErrNoRows {
		return e, apperr.NotFound("exam not found")
	}
	return e, err
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT ` + examColumns + ` FROM exams ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// DeleteExam removes an exam by token. Dependent questions and results are
// left in place, matching the original platform's informal cascade.
func (s *Store) DeleteExam(examID string) (model.Exam, error) {
	e, err := s.GetExam(examID)
	if err != nil {
		return e, err
	}
	_, err = s.db.Exec(`DELETE FROM exams WHERE exam_id = ?`, examID)
	return e, err
}
