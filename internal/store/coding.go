package store

import (
	"time"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

// InsertCodingQuestion stores a programming task for an exam.
func (s *Store) InsertCodingQuestion(q model.CodingQuestion) (model.CodingQuestion, error) {
	if q.ExamID == "" {
		return q, apperr.Validation("examId is missing or invalid")
	}
	q.CreatedAt = time.Now()
	res, err := s.db.Exec(
		`INSERT INTO coding_questions (exam_id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		q.ExamID, q.Title, q.Description, q.CreatedAt,
	)
	if err != nil {
		return q, err
	}
	q.ID, err = res.LastInsertId()
	return q, err
}

// ListCodingQuestionsByExam returns an exam's coding questions in authoring order.
func (s *Store) ListCodingQuestionsByExam(examID string) ([]model.CodingQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, title, description, created_at FROM coding_questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.CodingQuestion
	for rows.Next() {
		var q model.CodingQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Title, &q.Description, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpsertCodingSubmission stores a student's code for a coding question,
// replacing any earlier attempt for the same question.
func (s *Store) UpsertCodingSubmission(sub model.CodingSubmission) error {
	sub.SubmittedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO coding_submissions (question_id, user_id, code, language, status, execution_ms, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (question_id, user_id) DO UPDATE SET
		        code = excluded.code,
		        language = excluded.language,
		        status = excluded.status,
		        execution_ms = excluded.execution_ms,
		        submitted_at = excluded.submitted_at`,
		sub.QuestionID, sub.UserID, sub.Code, sub.Language, sub.Status, sub.ExecutionMS, sub.SubmittedAt,
	)
	return err
}

// ListCodingDetails returns a student's coding submissions for an exam joined
// with their question titles.
func (s *Store) ListCodingDetails(examID string, userID int64) ([]model.CodingDetail, error) {
	rows, err := s.db.Query(
		`SELECT cq.title, cs.code, cs.language, cs.status, cs.execution_ms
		 FROM coding_submissions cs
		 JOIN coding_questions cq ON cq.id = cs.question_id
		 WHERE cq.exam_id = ? AND cs.user_id = ?
		 ORDER BY cs.id`, examID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []model.CodingDetail
	for rows.Next() {
		var d model.CodingDetail
		if err := rows.Scan(&d.Question, &d.Code, &d.Language, &d.Status, &d.ExecutionMS); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
