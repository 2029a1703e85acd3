package store

import (
	"time"

	"github.com/pavelanni/proctor/internal/model"
)

// InsertSubjectiveResponse stores a graded free-text answer. Responses are
// write-once per (question, student); a conflicting insert is a no-op so a
// duplicate submission attempt can never overwrite an existing grade.
func (s *Store) InsertSubjectiveResponse(sr model.SubjectiveResponse) error {
	if sr.GradedAt.IsZero() {
		sr.GradedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO subjective_responses (exam_id, question_id, student_email, student_answer, score, feedback, max_marks, graded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (question_id, student_email) DO NOTHING`,
		sr.ExamID, sr.QuestionID, sr.StudentEmail, sr.StudentAnswer, sr.Score, sr.Feedback, sr.MaxMarks, sr.GradedAt,
	)
	return err
}

// ListSubjectiveResponses returns a student's graded answers for an exam,
// with the question text joined in for display.
func (s *Store) ListSubjectiveResponses(examID, studentEmail string) ([]model.SubjectiveResponse, error) {
	rows, err := s.db.Query(
		`SELECT sr.id, sr.exam_id, sr.question_id, COALESCE(q.text, ''), sr.student_email,
		        sr.student_answer, sr.score, sr.feedback, sr.max_marks, sr.graded_at
		 FROM subjective_responses sr
		 LEFT JOIN questions q ON q.id = sr.question_id
		 WHERE sr.exam_id = ? AND sr.student_email = ?
		 ORDER BY sr.id`, examID, studentEmail,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var responses []model.SubjectiveResponse
	for rows.Next() {
		var sr model.SubjectiveResponse
		if err := rows.Scan(&sr.ID, &sr.ExamID, &sr.QuestionID, &sr.QuestionText, &sr.StudentEmail,
			&sr.StudentAnswer, &sr.Score, &sr.Feedback, &sr.MaxMarks, &sr.GradedAt); err != nil {
			return nil, err
		}
		responses = append(responses, sr)
	}
	return responses, rows.Err()
}
