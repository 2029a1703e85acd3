package store

import (
	"time"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

// InsertQuestion validates and stores a question with its options.
// MCQ questions must carry at least two options with exactly one marked
// correct; the variant-irrelevant field is discarded.
func (s *Store) InsertQuestion(q model.Question) (model.Question, error) {
	if q.ExamID == "" {
		return q, apperr.Validation("examId is missing or invalid")
	}
	if q.Type == "" {
		q.Type = model.TypeMCQ
	}
	switch q.Type {
	case model.TypeMCQ:
		q.ModelAnswer = ""
		if len(q.Options) < 2 {
			return q, apperr.Validation("an mcq question needs at least two options")
		}
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return q, apperr.Validation("an mcq question needs exactly one correct option")
		}
	case model.TypeSubjective:
		q.Options = nil
	default:
		return q, apperr.Validation("unknown question type")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return q, err
	}
	defer tx.Rollback()

	q.CreatedAt = time.Now()
	res, err := tx.Exec(
		`INSERT INTO questions (exam_id, text, question_type, model_answer, marks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ExamID, q.Text, q.Type, q.ModelAnswer, q.Marks, q.CreatedAt,
	)
	if err != nil {
		return q, err
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return q, err
	}

	for i := range q.Options {
		res, err := tx.Exec(
			`INSERT INTO options (question_id, text, is_correct) VALUES (?, ?, ?)`,
			q.ID, q.Options[i].Text, q.Options[i].IsCorrect,
		)
		if err != nil {
			return q, err
		}
		if q.Options[i].ID, err = res.LastInsertId(); err != nil {
			return q, err
		}
	}

	return q, tx.Commit()
}

// ListQuestionsByExam returns an exam's questions in authoring order with
// options attached.
func (s *Store) ListQuestionsByExam(examID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, text, question_type, model_answer, marks, created_at
		 FROM questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.ModelAnswer, &q.Marks, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		if questions[i].Type != model.TypeMCQ {
			continue
		}
		opts, err := s.listOptions(questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

func (s *Store) listOptions(questionID int64) ([]model.Option, error) {
	rows, err := s.db.Query(
		`SELECT id, text, is_correct FROM options WHERE question_id = ? ORDER BY id`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []model.Option
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}
