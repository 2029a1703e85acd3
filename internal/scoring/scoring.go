// Package scoring computes exam results: deterministic MCQ arithmetic plus
// orchestration of the external grading collaborator for subjective answers.
package scoring

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/store"
)

// gradeConcurrency bounds parallel grading calls per submission.
const gradeConcurrency = 4

// Grader scores one subjective answer. Implementations must not fail; on any
// internal error they return a zero score and fallback feedback.
type Grader interface {
	Grade(ctx context.Context, q model.Question, studentAnswer string) (score int, feedback string)
}

// Notifier delivers a result summary to the student. Fire-and-forget.
type Notifier interface {
	SendResult(to, name, examName string, b model.ScoreBreakdown)
}

// Engine scores submissions and persists their results.
type Engine struct {
	store         *store.Store
	grader        Grader
	notifier      Notifier
	maxViolations int
}

// New creates a scoring engine. notifier may be nil to disable result emails.
// maxViolations <= 0 disables integrity flagging.
func New(s *store.Store, g Grader, n Notifier, maxViolations int) *Engine {
	return &Engine{store: s, grader: g, notifier: n, maxViolations: maxViolations}
}

// SubmitAndScore grades a student's submission and persists the Result.
// MCQ answers map question IDs to the chosen option ID; subjective answers
// map question IDs to free text. The result is immutable once created: a
// second submission for the same (exam, student) fails with a duplicate
// error and leaves the stored result untouched.
func (e *Engine) SubmitAndScore(ctx context.Context, user *model.User, examID string,
	answers map[string]string, subjectiveAnswers map[string]string) (*model.ScoreBreakdown, error) {

	if examID == "" || answers == nil {
		return nil, apperr.Validation("please provide examId and answers")
	}

	// Friendly pre-check; the UNIQUE constraint in CreateResult is what
	// actually closes the race between two concurrent submissions.
	exists, err := e.store.HasResult(examID, user.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Duplicate("you have already submitted this exam")
	}

	questions, err := e.store.ListQuestionsByExam(examID)
	if err != nil {
		return nil, err
	}

	var mcqQuestions, subjQuestions []model.Question
	for _, q := range questions {
		if q.Type == model.TypeSubjective {
			subjQuestions = append(subjQuestions, q)
		} else {
			mcqQuestions = append(mcqQuestions, q)
		}
	}

	mcqScore, correct := ScoreMCQ(mcqQuestions, answers)
	slog.Debug("mcq scored", "exam_id", examID, "user_id", user.ID,
		"score", mcqScore, "correct", correct, "questions", len(mcqQuestions))

	details := e.gradeSubjective(ctx, subjQuestions, subjectiveAnswers)

	subjectiveScore := 0
	for _, d := range details {
		subjectiveScore += d.Score
		err := e.store.InsertSubjectiveResponse(model.SubjectiveResponse{
			ExamID:        examID,
			QuestionID:    d.QuestionID,
			StudentEmail:  user.Email,
			StudentAnswer: subjectiveAnswers[strconv.FormatInt(d.QuestionID, 10)],
			Score:         d.Score,
			Feedback:      d.Feedback,
			MaxMarks:      d.MaxMarks,
		})
		if err != nil {
			return nil, err
		}
	}

	totalScore := mcqScore + subjectiveScore
	maxPossible := MaxPossible(questions)
	percentage := Percentage(totalScore, maxPossible)

	violations, err := e.store.ViolationCount(examID, user.Email)
	if err != nil {
		return nil, err
	}
	flagged := e.maxViolations > 0 && violations >= e.maxViolations
	if flagged {
		slog.Warn("submission flagged for integrity violations",
			"exam_id", examID, "user_id", user.ID, "violations", violations, "limit", e.maxViolations)
	}

	result, err := e.store.CreateResult(model.Result{
		ExamID:     examID,
		UserID:     user.ID,
		Answers:    answers,
		TotalMarks: totalScore,
		Percentage: percentage,
		// Flagged attempts are hidden until a teacher reviews and
		// toggles them visible.
		ShowToStudent: !flagged,
		Flagged:       flagged,
	})
	if err != nil {
		return nil, err
	}

	breakdown := &model.ScoreBreakdown{
		Result:            &result,
		MCQScore:          mcqScore,
		SubjectiveScore:   subjectiveScore,
		TotalScore:        totalScore,
		MaxPossible:       maxPossible,
		Percentage:        percentage,
		SubjectiveResults: details,
		Flagged:           flagged,
	}

	if e.notifier != nil {
		examName := examID
		if exam, err := e.store.GetExam(examID); err == nil {
			examName = exam.Name
		}
		go e.notifier.SendResult(user.Email, user.DisplayName, examName, *breakdown)
	}

	slog.Info("submission scored", "exam_id", examID, "user_id", user.ID,
		"total", totalScore, "max", maxPossible, "percentage", percentage, "flagged", flagged)
	return breakdown, nil
}

// gradeSubjective grades the answered subjective questions through the
// collaborator, fanning out with a bounded group. Detail order follows
// question authoring order regardless of grading completion order.
func (e *Engine) gradeSubjective(ctx context.Context, questions []model.Question,
	answers map[string]string) []model.SubjectiveDetail {

	type job struct {
		q      model.Question
		answer string
	}
	var jobs []job
	for _, q := range questions {
		answer, ok := answers[strconv.FormatInt(q.ID, 10)]
		if !ok {
			continue
		}
		jobs = append(jobs, job{q: q, answer: answer})
	}
	if len(jobs) == 0 {
		return nil
	}

	details := make([]model.SubjectiveDetail, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gradeConcurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			score, feedback := e.grader.Grade(gctx, j.q, j.answer)
			details[i] = model.SubjectiveDetail{
				QuestionID: j.q.ID,
				Score:      score,
				Feedback:   feedback,
				MaxMarks:   j.q.Marks,
			}
			return nil
		})
	}
	// Graders never fail; Wait only orders the writes above.
	_ = g.Wait()
	return details
}

// ScoreMCQ awards marks for every MCQ whose chosen option is the correct one.
// Unanswered or wrongly answered questions award zero.
func ScoreMCQ(questions []model.Question, answers map[string]string) (score, correct int) {
	for _, q := range questions {
		chosen, ok := answers[strconv.FormatInt(q.ID, 10)]
		if !ok || chosen == "" {
			continue
		}
		co := q.CorrectOption()
		if co != nil && strconv.FormatInt(co.ID, 10) == chosen {
			score += q.AwardableMarks()
			correct++
		}
	}
	return score, correct
}

// MaxPossible sums the authored marks over all questions of an exam.
func MaxPossible(questions []model.Question) int {
	sum := 0
	for _, q := range questions {
		sum += q.Marks
	}
	return sum
}

// Percentage computes the final percentage, clamped to [0, 100]. The clamp
// matters because an MCQ authored with zero marks still awards one point,
// which can push the raw ratio past 100.
func Percentage(totalScore, maxPossible int) float64 {
	if maxPossible <= 0 {
		return 0
	}
	p := float64(totalScore) / float64(maxPossible) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
