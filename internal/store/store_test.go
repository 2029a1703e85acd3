package store

import (
	"testing"
	"time"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestExam(t *testing.T, s *Store, name string) model.Exam {
	t.Helper()
	exam, err := s.CreateExam(model.Exam{Name: name, TotalQuestions: 3, Duration: 60})
	if err != nil {
		t.Fatalf("createTestExam: %v", err)
	}
	return exam
}

// insertMCQ stores a three-option MCQ with the option at correctIdx correct.
func insertMCQ(t *testing.T, s *Store, examID, text string, marks, correctIdx int) model.Question {
	t.Helper()
	opts := []model.Option{
		{Text: "red"}, {Text: "green"}, {Text: "blue"},
	}
	opts[correctIdx].IsCorrect = true
	q, err := s.InsertQuestion(model.Question{
		ExamID:  examID,
		Text:    text,
		Type:    model.TypeMCQ,
		Options: opts,
		Marks:   marks,
	})
	if err != nil {
		t.Fatalf("insertMCQ: %v", err)
	}
	return q
}

func insertSubjective(t *testing.T, s *Store, examID, text string, marks int) model.Question {
	t.Helper()
	q, err := s.InsertQuestion(model.Question{
		ExamID:      examID,
		Text:        text,
		Type:        model.TypeSubjective,
		ModelAnswer: "reference answer for " + text,
		Marks:       marks,
	})
	if err != nil {
		t.Fatalf("insertSubjective: %v", err)
	}
	return q
}

func createTestUser(t *testing.T, s *Store, email string, role model.UserRole) *model.User {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Email:        email,
		DisplayName:  "Test " + email,
		PasswordHash: "x",
		Role:         role,
		Department:   "CS",
		Class:        "A",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	u, err := s.GetUserByID(id)
	if err != nil || u == nil {
		t.Fatalf("GetUserByID(%d): %v", id, err)
	}
	return u
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 0 {
		t.Fatalf("expected empty list, got %d", len(exams))
	}

	exam := createTestExam(t, s, "Physics Midterm")
	if exam.ExamID == "" {
		t.Fatal("expected generated exam token")
	}
	if len(exam.Departments) != 1 || exam.Departments[0] != model.AccessAll {
		t.Errorf("expected default departments [All], got %v", exam.Departments)
	}

	got, err := s.GetExam(exam.ExamID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Name != "Physics Midterm" {
		t.Errorf("expected name 'Physics Midterm', got %q", got.Name)
	}

	_, err = s.GetExam("no-such-exam")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not-found kind, got %v", err)
	}

	deleted, err := s.DeleteExam(exam.ExamID)
	if err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if deleted.ExamID != exam.ExamID {
		t.Errorf("deleted wrong exam: %q", deleted.ExamID)
	}
	if _, err := s.GetExam(exam.ExamID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected exam gone, got %v", err)
	}
}

func TestInsertQuestionValidation(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Chemistry Quiz")

	tests := []struct {
		name string
		q    model.Question
	}{
		{"missing exam", model.Question{Text: "q", Type: model.TypeMCQ}},
		{"too few options", model.Question{
			ExamID: exam.ExamID, Text: "q", Type: model.TypeMCQ,
			Options: []model.Option{{Text: "only", IsCorrect: true}},
		}},
		{"no correct option", model.Question{
			ExamID: exam.ExamID, Text: "q", Type: model.TypeMCQ,
			Options: []model.Option{{Text: "a"}, {Text: "b"}},
		}},
		{"two correct options", model.Question{
			ExamID: exam.ExamID, Text: "q", Type: model.TypeMCQ,
			Options: []model.Option{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
		}},
		{"unknown type", model.Question{ExamID: exam.ExamID, Text: "q", Type: "essay"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.InsertQuestion(tt.q); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Biology Final")

	mcq := insertMCQ(t, s, exam.ExamID, "Which pigment drives photosynthesis?", 2, 1)
	subj := insertSubjective(t, s, exam.ExamID, "Explain osmosis.", 5)

	questions, err := s.ListQuestionsByExam(exam.ExamID)
	if err != nil {
		t.Fatalf("ListQuestionsByExam: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	if questions[0].ID != mcq.ID || len(questions[0].Options) != 3 {
		t.Errorf("mcq not returned with options: %+v", questions[0])
	}
	if co := questions[0].CorrectOption(); co == nil || co.Text != "green" {
		t.Errorf("expected correct option 'green', got %+v", co)
	}
	if questions[0].ModelAnswer != "" {
		t.Errorf("mcq should not carry a model answer, got %q", questions[0].ModelAnswer)
	}
	if questions[1].ID != subj.ID || questions[1].Options != nil {
		t.Errorf("subjective should have no options: %+v", questions[1])
	}
}

func TestUserUniqueEmail(t *testing.T) {
	s := newTestStore(t)

	createTestUser(t, s, "alice@example.com", model.UserRoleStudent)
	_, err := s.CreateUser(model.User{
		Email: "alice@example.com", DisplayName: "Dup", PasswordHash: "x",
		Role: model.UserRoleStudent, Active: true,
	})
	if apperr.KindOf(err) != apperr.KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	u, err := s.GetUserByEmail("nobody@example.com")
	if err != nil || u != nil {
		t.Errorf("expected (nil, nil) for unknown email, got %v, %v", u, err)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "bob@example.com", model.UserRoleStudent)

	token, err := s.CreateAuthSession(u.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	got, err := s.SessionUser(token)
	if err != nil {
		t.Fatalf("SessionUser: %v", err)
	}
	if got == nil || got.ID != u.ID || got.Email != u.Email {
		t.Fatalf("expected user %d for token, got %+v", u.ID, got)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	got, err = s.SessionUser(token)
	if err != nil {
		t.Fatalf("SessionUser after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected deleted session to resolve to nil, got %+v", got)
	}
}

func TestSessionUserExpiredToken(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "carol@example.com", model.UserRoleStudent)

	token, err := s.CreateAuthSession(u.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if _, err := s.db.Exec(
		`UPDATE auth_sessions SET expires_at = ? WHERE id = ?`,
		time.Now().Add(-time.Minute), token,
	); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	got, err := s.SessionUser(token)
	if err != nil {
		t.Fatalf("SessionUser: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired token to resolve to nil, got %+v", got)
	}
}

func TestSessionUserDeactivatedAccount(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "dave@example.com", model.UserRoleStudent)

	token, err := s.CreateAuthSession(u.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE users SET active = 0 WHERE id = ?`, u.ID); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	got, err := s.SessionUser(token)
	if err != nil {
		t.Fatalf("SessionUser: %v", err)
	}
	if got != nil {
		t.Errorf("expected deactivated account to resolve to nil, got %+v", got)
	}
}
