package store

import (
	"testing"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/model"
)

func TestCreateResultDuplicate(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "History Quiz")
	u := createTestUser(t, s, "carol@example.com", model.UserRoleStudent)

	first, err := s.CreateResult(model.Result{
		ExamID: exam.ExamID, UserID: u.ID,
		Answers:    map[string]string{"1": "2"},
		TotalMarks: 4, Percentage: 80, ShowToStudent: true,
	})
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	// A replayed submission must fail on the constraint and leave the
	// stored result unchanged.
	_, err = s.CreateResult(model.Result{
		ExamID: exam.ExamID, UserID: u.ID,
		Answers:    map[string]string{"1": "3"},
		TotalMarks: 0, Percentage: 0, ShowToStudent: true,
	})
	if apperr.KindOf(err) != apperr.KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	stored, err := s.GetResult(first.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored.TotalMarks != 4 || stored.Answers["1"] != "2" {
		t.Errorf("stored result changed after duplicate attempt: %+v", stored)
	}

	exists, err := s.HasResult(exam.ExamID, u.ID)
	if err != nil || !exists {
		t.Errorf("HasResult = %v, %v; want true", exists, err)
	}
}

func TestToggleResultVisibility(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Geography Quiz")
	u := createTestUser(t, s, "dave@example.com", model.UserRoleStudent)

	r, err := s.CreateResult(model.Result{
		ExamID: exam.ExamID, UserID: u.ID,
		Answers: map[string]string{}, ShowToStudent: true,
	})
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	hidden, err := s.ToggleResultVisibility(r.ID)
	if err != nil {
		t.Fatalf("ToggleResultVisibility: %v", err)
	}
	if hidden.ShowToStudent {
		t.Error("expected hidden after first toggle")
	}

	// Toggling twice returns to the initial state.
	shown, err := s.ToggleResultVisibility(r.ID)
	if err != nil {
		t.Fatalf("ToggleResultVisibility: %v", err)
	}
	if !shown.ShowToStudent {
		t.Error("expected visible after second toggle")
	}

	if _, err := s.ToggleResultVisibility(9999); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not-found for missing result, got %v", err)
	}
}

func TestListResultsByUserHidesInvisible(t *testing.T) {
	s := newTestStore(t)
	examA := createTestExam(t, s, "Exam A")
	examB := createTestExam(t, s, "Exam B")
	u := createTestUser(t, s, "erin@example.com", model.UserRoleStudent)

	if _, err := s.CreateResult(model.Result{
		ExamID: examA.ExamID, UserID: u.ID, Answers: map[string]string{}, ShowToStudent: true,
	}); err != nil {
		t.Fatalf("CreateResult A: %v", err)
	}
	if _, err := s.CreateResult(model.Result{
		ExamID: examB.ExamID, UserID: u.ID, Answers: map[string]string{},
		ShowToStudent: false, Flagged: true,
	}); err != nil {
		t.Fatalf("CreateResult B: %v", err)
	}

	visible, err := s.ListResultsByUser(u.ID)
	if err != nil {
		t.Fatalf("ListResultsByUser: %v", err)
	}
	if len(visible) != 1 || visible[0].ExamID != examA.ExamID {
		t.Errorf("expected only the visible result, got %+v", visible)
	}

	all, err := s.ListAllResults()
	if err != nil {
		t.Fatalf("ListAllResults: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 results for staff, got %d", len(all))
	}
}

func TestSubjectiveResponseWriteOnce(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Philosophy Exam")
	q := insertSubjective(t, s, exam.ExamID, "What is knowledge?", 5)

	sr := model.SubjectiveResponse{
		ExamID: exam.ExamID, QuestionID: q.ID,
		StudentEmail: "frank@example.com", StudentAnswer: "justified true belief",
		Score: 4, Feedback: "solid", MaxMarks: 5,
	}
	if err := s.InsertSubjectiveResponse(sr); err != nil {
		t.Fatalf("InsertSubjectiveResponse: %v", err)
	}

	// A second write for the same pair is silently dropped.
	sr.Score = 1
	sr.Feedback = "overwritten"
	if err := s.InsertSubjectiveResponse(sr); err != nil {
		t.Fatalf("InsertSubjectiveResponse repeat: %v", err)
	}

	got, err := s.ListSubjectiveResponses(exam.ExamID, "frank@example.com")
	if err != nil {
		t.Fatalf("ListSubjectiveResponses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 response, got %d", len(got))
	}
	if got[0].Score != 4 || got[0].Feedback != "solid" {
		t.Errorf("first write should win: %+v", got[0])
	}
	if got[0].QuestionText != "What is knowledge?" {
		t.Errorf("expected joined question text, got %q", got[0].QuestionText)
	}
}
