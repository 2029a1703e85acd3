package store

import (
	"testing"

	"github.com/pavelanni/proctor/internal/model"
)

func TestExamReportJoinsDetails(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Systems Final")
	u := createTestUser(t, s, "ivan@example.com", model.UserRoleStudent)

	subj := insertSubjective(t, s, exam.ExamID, "Explain virtual memory.", 5)
	if err := s.InsertSubjectiveResponse(model.SubjectiveResponse{
		ExamID: exam.ExamID, QuestionID: subj.ID,
		StudentEmail: u.Email, StudentAnswer: "pages and frames",
		Score: 3, Feedback: "missing TLB", MaxMarks: 5,
	}); err != nil {
		t.Fatalf("InsertSubjectiveResponse: %v", err)
	}

	cq, err := s.InsertCodingQuestion(model.CodingQuestion{
		ExamID: exam.ExamID, Title: "Implement an LRU cache",
	})
	if err != nil {
		t.Fatalf("InsertCodingQuestion: %v", err)
	}
	if err := s.UpsertCodingSubmission(model.CodingSubmission{
		QuestionID: cq.ID, UserID: u.ID,
		Code: "func main() {}", Language: "go", Status: "passed", ExecutionMS: 12,
	}); err != nil {
		t.Fatalf("UpsertCodingSubmission: %v", err)
	}

	if _, err := s.CreateResult(model.Result{
		ExamID: exam.ExamID, UserID: u.ID,
		Answers: map[string]string{}, TotalMarks: 3, Percentage: 60, ShowToStudent: true,
	}); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	report, err := s.ExamReport(exam.ExamID)
	if err != nil {
		t.Fatalf("ExamReport: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report))
	}

	d := report[0]
	if d.StudentName != u.DisplayName || d.StudentEmail != u.Email {
		t.Errorf("student identity not joined: %+v", d)
	}
	if len(d.SubjectiveResponses) != 1 || d.SubjectiveResponses[0].Score != 3 {
		t.Errorf("subjective responses not joined: %+v", d.SubjectiveResponses)
	}
	if len(d.CodingSubmissions) != 1 || d.CodingSubmissions[0].Question != "Implement an LRU cache" {
		t.Errorf("coding submissions not joined: %+v", d.CodingSubmissions)
	}
}

func TestCodingSubmissionUpsert(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Coding Round")
	u := createTestUser(t, s, "judy@example.com", model.UserRoleStudent)

	cq, err := s.InsertCodingQuestion(model.CodingQuestion{
		ExamID: exam.ExamID, Title: "Reverse a string",
	})
	if err != nil {
		t.Fatalf("InsertCodingQuestion: %v", err)
	}

	first := model.CodingSubmission{
		QuestionID: cq.ID, UserID: u.ID, Code: "v1", Language: "go", Status: "failed",
	}
	if err := s.UpsertCodingSubmission(first); err != nil {
		t.Fatalf("UpsertCodingSubmission: %v", err)
	}

	// Resubmitting replaces the previous attempt.
	second := first
	second.Code = "v2"
	second.Status = "passed"
	if err := s.UpsertCodingSubmission(second); err != nil {
		t.Fatalf("UpsertCodingSubmission repeat: %v", err)
	}

	details, err := s.ListCodingDetails(exam.ExamID, u.ID)
	if err != nil {
		t.Fatalf("ListCodingDetails: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(details))
	}
	if details[0].Code != "v2" || details[0].Status != "passed" {
		t.Errorf("expected latest submission, got %+v", details[0])
	}
}

func TestExportExam(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s, "Export Me")
	u := createTestUser(t, s, "kate@example.com", model.UserRoleStudent)

	if _, err := s.CreateResult(model.Result{
		ExamID: exam.ExamID, UserID: u.ID,
		Answers: map[string]string{}, TotalMarks: 7, Percentage: 70,
		ShowToStudent: true,
	}); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}
	if _, err := s.UpsertCheatingLog(model.ViolationReport{
		ExamID: exam.ExamID, Email: u.Email, Username: "Kate",
		TotalViolations: 2, TabSwitchCount: 2,
	}); err != nil {
		t.Fatalf("UpsertCheatingLog: %v", err)
	}

	export, err := s.ExportExam(exam.ExamID)
	if err != nil {
		t.Fatalf("ExportExam: %v", err)
	}
	if export.ExamName != "Export Me" || export.NumResults != 1 {
		t.Errorf("unexpected export header: %+v", export)
	}
	if len(export.Results) != 1 || export.Results[0].TotalMarks != 7 {
		t.Errorf("unexpected results: %+v", export.Results)
	}
	if len(export.Integrity) != 1 || export.Integrity[0].TotalViolations != 2 {
		t.Errorf("unexpected integrity logs: %+v", export.Integrity)
	}
}
