package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// AccessAll is the wildcard value for allowed departments and classes.
const AccessAll = "All"

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Department   string    `json:"department,omitempty"`
	Class        string    `json:"class,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsStaff reports whether the user may perform teacher-only operations.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == UserRoleTeacher || u.Role == UserRoleAdmin)
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType distinguishes objective and free-text questions.
type QuestionType string

const (
	TypeMCQ        QuestionType = "mcq"
	TypeSubjective QuestionType = "subjective"
)

// Exam represents an authored exam. ExamID is the public UUID token used by
// clients; the numeric row ID never leaves the store.
type Exam struct {
	ID             int64     `json:"-"`
	ExamID         string    `json:"examId"`
	Name           string    `json:"examName"`
	TotalQuestions int       `json:"totalQuestions"`
	Duration       int       `json:"duration"` // minutes
	LiveDate       time.Time `json:"liveDate"`
	DeadDate       time.Time `json:"deadDate"`
	Departments    []string  `json:"allowedDepartments"`
	Classes        []string  `json:"allowedClasses"`
	CreatedAt      time.Time `json:"createdAt"`
}

// VisibleTo reports whether a student may see this exam, honoring the "All"
// wildcard in both access lists. Staff see everything.
func (e *Exam) VisibleTo(u *User) bool {
	if u == nil || u.Role != UserRoleStudent {
		return true
	}
	return containsOrAll(e.Departments, u.Department) && containsOrAll(e.Classes, u.Class)
}

func containsOrAll(list []string, v string) bool {
	for _, s := range list {
		if s == AccessAll || s == v {
			return true
		}
	}
	return false
}

// Option is a single MCQ choice.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"optionText"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question represents an exam question of either type. Options are populated
// for mcq questions, ModelAnswer for subjective ones.
type Question struct {
	ID          int64        `json:"id"`
	ExamID      string       `json:"examId"`
	Text        string       `json:"question"`
	Type        QuestionType `json:"questionType"`
	Options     []Option     `json:"options,omitempty"`
	ModelAnswer string       `json:"modelAnswer,omitempty"`
	Marks       int          `json:"marks"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// CorrectOption returns the correct option of an MCQ, or nil.
// Authoring validation guarantees at most one.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// AwardableMarks returns the marks a correct MCQ answer earns. Questions
// authored without explicit marks still count for one point.
func (q *Question) AwardableMarks() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// Result is the persisted outcome of one student's exam attempt.
// One row per (exam, student), enforced by the schema.
type Result struct {
	ID            int64             `json:"id"`
	ExamID        string            `json:"examId"`
	UserID        int64             `json:"userId"`
	Answers       map[string]string `json:"answers"` // questionID -> optionID
	TotalMarks    int               `json:"totalMarks"`
	Percentage    float64           `json:"percentage"`
	ShowToStudent bool              `json:"showToStudent"`
	Flagged       bool              `json:"flagged"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// SubjectiveResponse holds the graded free-text answer for one
// (student, question) pair. Write-once.
type SubjectiveResponse struct {
	ID            int64     `json:"id"`
	ExamID        string    `json:"examId"`
	QuestionID    int64     `json:"questionId"`
	QuestionText  string    `json:"question,omitempty"`
	StudentEmail  string    `json:"studentEmail"`
	StudentAnswer string    `json:"studentAnswer"`
	Score         int       `json:"aiScore"`
	Feedback      string    `json:"aiFeedback"`
	MaxMarks      int       `json:"maxMarks"`
	GradedAt      time.Time `json:"gradedAt"`
}

// ViolationCategory classifies an integrity-monitoring event.
type ViolationCategory string

const (
	ViolationNoFace           ViolationCategory = "noFace"
	ViolationMultipleFace     ViolationCategory = "multipleFace"
	ViolationCellPhone        ViolationCategory = "cellPhone"
	ViolationProhibitedObject ViolationCategory = "prohibitedObject"
	ViolationTabSwitch        ViolationCategory = "tabSwitch"
)

// Screenshot is one piece of evidence attached to a cheating log.
type Screenshot struct {
	ID         int64             `json:"id"`
	URL        string            `json:"url"`
	Category   ViolationCategory `json:"type"`
	DetectedAt time.Time         `json:"detectedAt"`
}

// CheatingLog is the violation/evidence record for one (exam, student) pair.
// Counters only ever grow; the username follows the latest report.
type CheatingLog struct {
	ID                    int64        `json:"id"`
	ExamID                string       `json:"examId"`
	Email                 string       `json:"email"`
	Username              string       `json:"username"`
	TotalViolations       int          `json:"totalViolations"`
	NoFaceCount           int          `json:"noFaceCount"`
	MultipleFaceCount     int          `json:"multipleFaceCount"`
	CellPhoneCount        int          `json:"cellPhoneCount"`
	ProhibitedObjectCount int          `json:"prohibitedObjectCount"`
	TabSwitchCount        int          `json:"tabSwitchCount"`
	Screenshots           []Screenshot `json:"screenshots"`
	CreatedAt             time.Time    `json:"createdAt"`
	UpdatedAt             time.Time    `json:"updatedAt"`
}

// CodingQuestion is a programming task attached to an exam.
type CodingQuestion struct {
	ID          int64     `json:"id"`
	ExamID      string    `json:"examId"`
	Title       string    `json:"question"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CodingSubmission is one student's answer to a coding question.
type CodingSubmission struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"questionId"`
	UserID      int64     `json:"userId"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Status      string    `json:"status"`
	ExecutionMS int64     `json:"executionTime"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// CodingDetail is a coding submission joined with its question for reports.
type CodingDetail struct {
	Question    string `json:"question"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	Status      string `json:"status"`
	ExecutionMS int64  `json:"executionTime"`
}

// ResultDetail is a Result joined with the student's identity, coding
// submissions, and subjective responses for reporting views.
type ResultDetail struct {
	Result
	StudentName         string               `json:"studentName"`
	StudentEmail        string               `json:"studentEmail"`
	CodingSubmissions   []CodingDetail       `json:"codingSubmissions"`
	SubjectiveResponses []SubjectiveResponse `json:"subjectiveResponses"`
}

// SubjectiveDetail is the per-question grading detail returned to the client
// right after submission.
type SubjectiveDetail struct {
	QuestionID int64  `json:"questionId"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
	MaxMarks   int    `json:"maxMarks"`
}

// ScoreBreakdown is the immediate response of a scored submission.
type ScoreBreakdown struct {
	Result            *Result            `json:"result"`
	MCQScore          int                `json:"mcqScore"`
	SubjectiveScore   int                `json:"subjectiveScore"`
	TotalScore        int                `json:"totalScore"`
	MaxPossible       int                `json:"maxPossible"`
	Percentage        float64            `json:"percentage"`
	SubjectiveResults []SubjectiveDetail `json:"subjectiveResults"`
	Flagged           bool               `json:"flagged"`
}

// ViolationReport is a client-side integrity report to be merged into the
// stored cheating log.
type ViolationReport struct {
	ExamID                string       `json:"examId"`
	Email                 string       `json:"email"`
	Username              string       `json:"username"`
	TotalViolations       int          `json:"totalViolations"`
	NoFaceCount           int          `json:"noFaceCount"`
	MultipleFaceCount     int          `json:"multipleFaceCount"`
	CellPhoneCount        int          `json:"cellPhoneCount"`
	ProhibitedObjectCount int          `json:"prohibitedObjectCount"`
	TabSwitchCount        int          `json:"tabSwitchCount"`
	Screenshots           []Screenshot `json:"screenshots"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	MaxViolations int      // tolerated integrity violations per attempt
	SecureCookies bool     // Set Secure flag on cookies (disable for local dev)
	CORSOrigins   []string // allowed SPA origins
	Lang          string   // language for user-facing messages
}
