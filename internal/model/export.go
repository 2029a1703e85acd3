package model

import "time"

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	ExamID     string         `json:"exam_id"`
	ExamName   string         `json:"exam_name"`
	ExportedAt time.Time      `json:"exported_at"`
	NumResults int            `json:"num_results"`
	Results    []ResultExport `json:"results"`
	Integrity  []CheatingLog  `json:"integrity_logs"`
}

// ResultExport holds one student's outcome for export.
type ResultExport struct {
	StudentName  string               `json:"student_name"`
	StudentEmail string               `json:"student_email"`
	TotalMarks   int                  `json:"total_marks"`
	Percentage   float64              `json:"percentage"`
	Flagged      bool                 `json:"flagged"`
	SubmittedAt  time.Time            `json:"submitted_at"`
	Subjective   []SubjectiveResponse `json:"subjective_responses"`
	Coding       []CodingDetail       `json:"coding_submissions"`
}
