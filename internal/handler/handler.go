// Package handler exposes the JSON API consumed by the exam frontend.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/proctor/internal/apperr"
	"github.com/pavelanni/proctor/internal/evidence"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/proctor"
	"github.com/pavelanni/proctor/internal/scoring"
	"github.com/pavelanni/proctor/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	scorer     *scoring.Engine
	aggregator *proctor.Aggregator
	evidence   *evidence.DiskStore
	config     model.ServerConfig
}

// New creates a new Handler. evidence may be nil to disable uploads.
func New(s *store.Store, sc *scoring.Engine, agg *proctor.Aggregator,
	ev *evidence.DiskStore, cfg model.ServerConfig) *Handler {
	return &Handler{store: s, scorer: sc, aggregator: agg, evidence: ev, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	if h.evidence != nil {
		r.Handle(evidence.URLPrefix+"*", http.StripPrefix(evidence.URLPrefix,
			http.FileServer(http.Dir(h.evidence.Dir()))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/auth/logout", h.handleLogout)
			r.Get("/exams", h.handleListExams)
			r.Get("/questions/{examID}", h.handleListQuestions)
			r.Post("/results", h.handleSubmitExam)
			r.Get("/results/user", h.handleMyResults)
			r.Post("/cheatinglogs", h.handleRecordViolations)
			r.Get("/coding/{examID}", h.handleListCodingQuestions)
			r.Post("/coding/{examID}/submit", h.handleSubmitCode)
			r.Post("/evidence", h.handleUploadEvidence)

			r.Group(func(r chi.Router) {
				r.Use(requireStaff)

				r.Post("/exams", h.handleCreateExam)
				r.Delete("/exams/{examID}", h.handleDeleteExam)
				r.Post("/questions", h.handleCreateQuestion)
				r.Get("/results/exam/{examID}", h.handleExamResults)
				r.Get("/results/all", h.handleAllResults)
				r.Put("/results/{id}/toggle-visibility", h.handleToggleVisibility)
				r.Get("/cheatinglogs/{examID}", h.handleListCheatingLogs)
				r.Post("/coding", h.handleCreateCodingQuestion)
			})
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondMessage(w, http.StatusOK, "ok")
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	exams, err := h.store.ListExams()
	if err != nil {
		respondError(w, r, err)
		return
	}

	visible := make([]model.Exam, 0, len(exams))
	for _, e := range exams {
		if e.VisibleTo(user) {
			visible = append(visible, e)
		}
	}
	respondData(w, http.StatusOK, visible)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var exam model.Exam
	if err := decodeBody(r, &exam); err != nil {
		respondError(w, r, err)
		return
	}
	if exam.Name == "" {
		respondError(w, r, apperr.Validation("please provide examName"))
		return
	}

	created, err := h.store.CreateExam(exam)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.DeleteExam(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, deleted)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestionsByExam(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Students never see which option is correct or the grading reference.
	if user := model.UserFromContext(r.Context()); !user.IsStaff() {
		for i := range questions {
			questions[i].ModelAnswer = ""
			for j := range questions[i].Options {
				questions[i].Options[j].IsCorrect = false
			}
		}
	}
	respondData(w, http.StatusOK, questions)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := decodeBody(r, &q); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := h.store.InsertQuestion(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

type submitRequest struct {
	ExamID            string            `json:"examId"`
	Answers           map[string]string `json:"answers"`
	SubjectiveAnswers map[string]string `json:"subjectiveAnswers"`
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	breakdown, err := h.scorer.SubmitAndScore(r.Context(), user, req.ExamID, req.Answers, req.SubjectiveAnswers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, breakdown)
}

func (h *Handler) handleMyResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.UserReport(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, results)
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ExamReport(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, results)
}

func (h *Handler) handleAllResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.AllReports()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, results)
}

func (h *Handler) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, r, apperr.Validation("invalid result id"))
		return
	}

	result, err := h.store.ToggleResultVisibility(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

func (h *Handler) handleRecordViolations(w http.ResponseWriter, r *http.Request) {
	var report model.ViolationReport
	if err := decodeBody(r, &report); err != nil {
		respondError(w, r, err)
		return
	}

	merged, err := h.aggregator.Record(r.Context(), report)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, merged)
}

func (h *Handler) handleListCheatingLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.aggregator.ListByExam(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, logs)
}

func (h *Handler) handleListCodingQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListCodingQuestionsByExam(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, questions)
}

func (h *Handler) handleCreateCodingQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.CodingQuestion
	if err := decodeBody(r, &q); err != nil {
		respondError(w, r, err)
		return
	}
	if q.ExamID == "" || q.Title == "" {
		respondError(w, r, apperr.Validation("please provide examId and question"))
		return
	}

	created, err := h.store.InsertCodingQuestion(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

func (h *Handler) handleSubmitCode(w http.ResponseWriter, r *http.Request) {
	var sub model.CodingSubmission
	if err := decodeBody(r, &sub); err != nil {
		respondError(w, r, err)
		return
	}
	if sub.QuestionID == 0 || sub.Code == "" {
		respondError(w, r, apperr.Validation("please provide questionId and code"))
		return
	}

	sub.UserID = model.UserFromContext(r.Context()).ID
	if err := h.store.UpsertCodingSubmission(sub); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "submission saved")
}

// handleUploadEvidence accepts a multipart screenshot and returns the stored
// URL for inclusion in subsequent violation reports.
func (h *Handler) handleUploadEvidence(w http.ResponseWriter, r *http.Request) {
	if h.evidence == nil {
		respondError(w, r, apperr.Validation("evidence uploads are disabled"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	file, header, err := r.FormFile("screenshot")
	if err != nil {
		respondError(w, r, apperr.Validation("please attach a screenshot file"))
		return
	}
	defer file.Close()

	url, err := h.evidence.Save(header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]string{"url": url})
}
