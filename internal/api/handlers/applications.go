package handlers

import (
	"net/http"
	"time"

	"application-workflow/internal/api/middleware"
	"application-workflow/internal/api/response"
	"application-workflow/internal/common/errors"
	"application-workflow/internal/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type ApplicationHandler struct {
	submissions SubmissionService
	analysis    AnalysisService
	limiter     middleware.Limiter
	limit       int
}

func NewApplicationHandler(submissions SubmissionService, analysis AnalysisService, limiter middleware.Limiter, limit int) *ApplicationHandler {
	return &ApplicationHandler{submissions: submissions, analysis: analysis, limiter: limiter, limit: limit}
}

// Submit handles POST /applications. Answers 201 on success and 409 with
// error.metadata.existing_submission_id when the candidate already applied.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		response.Error(w, errors.NewIdempotencyKeyRequiredError())
		return
	}
	if h.limiter != nil && !h.limiter.Allow("applications:"+middleware.ClientIP(r), h.limit, time.Minute) {
		response.Error(w, errors.NewRateLimitedError("application submit"))
		return
	}

	var payload models.SubmissionPayload
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, err)
		return
	}

	created, err := h.submissions.Submit(r.Context(), key, &payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	w.Header().Set(IdempotencyKeyHeader, key)
	response.JSON(w, http.StatusCreated, created)
}

// Analyze handles POST /applications/{id}/analysis.
func (h *ApplicationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r.URL.Path, "/applications/")
	if id == "" {
		response.Error(w, errors.NewInvalidRequestError("submission id is required"))
		return
	}

	var req models.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	a, err := h.analysis.Analyze(r.Context(), id, &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, a)
}
