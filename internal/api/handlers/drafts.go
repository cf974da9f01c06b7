package handlers

import (
	"net/http"
	"time"

	"application-workflow/internal/api/middleware"
	"application-workflow/internal/api/response"
	"application-workflow/internal/common/errors"
	"application-workflow/internal/models"
)

type DraftHandler struct {
	drafts  DraftService
	limiter middleware.Limiter
	limit   int
}

// NewDraftHandler limits saves to limit per minute per client address.
func NewDraftHandler(drafts DraftService, limiter middleware.Limiter, limit int) *DraftHandler {
	return &DraftHandler{drafts: drafts, limiter: limiter, limit: limit}
}

// Save handles PUT /drafts.
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow("drafts:"+middleware.ClientIP(r), h.limit, time.Minute) {
		response.Error(w, errors.NewRateLimitedError("draft save"))
		return
	}

	var req models.DraftSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	res, err := h.drafts.Save(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// Find handles GET /drafts?posting_id=&email=.
func (h *DraftHandler) Find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.drafts.Find(r.Context(), q.Get("posting_id"), q.Get("email"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, d)
}
