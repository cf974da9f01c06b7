package handlers

import (
	"net/http"
	"strings"

	"application-workflow/internal/api/response"
	"application-workflow/internal/common/errors"
	"application-workflow/internal/models"
)

type PostingHandler struct {
	postings  PostingService
	questions QuestionService
}

func NewPostingHandler(postings PostingService, questions QuestionService) *PostingHandler {
	return &PostingHandler{postings: postings, questions: questions}
}

// Get handles GET /postings/{id}.
func (h *PostingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r.URL.Path, "/postings/")
	if id == "" {
		response.Error(w, errors.NewInvalidRequestError("posting id is required"))
		return
	}
	p, err := h.postings.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// GenerateQuestions handles POST /questions/generate. A request naming only
// posting_id is completed from the stored posting.
func (h *PostingHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	if strings.TrimSpace(req.Title) == "" && req.PostingID != "" {
		p, err := h.postings.Get(r.Context(), req.PostingID)
		if err != nil {
			response.Error(w, err)
			return
		}
		req.Title = p.Title
		req.PositionTitle = p.PositionTitle
		req.Department = p.Department
		req.Modality = p.Modality
		req.ContractType = p.ContractType
		req.Description = p.Description
		req.Requirements = p.Requirements
		if len(req.BaseQuestions) == 0 {
			req.BaseQuestions = p.Questions
		}
	}

	resp, err := h.questions.Generate(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}
