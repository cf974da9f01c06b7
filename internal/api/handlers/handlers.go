package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/models"
)

type PostingService interface {
	Get(ctx context.Context, id string) (*models.JobPosting, error)
}

type QuestionService interface {
	Generate(ctx context.Context, req *models.GenerateQuestionsRequest) (*models.GenerateQuestionsResponse, error)
}

type DraftService interface {
	Save(ctx context.Context, req *models.DraftSaveRequest) (*models.DraftSaveResult, error)
	Find(ctx context.Context, postingID, email string) (*models.DraftRecord, error)
}

type SubmissionService interface {
	Submit(ctx context.Context, idempotencyKey string, p *models.SubmissionPayload) (*models.SubmissionCreated, error)
}

type AnalysisService interface {
	Analyze(ctx context.Context, submissionID string, req *models.AnalysisRequest) (*models.Analysis, error)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.NewInvalidRequestError("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewInvalidRequestError("request body too large")
		}
		return errors.NewInvalidRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}

// pathParam returns the segment after prefix up to the next slash.
func pathParam(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}
