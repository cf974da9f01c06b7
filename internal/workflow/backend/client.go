// Package backend is the candidate-side client of the application API.
// Responses are decoded once here into typed results.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"application-workflow/internal/common/errors"
	apphttp "application-workflow/internal/common/http"
	"application-workflow/internal/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// APIError is a non-2xx answer that is not a recognised outcome.
type APIError struct {
	StatusCode int
	Err        *errors.StandardError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Err.Error())
}

func (e *APIError) Unwrap() error { return e.Err }

type Client struct {
	http    *apphttp.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    apphttp.NewClient(timeout),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) GetPosting(ctx context.Context, id string) (*models.JobPosting, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/postings/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("backend", err)
	}
	var p models.JobPosting
	if err := decodeOK(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) SaveDraft(ctx context.Context, req *models.DraftSaveRequest) (*models.DraftSaveResult, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodPut, c.baseURL+"/drafts", req, nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("backend", err)
	}
	var res models.DraftSaveResult
	if err := decodeOK(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FindDraft returns nil without error when no draft exists for the key.
func (c *Client) FindDraft(ctx context.Context, postingID, email string) (*models.DraftRecord, error) {
	q := url.Values{}
	q.Set("posting_id", postingID)
	q.Set("email", email)

	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/drafts?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("backend", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var d models.DraftRecord
	if err := decodeOK(resp, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GenerateQuestions(ctx context.Context, req *models.GenerateQuestionsRequest) ([]models.Question, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/questions/generate", req, nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("backend", err)
	}
	var out models.GenerateQuestionsResponse
	if err := decodeOK(resp, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// SubmitApplication posts the final payload. A candidate who already applied
// is a Duplicate result, not an error.
func (c *Client) SubmitApplication(ctx context.Context, key string, p *models.SubmissionPayload) (models.SubmissionResult, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/applications", p,
		map[string]string{IdempotencyKeyHeader: key})
	if err != nil {
		return models.SubmissionResult{}, errors.NewExternalServiceError("backend", err)
	}

	if resp.IsSuccess() {
		var created models.SubmissionCreated
		if err := resp.Decode(&created); err != nil || created.SubmissionID == "" {
			return models.SubmissionResult{}, &APIError{
				StatusCode: resp.StatusCode,
				Err:        errors.NewExternalServiceError("backend", fmt.Errorf("success without submission id")),
			}
		}
		return models.Success(created.SubmissionID, key), nil
	}

	apiErr := decodeError(resp)
	if existing := existingSubmissionID(apiErr.Err); existing != "" &&
		(apiErr.Err.Code == errors.ErrCodeDuplicateApplication || resp.StatusCode == http.StatusConflict) {
		return models.Duplicate(existing), nil
	}
	return models.SubmissionResult{}, apiErr
}

func (c *Client) AnalyzeSubmission(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	path := c.baseURL + "/applications/" + url.PathEscape(req.SubmissionID) + "/analysis"
	resp, err := c.http.DoJSON(ctx, http.MethodPost, path, req, nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("backend", err)
	}
	var a models.Analysis
	if err := decodeOK(resp, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeOK(resp *apphttp.Response, v interface{}) error {
	if !resp.IsSuccess() {
		return decodeError(resp)
	}
	if err := resp.Decode(v); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Err: errors.NewExternalServiceError("backend", err)}
	}
	return nil
}

func decodeError(resp *apphttp.Response) *APIError {
	var body struct {
		Error *errors.StandardError `json:"error"`
	}
	if err := resp.Decode(&body); err != nil || body.Error == nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Err: errors.NewExternalServiceError("backend",
				fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(resp.Body), 200))),
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Err: body.Error}
}

func existingSubmissionID(e *errors.StandardError) string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	id, _ := e.Metadata["existing_submission_id"].(string)
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
