package models

import "time"

// AnalysisRequest is the body of POST /applications/{id}/analysis.
type AnalysisRequest struct {
	SubmissionID string                 `json:"submission_id"`
	PostingID    string                 `json:"posting_id"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Age          int                    `json:"age"`
	Responses    map[string]AnswerValue `json:"responses"`
}

// Analysis is the secondary AI reading of a submission.
type Analysis struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	PostingID    string    `json:"posting_id"`
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Concerns     []string  `json:"concerns"`
	FitScore     int       `json:"fit_score"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
