// internal/models/application.go
package models

import (
	"strings"
	"time"
)

// FormState is the candidate's in-progress application. Age keeps the raw
// typed text; SubmissionPayload carries the parsed integer.
type FormState struct {
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone"`
	Age       string                 `json:"age"`
	CEP       string                 `json:"cep"`
	Address   string                 `json:"address"`
	WhatsApp  string                 `json:"whatsapp"`
	Instagram string                 `json:"instagram"`
	LinkedIn  string                 `json:"linkedin"`
	Responses map[string]AnswerValue `json:"responses"`
}

// Clone returns a deep copy.
func (f FormState) Clone() FormState {
	out := f
	out.Responses = make(map[string]AnswerValue, len(f.Responses))
	for k, v := range f.Responses {
		out.Responses[k] = v.Clone()
	}
	return out
}

// HasContact reports whether any field usable as a draft key is filled.
func (f FormState) HasContact() bool {
	for _, v := range []string{f.Name, f.Phone, f.WhatsApp, f.Email} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// SetAnswer stores a response, creating the map on first use.
func (f *FormState) SetAnswer(questionID string, v AnswerValue) {
	if f.Responses == nil {
		f.Responses = make(map[string]AnswerValue)
	}
	f.Responses[questionID] = v
}

// SubmissionPayload is the body of POST /applications.
type SubmissionPayload struct {
	PostingID string                 `json:"posting_id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone"`
	Age       int                    `json:"age"`
	CEP       *string                `json:"cep"`
	Address   *string                `json:"address"`
	WhatsApp  *string                `json:"whatsapp"`
	Instagram *string                `json:"instagram"`
	LinkedIn  *string                `json:"linkedin"`
	Responses map[string]AnswerValue `json:"responses"`
}

// Outcome tags a SubmissionResult.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDuplicate Outcome = "duplicate"
)

// SubmissionResult is the decoded answer of the submission endpoint: either
// a fresh submission or a signal that the candidate already applied.
type SubmissionResult struct {
	Outcome              Outcome `json:"outcome"`
	SubmissionID         string  `json:"submission_id,omitempty"`
	IdempotencyKey       string  `json:"idempotency_key,omitempty"`
	ExistingSubmissionID string  `json:"existing_submission_id,omitempty"`
}

func Success(submissionID, idempotencyKey string) SubmissionResult {
	return SubmissionResult{Outcome: OutcomeSuccess, SubmissionID: submissionID, IdempotencyKey: idempotencyKey}
}

func Duplicate(existingSubmissionID string) SubmissionResult {
	return SubmissionResult{Outcome: OutcomeDuplicate, ExistingSubmissionID: existingSubmissionID}
}

func (r SubmissionResult) IsSuccess() bool { return r.Outcome == OutcomeSuccess }
func (r SubmissionResult) IsDuplicate() bool { return r.Outcome == OutcomeDuplicate }

// SubmissionCreated is the 201 body of POST /applications.
type SubmissionCreated struct {
	SubmissionID   string    `json:"submission_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	PostingID      string    `json:"posting_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Application is a stored submission.
type Application struct {
	ID             string                 `json:"id"`
	PostingID      string                 `json:"posting_id"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone"`
	Age            int                    `json:"age"`
	CEP            *string                `json:"cep,omitempty"`
	Address        *string                `json:"address,omitempty"`
	WhatsApp       *string                `json:"whatsapp,omitempty"`
	Instagram      *string                `json:"instagram,omitempty"`
	LinkedIn       *string                `json:"linkedin,omitempty"`
	Responses      map[string]AnswerValue `json:"responses"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

// CandidateDiscInfo is handed to the behavioral-assessment flow.
type CandidateDiscInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Age          int    `json:"age"`
	SubmissionID string `json:"submission_id"`
	PostingID    string `json:"posting_id"`
}

// MaskReference shortens a submission id for display to the candidate,
// e.g. "#1A2B3C4D".
func MaskReference(submissionID string) string {
	ref := strings.ReplaceAll(submissionID, "-", "")
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "#" + strings.ToUpper(ref)
}
