package models

import "time"

// DraftRecord is a server-side partial application keyed by
// (PostingID, Email). Email may be a synthesized placeholder.
type DraftRecord struct {
	ID          string                 `json:"draft_id"`
	PostingID   string                 `json:"posting_id"`
	Email       string                 `json:"email"`
	Name        *string                `json:"name"`
	Phone       *string                `json:"phone"`
	Age         *string                `json:"age"`
	CEP         *string                `json:"cep"`
	Address     *string                `json:"address"`
	WhatsApp    *string                `json:"whatsapp"`
	Instagram   *string                `json:"instagram"`
	LinkedIn    *string                `json:"linkedin"`
	Responses   map[string]AnswerValue `json:"responses"`
	CurrentStep int                    `json:"current_step"`
	LastSavedAt time.Time              `json:"last_saved_at"`
	SubmittedAt *time.Time             `json:"submitted_at,omitempty"`
}

// FormState returns the draft as a form, blank where the draft is null.
func (d DraftRecord) FormState() FormState {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	f := FormState{
		Name:      deref(d.Name),
		Email:     d.Email,
		Phone:     deref(d.Phone),
		Age:       deref(d.Age),
		CEP:       deref(d.CEP),
		Address:   deref(d.Address),
		WhatsApp:  deref(d.WhatsApp),
		Instagram: deref(d.Instagram),
		LinkedIn:  deref(d.LinkedIn),
		Responses: make(map[string]AnswerValue, len(d.Responses)),
	}
	for k, v := range d.Responses {
		f.Responses[k] = v.Clone()
	}
	return f
}

// DraftSaveRequest is the body of PUT /drafts.
type DraftSaveRequest struct {
	PostingID    string                 `json:"posting_id"`
	Email        string                 `json:"email"`
	Name         *string                `json:"name"`
	Phone        *string                `json:"phone"`
	Age          *string                `json:"age"`
	CEP          *string                `json:"cep"`
	Address      *string                `json:"address"`
	WhatsApp     *string                `json:"whatsapp"`
	Instagram    *string                `json:"instagram"`
	LinkedIn     *string                `json:"linkedin"`
	Responses    map[string]AnswerValue `json:"responses"`
	CurrentStep  int                    `json:"current_step"`
	FormSnapshot *FormState             `json:"form_snapshot,omitempty"`
}

// DraftSaveResult is the answer of PUT /drafts.
type DraftSaveResult struct {
	DraftID     string    `json:"draft_id"`
	LastSavedAt time.Time `json:"last_saved_at"`
}
