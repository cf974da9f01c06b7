// Package drafts stores partial applications keyed by (posting_id, email).
package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/metrics"
	"application-workflow/internal/models"

	"github.com/google/uuid"
)

type Service struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"service": "drafts"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail is the key form of an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Save upserts the draft. Concurrent saves for the same key resolve as
// last-write-wins.
func (s *Service) Save(ctx context.Context, req *models.DraftSaveRequest) (*models.DraftSaveResult, error) {
	email := NormalizeEmail(req.Email)
	if strings.TrimSpace(req.PostingID) == "" || email == "" {
		return nil, errors.NewInvalidRequestError("posting_id and email are required")
	}
	if req.CurrentStep < 0 {
		return nil, errors.NewInvalidRequestError("current_step must not be negative")
	}

	responses := req.Responses
	if responses == nil {
		responses = map[string]models.AnswerValue{}
	}
	responsesJSON, err := json.Marshal(responses)
	if err != nil {
		return nil, errors.NewInvalidRequestError("responses: " + err.Error())
	}
	snapshotJSON := []byte("{}")
	if req.FormSnapshot != nil {
		if snapshotJSON, err = json.Marshal(req.FormSnapshot); err != nil {
			return nil, errors.NewInvalidRequestError("form_snapshot: " + err.Error())
		}
	}

	var result models.DraftSaveResult
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO application_drafts (
			id, posting_id, email, name, phone, age, cep, address, whatsapp,
			instagram, linkedin, responses, form_snapshot, current_step, last_saved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (posting_id, email) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			age = EXCLUDED.age,
			cep = EXCLUDED.cep,
			address = EXCLUDED.address,
			whatsapp = EXCLUDED.whatsapp,
			instagram = EXCLUDED.instagram,
			linkedin = EXCLUDED.linkedin,
			responses = EXCLUDED.responses,
			form_snapshot = EXCLUDED.form_snapshot,
			current_step = EXCLUDED.current_step,
			last_saved_at = EXCLUDED.last_saved_at
		RETURNING id, last_saved_at`,
		uuid.New().String(),
		req.PostingID,
		email,
		nullable(req.Name),
		nullable(req.Phone),
		nullable(req.Age),
		nullable(req.CEP),
		nullable(req.Address),
		nullable(req.WhatsApp),
		nullable(req.Instagram),
		nullable(req.LinkedIn),
		responsesJSON,
		snapshotJSON,
		req.CurrentStep,
		s.now(),
	).Scan(&result.DraftID, &result.LastSavedAt)
	if err != nil {
		metrics.DraftsSaved.WithLabelValues("error").Inc()
		return nil, errors.NewDraftSaveFailedError(err)
	}

	metrics.DraftsSaved.WithLabelValues("ok").Inc()
	s.logger.Debug("draft saved", map[string]interface{}{
		"draftId":     result.DraftID,
		"postingId":   req.PostingID,
		"currentStep": req.CurrentStep,
	})
	return &result, nil
}

// Find returns the open draft for the key, ignoring drafts superseded by
// a submission.
func (s *Service) Find(ctx context.Context, postingID, email string) (*models.DraftRecord, error) {
	email = NormalizeEmail(email)
	if postingID == "" || email == "" {
		return nil, errors.NewInvalidRequestError("posting_id and email are required")
	}

	var (
		d         models.DraftRecord
		responses []byte
		fields    [8]sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, posting_id, email, name, phone, age, cep, address, whatsapp,
		       instagram, linkedin, responses, current_step, last_saved_at
		FROM application_drafts
		WHERE posting_id = $1 AND email = $2 AND submitted_at IS NULL`, postingID, email).
		Scan(&d.ID, &d.PostingID, &d.Email,
			&fields[0], &fields[1], &fields[2], &fields[3], &fields[4], &fields[5], &fields[6], &fields[7],
			&responses, &d.CurrentStep, &d.LastSavedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewDraftNotFoundError(postingID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("draft_lookup", err)
	}

	targets := []**string{&d.Name, &d.Phone, &d.Age, &d.CEP, &d.Address, &d.WhatsApp, &d.Instagram, &d.LinkedIn}
	for i, f := range fields {
		if f.Valid {
			v := f.String
			*targets[i] = &v
		}
	}

	d.Responses = map[string]models.AnswerValue{}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &d.Responses); err != nil {
			return nil, errors.NewQueryExecutionFailedError("draft_responses", err)
		}
	}
	return &d, nil
}

// MarkSubmitted closes the draft once a final submission exists for the key.
func (s *Service) MarkSubmitted(ctx context.Context, postingID, email string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE application_drafts SET submitted_at = $3
		WHERE posting_id = $1 AND email = $2 AND submitted_at IS NULL`,
		postingID, NormalizeEmail(email), s.now())
	if err != nil {
		return errors.NewQueryExecutionFailedError("draft_mark_submitted", err)
	}
	return nil
}

// nullable stores blank optional fields as NULL.
func nullable(p *string) interface{} {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return strings.TrimSpace(*p)
}
