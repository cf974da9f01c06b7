// Package submission sends the finished application and interprets the
// backend's answer as success, duplicate or failure.
package submission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"

	"github.com/google/uuid"
)

// ErrMissingIdentity is returned before any request when name or email is blank.
var ErrMissingIdentity = stderrors.New("name and email are required to submit")

type Backend interface {
	SubmitApplication(ctx context.Context, key string, p *models.SubmissionPayload) (models.SubmissionResult, error)
	AnalyzeSubmission(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error)
}

// SubmissionError is a failed attempt the candidate may retry by hand.
type SubmissionError struct {
	IdempotencyKey string
	Err            error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Message is the text shown to the candidate.
func (e *SubmissionError) Message() string {
	if stdErr, ok := errors.As(e.Err); ok {
		switch stdErr.Code {
		case errors.ErrCodeApplicationValidationFailed:
			return "Alguns dados estão inválidos. Revise o formulário e tente novamente."
		case errors.ErrCodeRateLimited:
			return "Muitas tentativas. Aguarde um minuto e tente novamente."
		case errors.ErrCodeRequestInProgress:
			return "Sua candidatura ainda está sendo processada. Aguarde alguns segundos."
		}
	}
	return "Não foi possível enviar sua candidatura. Verifique sua conexão e tente novamente."
}

type Config struct {
	SubmitTimeout   time.Duration
	AnalysisTimeout time.Duration
}

type Coordinator struct {
	backend Backend
	session SessionStore
	cfg     Config
	logger  logger.Logger
	newKey  func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	pendingKey     string
	pendingPayload string
}

func NewCoordinator(backend Backend, session SessionStore, cfg Config, log logger.Logger) *Coordinator {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		backend: backend,
		session: session,
		cfg:     cfg,
		logger:  log,
		newKey:  uuid.NewString,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit sends form as the final application for posting. A duplicate is a
// result, not an error. Failures come back as *SubmissionError and are never
// retried here.
func (c *Coordinator) Submit(ctx context.Context, form models.FormState, posting models.JobPosting) (models.SubmissionResult, error) {
	if strings.TrimSpace(form.Name) == "" || strings.TrimSpace(form.Email) == "" {
		return models.SubmissionResult{}, ErrMissingIdentity
	}

	payload := BuildPayload(form, posting.ID)
	key := c.keyFor(payload)

	log := c.logger.WithFields(map[string]interface{}{
		"postingId":      posting.ID,
		"idempotencyKey": key,
	})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	result, err := c.backend.SubmitApplication(ctx, key, payload)
	if err != nil {
		log.Error("application submit failed", map[string]interface{}{"error": err.Error()})
		return models.SubmissionResult{}, &SubmissionError{IdempotencyKey: key, Err: err}
	}
	c.settle(key)

	switch {
	case result.IsDuplicate():
		log.Info("candidate already applied", map[string]interface{}{
			"existingSubmissionId": result.ExistingSubmissionID,
		})
	case result.IsSuccess():
		log.Info("application submitted", map[string]interface{}{
			"submissionId": result.SubmissionID,
		})
		c.storeDiscInfo(payload, result.SubmissionID)
		c.analyzeAsync(payload, result.SubmissionID)
	}
	return result, nil
}

// keyFor reuses the key of a failed attempt when the payload is unchanged, so
// a retried request that did reach the server replays instead of racing.
func (c *Coordinator) keyFor(p *models.SubmissionPayload) string {
	fp := fingerprint(p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingKey != "" && c.pendingPayload == fp {
		return c.pendingKey
	}
	c.pendingKey = c.newKey()
	c.pendingPayload = fp
	return c.pendingKey
}

// settle forgets key once the backend gave a terminal answer for it.
func (c *Coordinator) settle(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingKey == key {
		c.pendingKey = ""
		c.pendingPayload = ""
	}
}

func fingerprint(p *models.SubmissionPayload) string {
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *Coordinator) storeDiscInfo(p *models.SubmissionPayload, submissionID string) {
	if c.session == nil {
		return
	}
	info := models.CandidateDiscInfo{
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Age:          p.Age,
		SubmissionID: submissionID,
		PostingID:    p.PostingID,
	}
	if err := c.session.Set(CandidateDiscInfoKey, info); err != nil {
		c.logger.Warn("could not store candidate_disc_info", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Coordinator) analyzeAsync(p *models.SubmissionPayload, submissionID string) {
	req := &models.AnalysisRequest{
		SubmissionID: submissionID,
		PostingID:    p.PostingID,
		Name:         p.Name,
		Email:        p.Email,
		Age:          p.Age,
		Responses:    p.Responses,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.AnalysisTimeout)
		defer cancel()

		if _, err := c.backend.AnalyzeSubmission(ctx, req); err != nil {
			c.logger.Warn("secondary analysis failed", map[string]interface{}{
				"submissionId": submissionID,
				"error":        err.Error(),
			})
			return
		}
		c.logger.Debug("secondary analysis stored", map[string]interface{}{"submissionId": submissionID})
	}()
}

// Wait blocks until outstanding analyses finish or ctx ends, leaving them
// running in the latter case.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels outstanding analyses and waits for them to return.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// BuildPayload trims every field, parses age and turns blank optional
// fields into nulls.
func BuildPayload(form models.FormState, postingID string) *models.SubmissionPayload {
	age, _ := validation.ParseAge(form.Age)

	responses := make(map[string]models.AnswerValue, len(form.Responses))
	for id, v := range form.Responses {
		responses[id] = v.Clone()
	}

	return &models.SubmissionPayload{
		PostingID: postingID,
		Name:      strings.TrimSpace(form.Name),
		Email:     strings.ToLower(strings.TrimSpace(form.Email)),
		Phone:     strings.TrimSpace(form.Phone),
		Age:       age,
		CEP:       optional(form.CEP),
		Address:   optional(form.Address),
		WhatsApp:  optional(form.WhatsApp),
		Instagram: optional(form.Instagram),
		LinkedIn:  optional(form.LinkedIn),
		Responses: responses,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
