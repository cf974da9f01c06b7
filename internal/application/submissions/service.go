// Package submissions accepts final applications: idempotent on the
// Idempotency-Key header and unique on (posting_id, email).
package submissions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/metrics"
	"application-workflow/internal/common/observability"
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const StatusSubmitted = "submitted"

const settleTimeout = 5 * time.Second

const payloadSchema = `{
	"type": "object",
	"required": ["posting_id", "name", "email", "phone", "age"],
	"properties": {
		"posting_id": {"type": "string", "minLength": 1, "maxLength": 64},
		"name":       {"type": "string", "maxLength": 200},
		"email":      {"type": "string", "maxLength": 254},
		"phone":      {"type": "string", "maxLength": 32},
		"age":        {"type": "integer"},
		"cep":        {"type": ["string", "null"], "maxLength": 9},
		"address":    {"type": ["string", "null"], "maxLength": 300},
		"whatsapp":   {"type": ["string", "null"], "maxLength": 32},
		"instagram":  {"type": ["string", "null"], "maxLength": 100},
		"linkedin":   {"type": ["string", "null"], "maxLength": 300},
		"responses": {
			"type": ["object", "null"],
			"additionalProperties": {
				"anyOf": [
					{"type": "string", "maxLength": 5000},
					{"type": "array", "items": {"type": "string"}}
				]
			}
		}
	}
}`

var schema = validation.MustSchema(payloadSchema)

type PostingReader interface {
	Get(ctx context.Context, id string) (*models.JobPosting, error)
}

type DraftCloser interface {
	MarkSubmitted(ctx context.Context, postingID, email string) error
}

// ProcessStarter starts the behavioral-assessment process for a submission.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

type Config struct {
	AssessmentProcess string
	ApplicationIndex  string
	HookTimeout       time.Duration
}

// Deps are the collaborators of Service. Process and Indexer are optional.
type Deps struct {
	Repository    *Repository
	Idempotency   *IdempotencyStore
	Postings      PostingReader
	Drafts        DraftCloser
	Process       ProcessStarter
	Indexer       DocumentIndexer
	Observability *observability.Observability
}

type Service struct {
	cfg    Config
	deps   Deps
	logger logger.Logger
	hooks  sync.WaitGroup
	now    func() time.Time
}

func NewService(cfg Config, deps Deps, log logger.Logger) *Service {
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 30 * time.Second
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"service": "submissions"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the application once per idempotency key. A pair that already
// applied yields a DUPLICATE_APPLICATION error carrying the existing id.
func (s *Service) Submit(ctx context.Context, key string, p *models.SubmissionPayload) (*models.SubmissionCreated, error) {
	ctx, span := observability.StartSpan(ctx, "applications.submit",
		attribute.String("posting.id", p.PostingID))
	defer span.End()

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.NewIdempotencyKeyRequiredError()
	}

	normalize(p)
	if err := s.validate(ctx, p); err != nil {
		s.record(ctx, "invalid")
		return nil, err
	}

	fp, err := fingerprint(p)
	if err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}

	rec, err := s.deps.Idempotency.Reserve(ctx, key, fp)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.logger.Info("replaying stored outcome", map[string]interface{}{
			"idempotencyKey": key,
			"postingId":      p.PostingID,
		})
		s.record(ctx, "replayed")
		return rec.replay()
	}

	app, existingID, err := s.create(ctx, key, p)
	if err != nil {
		relCtx, cancel := settleContext(ctx)
		relErr := s.deps.Idempotency.Release(relCtx, key)
		cancel()
		if relErr != nil {
			s.logger.Warn("failed to release idempotency key", map[string]interface{}{
				"idempotencyKey": key,
				"error":          relErr,
			})
		}
		s.record(ctx, "failed")
		return nil, err
	}

	if existingID != "" {
		s.complete(ctx, key, IdempotencyRecord{Fingerprint: fp, ExistingSubmissionID: existingID})
		s.record(ctx, "duplicate")
		s.logger.Info("duplicate application", map[string]interface{}{
			"postingId":            p.PostingID,
			"existingSubmissionId": existingID,
		})
		return nil, errors.NewDuplicateApplicationError(existingID)
	}

	created := &models.SubmissionCreated{
		SubmissionID:   app.ID,
		IdempotencyKey: key,
		PostingID:      app.PostingID,
		CreatedAt:      app.CreatedAt,
	}
	s.complete(ctx, key, IdempotencyRecord{Fingerprint: fp, Created: created})
	s.record(ctx, "created")

	s.logger.Info("application submitted", map[string]interface{}{
		"submissionId": app.ID,
		"postingId":    app.PostingID,
	})

	s.runHooks(app)
	return created, nil
}

// Close waits for post-submission hooks still running.
func (s *Service) Close() {
	s.hooks.Wait()
}

func (s *Service) validate(ctx context.Context, p *models.SubmissionPayload) error {
	result, err := schema.ValidateValue(p)
	if err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid {
		return errors.NewApplicationValidationFailedError(
			strings.Join(result.GetErrorMessages(), "; "), result.FieldMessages())
	}

	fieldErrors := validation.ValidatePersonal(validation.PersonalFields{
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
		Age:   strconv.Itoa(p.Age),
		CEP:   deref(p.CEP),
	})
	// CEP is optional on submission; only its format is enforced.
	if p.CEP == nil {
		delete(fieldErrors, "cep")
	}

	posting, err := s.deps.Postings.Get(ctx, p.PostingID)
	if err != nil {
		return err
	}
	for id, msg := range validation.MissingAnswers(posting.Questions, p.Responses) {
		fieldErrors["responses."+id] = msg
	}

	if len(fieldErrors) > 0 {
		return errors.NewApplicationValidationFailedError("one or more fields are invalid", fieldErrors)
	}
	return nil
}

func (s *Service) create(ctx context.Context, key string, p *models.SubmissionPayload) (*models.Application, string, error) {
	if id, found, err := s.deps.Repository.FindExisting(ctx, p.PostingID, p.Email); err != nil {
		return nil, "", err
	} else if found {
		return nil, id, nil
	}

	app := &models.Application{
		ID:             uuid.New().String(),
		PostingID:      p.PostingID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Age:            p.Age,
		CEP:            p.CEP,
		Address:        p.Address,
		WhatsApp:       p.WhatsApp,
		Instagram:      p.Instagram,
		LinkedIn:       p.LinkedIn,
		Responses:      p.Responses,
		IdempotencyKey: key,
		Status:         StatusSubmitted,
		CreatedAt:      s.now(),
	}

	if err := s.deps.Repository.Insert(ctx, app); err == errAlreadyApplied {
		// Lost a race with another key for the same pair.
		id, found, err := s.deps.Repository.FindExisting(ctx, p.PostingID, p.Email)
		if err != nil {
			return nil, "", err
		}
		if !found {
			return nil, "", errors.NewDatabaseInsertFailedError(errAlreadyApplied)
		}
		return nil, id, nil
	} else if err != nil {
		return nil, "", err
	}

	if err := s.deps.Drafts.MarkSubmitted(ctx, p.PostingID, p.Email); err != nil {
		s.logger.Warn("failed to close draft", map[string]interface{}{
			"submissionId": app.ID,
			"error":        err,
		})
	}
	return app, "", nil
}

func (s *Service) complete(ctx context.Context, key string, rec IdempotencyRecord) {
	ctx, cancel := settleContext(ctx)
	defer cancel()
	if err := s.deps.Idempotency.Complete(ctx, key, rec); err != nil {
		s.logger.Warn("failed to store idempotent outcome", map[string]interface{}{
			"idempotencyKey": key,
			"error":          err,
		})
	}
}

// settleContext outlives the request so a cancelled caller still leaves the
// key completed or released.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func (s *Service) record(ctx context.Context, outcome string) {
	metrics.ApplicationsSubmitted.WithLabelValues(outcome).Inc()
	s.deps.Observability.RecordSubmission(ctx, outcome)
}

// runHooks hands the submission to downstream systems in the background.
// Each hook runs independently; failures are logged.
func (s *Service) runHooks(app *models.Application) {
	if s.deps.Process == nil && s.deps.Indexer == nil {
		return
	}

	s.hooks.Add(1)
	go func() {
		defer s.hooks.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HookTimeout)
		defer cancel()

		var g errgroup.Group
		if s.deps.Process != nil {
			g.Go(func() error {
				return s.timed(ctx, "assessment_process", func(ctx context.Context) error {
					key, err := s.deps.Process.StartProcess(ctx, s.cfg.AssessmentProcess, map[string]interface{}{
						"submissionId": app.ID,
						"postingId":    app.PostingID,
						"email":        app.Email,
						"name":         app.Name,
					})
					if err == nil {
						s.logger.Info("assessment process started", map[string]interface{}{
							"submissionId":       app.ID,
							"processInstanceKey": key,
						})
					}
					return err
				})
			})
		}
		if s.deps.Indexer != nil {
			g.Go(func() error {
				return s.timed(ctx, "search_index", func(ctx context.Context) error {
					return s.deps.Indexer.IndexDocument(ctx, s.cfg.ApplicationIndex, app.ID, app)
				})
			})
		}
		_ = g.Wait()
	}()
}

func (s *Service) timed(ctx context.Context, hook string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "applications.hook."+hook)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		s.logger.Warn("post-submission hook failed", map[string]interface{}{
			"hook":  hook,
			"error": err,
		})
	}
	s.deps.Observability.RecordHookDuration(ctx, hook, time.Since(start), status)
	return err
}

// normalize trims every field and turns blank optionals into nil.
func normalize(p *models.SubmissionPayload) {
	p.PostingID = strings.TrimSpace(p.PostingID)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	for _, f := range []**string{&p.CEP, &p.Address, &p.WhatsApp, &p.Instagram, &p.LinkedIn} {
		if *f == nil {
			continue
		}
		if v := strings.TrimSpace(**f); v != "" {
			*f = &v
		} else {
			*f = nil
		}
	}
	if p.Responses == nil {
		p.Responses = map[string]models.AnswerValue{}
	}
}

func fingerprint(p *models.SubmissionPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
