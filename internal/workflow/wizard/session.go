// Package wizard drives one candidate through a posting's application:
// personal data, one step per question, then submission.
package wizard

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"
	"application-workflow/internal/workflow/augment"
	"application-workflow/internal/workflow/draftsync"
	"application-workflow/internal/workflow/localdraft"
	"application-workflow/internal/workflow/postsubmit"
	"application-workflow/internal/workflow/steps"
	"application-workflow/internal/workflow/submission"
)

// ButtonState is the submit control as the candidate sees it.
type ButtonState string

const (
	ButtonIdle                ButtonState = "idle"
	ButtonSubmitting          ButtonState = "submitting"
	ButtonSuccessRedirecting  ButtonState = "success_redirecting"
	ButtonDuplicateModalShown ButtonState = "duplicate_modal_shown"
	ButtonErrorShown          ButtonState = "error_shown"
)

var (
	ErrSubmitInProgress = stderrors.New("submission already in progress")
	ErrAlreadySubmitted = stderrors.New("application already finished")
	ErrNotOpen          = stderrors.New("session not opened")
)

// StepError blocks navigation at Step.
type StepError struct {
	Step        int
	FieldErrors map[string]string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d has %d invalid field(s)", e.Step, len(e.FieldErrors))
}

// Backend is every endpoint the wizard talks to.
type Backend interface {
	GetPosting(ctx context.Context, id string) (*models.JobPosting, error)
	draftsync.Backend
	augment.Generator
	submission.Backend
}

type Config struct {
	PostingID      string
	Drafts         draftsync.Config
	Redirect       postsubmit.Config
	RequestTimeout time.Duration
}

type Deps struct {
	Backend Backend
	Cache   localdraft.Cache
	Session submission.SessionStore
}

// View is a consistent snapshot of the session for rendering.
type View struct {
	Posting     models.JobPosting
	Form        models.FormState
	Step        int
	StepCount   int
	Question    *models.Question
	FieldErrors map[string]string
	Button      ButtonState
	Saved       *draftsync.Status
	Decision    *postsubmit.Decision
	Error       string
}

type Session struct {
	cfg     Config
	backend Backend
	cache   localdraft.Cache
	logger  logger.Logger

	drafts    *draftsync.Synchronizer
	augmenter *augment.Augmenter
	submitter *submission.Coordinator
	router    *postsubmit.Router

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	opened      bool
	posting     models.JobPosting
	form        models.FormState
	step        int
	fieldErrors map[string]string
	button      ButtonState
	decision    *postsubmit.Decision
	lastErr     string
}

func New(cfg Config, deps Deps, log logger.Logger) *Session {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	cache := deps.Cache
	if cache == nil {
		cache = localdraft.NewMemoryCache()
	}
	session := deps.Session
	if session == nil {
		session = submission.NewMemorySession()
	}
	log = log.WithFields(map[string]interface{}{"postingId": cfg.PostingID})

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:       cfg,
		backend:   deps.Backend,
		cache:     cache,
		logger:    log,
		drafts:    draftsync.New(deps.Backend, cfg.Drafts, log),
		augmenter: augment.New(deps.Backend, cfg.RequestTimeout*2, log),
		submitter: submission.NewCoordinator(deps.Backend, session, submission.Config{SubmitTimeout: cfg.RequestTimeout}, log),
		router:    postsubmit.NewRouter(cfg.Redirect),
		ctx:       ctx,
		cancel:    cancel,
		button:    ButtonIdle,
	}
}

// Open fetches the posting, restores the local then the remote draft and
// starts question augmentation in the background.
func (s *Session) Open(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	posting, err := s.backend.GetPosting(reqCtx, s.cfg.PostingID)
	if err != nil {
		return err
	}

	form, _ := s.cache.Load(posting.ID)
	form, step := s.drafts.Restore(reqCtx, posting.ID, form)

	s.mu.Lock()
	s.posting = posting.Clone()
	s.form = form
	s.step = clamp(step, 0, steps.StepCount(s.posting)-1)
	s.opened = true
	base := s.posting.Clone()
	s.mu.Unlock()

	if step >= 0 {
		s.logger.Info("draft restored", map[string]interface{}{"step": step})
	}

	s.augmenter.Start(s.ctx, base, s.appendQuestions)
	return nil
}

func (s *Session) appendQuestions(qs []models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posting.AppendQuestions(qs)
}

// Update applies fn to the form, caches it locally and schedules the
// remote autosave.
func (s *Session) Update(fn func(*models.FormState)) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return ErrNotOpen
	}
	fn(&s.form)
	s.fieldErrors = nil
	form := s.form.Clone()
	postingID, step := s.posting.ID, s.step
	s.mu.Unlock()

	s.cache.Save(postingID, form)
	s.drafts.ScheduleSave(postingID, form, step)
	return nil
}

// Next advances when the current step is valid. On the last step it only
// validates; Submit is the way forward from there.
func (s *Session) Next() (steps.Result, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return steps.Result{}, ErrNotOpen
	}
	r := steps.Validate(s.step, s.form, s.posting)
	if !r.Valid {
		s.fieldErrors = r.FieldErrors
		s.mu.Unlock()
		return r, &StepError{Step: s.step, FieldErrors: r.FieldErrors}
	}
	s.fieldErrors = nil
	if s.step < steps.StepCount(s.posting)-1 {
		s.step++
	}
	form, postingID, step := s.form.Clone(), s.posting.ID, s.step
	s.mu.Unlock()

	s.drafts.ScheduleSave(postingID, form, step)
	return r, nil
}

func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > 0 {
		s.step--
	}
	s.fieldErrors = nil
}

// Submit runs the submit control: every step must validate, a second call
// while one is in flight is rejected, and the outcome becomes the button
// state and the routing decision.
func (s *Session) Submit(ctx context.Context) (postsubmit.Decision, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return postsubmit.Decision{}, ErrNotOpen
	}
	switch s.button {
	case ButtonSubmitting:
		s.mu.Unlock()
		return postsubmit.Decision{}, ErrSubmitInProgress
	case ButtonSuccessRedirecting, ButtonDuplicateModalShown:
		s.mu.Unlock()
		return postsubmit.Decision{}, ErrAlreadySubmitted
	}
	if step, r := steps.ValidateAll(s.form, s.posting); !r.Valid {
		s.step = step
		s.fieldErrors = r.FieldErrors
		s.mu.Unlock()
		return postsubmit.Decision{}, &StepError{Step: step, FieldErrors: r.FieldErrors}
	}
	s.button = ButtonSubmitting
	s.lastErr = ""
	form, posting := s.form.Clone(), s.posting.Clone()
	s.mu.Unlock()

	result, err := s.submitter.Submit(ctx, form, posting)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.button = ButtonErrorShown
		s.lastErr = err.Error()
		var subErr *submission.SubmissionError
		if stderrors.As(err, &subErr) {
			s.lastErr = subErr.Message()
		}
		return postsubmit.Decision{}, err
	}

	s.drafts.Cancel(posting.ID)
	d := s.router.Route(result, posting)
	s.decision = &d
	if d.Modal != nil {
		s.button = ButtonDuplicateModalShown
	} else {
		s.button = ButtonSuccessRedirecting
	}
	return d, nil
}

// Redirect follows the success navigation after its delay.
func (s *Session) Redirect(ctx context.Context, to postsubmit.Navigator) error {
	s.mu.Lock()
	d := s.decision
	s.mu.Unlock()
	if d == nil || d.Navigation == nil {
		return fmt.Errorf("no redirect pending")
	}
	return s.router.Follow(ctx, *d.Navigation, to)
}

// DismissModal closes the duplicate modal. The application stays finished.
func (s *Session) DismissModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decision != nil {
		s.decision.Modal = nil
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Posting:     s.posting.Clone(),
		Form:        s.form.Clone(),
		Step:        s.step,
		StepCount:   steps.StepCount(s.posting),
		FieldErrors: s.fieldErrors,
		Button:      s.button,
		Decision:    s.decision,
		Error:       s.lastErr,
	}
	if q, ok := steps.QuestionAt(s.step, s.posting); ok {
		v.Question = &q
	}
	if st, ok := s.drafts.Status(s.posting.ID); ok {
		v.Saved = &st
	}
	return v
}

// WaitAugmentation blocks until background question generation is done.
func (s *Session) WaitAugmentation() {
	s.augmenter.Wait()
}

// WaitAnalysis gives the post-submission analysis until ctx ends to finish.
func (s *Session) WaitAnalysis(ctx context.Context) error {
	return s.submitter.Wait(ctx)
}

// Close stops autosave timers, background generation and analyses.
func (s *Session) Close() {
	s.cancel()
	s.drafts.Close()
	s.augmenter.Wait()
	s.submitter.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
