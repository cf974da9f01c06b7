// Package draftsync autosaves the candidate's form to the backend after a
// quiet period and restores it when the candidate comes back.
package draftsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"
)

const (
	DefaultDelay             = 2 * time.Second
	DefaultPlaceholderDomain = "candidatos.local"
	defaultSaveTimeout       = 15 * time.Second
)

// Backend is the slice of the API client the synchronizer needs.
type Backend interface {
	SaveDraft(ctx context.Context, req *models.DraftSaveRequest) (*models.DraftSaveResult, error)
	FindDraft(ctx context.Context, postingID, email string) (*models.DraftRecord, error)
}

type Config struct {
	Delay             time.Duration
	PlaceholderDomain string
	SaveTimeout       time.Duration
}

// Status is what the "saved" indicator shows.
type Status struct {
	DraftID     string
	LastSavedAt time.Time
}

type pending struct {
	timer *time.Timer
}

// Synchronizer owns one debounce timer per posting. The zero value is not
// usable; call New.
type Synchronizer struct {
	backend Backend
	cfg     Config
	logger  logger.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]*pending
	status  map[string]Status
	closed  bool
	wg      sync.WaitGroup

	// OnSaved, when set, is called after every successful save.
	OnSaved func(postingID string, st Status)
}

func New(backend Backend, cfg Config, log logger.Logger) *Synchronizer {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.PlaceholderDomain == "" {
		cfg.PlaceholderDomain = DefaultPlaceholderDomain
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		backend: backend,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*pending),
		status:  make(map[string]Status),
	}
}

// ScheduleSave restarts the countdown for postingID. Only the form given to
// the last call before the timer fires is saved.
func (s *Synchronizer) ScheduleSave(postingID string, form models.FormState, currentStep int) {
	form = form.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if p, ok := s.pending[postingID]; ok {
		p.timer.Stop()
	}

	p := &pending{}
	p.timer = time.AfterFunc(s.cfg.Delay, func() {
		s.fire(postingID, p, form, currentStep)
	})
	s.pending[postingID] = p
}

func (s *Synchronizer) fire(postingID string, p *pending, form models.FormState, currentStep int) {
	s.mu.Lock()
	if s.closed || s.pending[postingID] != p {
		s.mu.Unlock()
		return
	}
	delete(s.pending, postingID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.save(postingID, form, currentStep)
}

func (s *Synchronizer) save(postingID string, form models.FormState, currentStep int) {
	if !form.HasContact() {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SaveTimeout)
	defer cancel()

	snapshot := form.Clone()
	req := &models.DraftSaveRequest{
		PostingID:    postingID,
		Email:        s.KeyEmail(form),
		Name:         optional(form.Name),
		Phone:        optional(form.Phone),
		Age:          optional(form.Age),
		CEP:          optional(form.CEP),
		Address:      optional(form.Address),
		WhatsApp:     optional(form.WhatsApp),
		Instagram:    optional(form.Instagram),
		LinkedIn:     optional(form.LinkedIn),
		Responses:    form.Responses,
		CurrentStep:  currentStep,
		FormSnapshot: &snapshot,
	}

	res, err := s.backend.SaveDraft(ctx, req)
	if err != nil {
		s.logger.Warn("draft autosave failed", map[string]interface{}{
			"postingId": postingID,
			"error":     err.Error(),
		})
		return
	}

	st := Status{DraftID: res.DraftID, LastSavedAt: res.LastSavedAt}
	s.mu.Lock()
	s.status[postingID] = st
	onSaved := s.OnSaved
	s.mu.Unlock()

	s.logger.Debug("draft autosaved", map[string]interface{}{
		"postingId": postingID,
		"draftId":   res.DraftID,
		"step":      currentStep,
	})
	if onSaved != nil {
		onSaved(postingID, st)
	}
}

// Cancel drops the pending save for postingID, if any.
func (s *Synchronizer) Cancel(postingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[postingID]; ok {
		p.timer.Stop()
		delete(s.pending, postingID)
	}
}

// Status reports the last successful save for postingID.
func (s *Synchronizer) Status(postingID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[postingID]
	return st, ok
}

// KeyEmail is the draft key for form: the normalized email when typed,
// otherwise a placeholder derived from phone, whatsapp or the clock.
func (s *Synchronizer) KeyEmail(form models.FormState) string {
	if email := strings.ToLower(strings.TrimSpace(form.Email)); email != "" {
		return email
	}
	return s.placeholder(form)
}

func (s *Synchronizer) placeholder(form models.FormState) string {
	digits := validation.Digits(form.Phone)
	if digits == "" {
		digits = validation.Digits(form.WhatsApp)
	}
	if digits == "" {
		digits = fmt.Sprintf("%d", s.now().UnixMilli())
	}
	return fmt.Sprintf("lead_%s@temp.%s", digits, s.cfg.PlaceholderDomain)
}

// Restore merges the remote draft matching local into it. Remote wins for
// every field it has filled; responses are unioned with remote winning per
// question. The returned step is the remote one, or -1 when nothing was found.
// Lookup failures leave local untouched.
func (s *Synchronizer) Restore(ctx context.Context, postingID string, local models.FormState) (models.FormState, int) {
	local = local.Clone()
	if strings.TrimSpace(local.Email) == "" && validation.Digits(local.Phone) == "" && validation.Digits(local.WhatsApp) == "" {
		return local, -1
	}

	key := s.KeyEmail(local)
	remote, err := s.backend.FindDraft(ctx, postingID, key)
	if err != nil {
		s.logger.Warn("draft lookup failed", map[string]interface{}{
			"postingId": postingID,
			"error":     err.Error(),
		})
		return local, -1
	}
	if remote == nil {
		return local, -1
	}

	s.mu.Lock()
	s.status[postingID] = Status{DraftID: remote.ID, LastSavedAt: remote.LastSavedAt}
	s.mu.Unlock()

	merged := Merge(local, remote.FormState())
	// a placeholder key is not something the candidate typed
	if strings.HasPrefix(remote.Email, "lead_") && strings.Contains(remote.Email, "@temp.") {
		merged.Email = local.Email
	}
	return merged, remote.CurrentStep
}

// Merge overlays remote on local: any non-blank remote field replaces the
// local one, and responses are unioned with remote winning on shared ids.
func Merge(local, remote models.FormState) models.FormState {
	out := local.Clone()
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&out.Name, remote.Name)
	pick(&out.Email, remote.Email)
	pick(&out.Phone, remote.Phone)
	pick(&out.Age, remote.Age)
	pick(&out.CEP, remote.CEP)
	pick(&out.Address, remote.Address)
	pick(&out.WhatsApp, remote.WhatsApp)
	pick(&out.Instagram, remote.Instagram)
	pick(&out.LinkedIn, remote.LinkedIn)

	for id, v := range remote.Responses {
		if v.IsBlank() {
			if _, ok := out.Responses[id]; ok {
				continue
			}
		}
		out.SetAnswer(id, v.Clone())
	}
	return out
}

// Close stops pending timers, cancels in-flight saves and waits for them.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
