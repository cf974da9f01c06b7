// Package postsubmit decides what the candidate sees after submitting.
package postsubmit

import (
	"context"
	"net/url"
	"time"

	"application-workflow/internal/models"
)

const DefaultRedirectDelay = 1500 * time.Millisecond

type ModalAction string

const (
	ActionClose          ModalAction = "close"
	ActionBrowsePostings ModalAction = "browse-postings"
)

// Navigation sends the candidate to the assessment after Delay.
type Navigation struct {
	URL   string
	Delay time.Duration
}

// DuplicateModal tells the candidate they already applied. Nothing happens
// until they pick an action.
type DuplicateModal struct {
	PostingTitle    string
	MaskedReference string
	Actions         []ModalAction
	PostingsURL     string
}

// Decision holds exactly one of Navigation or Modal.
type Decision struct {
	Navigation *Navigation
	Modal      *DuplicateModal
}

type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

type Config struct {
	AssessmentRoute string
	PostingsRoute   string
	Delay           time.Duration
}

type Router struct {
	cfg Config
}

func NewRouter(cfg Config) *Router {
	if cfg.AssessmentRoute == "" {
		cfg.AssessmentRoute = "/teste-disc"
	}
	if cfg.PostingsRoute == "" {
		cfg.PostingsRoute = "/vagas"
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultRedirectDelay
	}
	return &Router{cfg: cfg}
}

func (r *Router) Route(result models.SubmissionResult, posting models.JobPosting) Decision {
	if result.IsDuplicate() {
		return Decision{Modal: &DuplicateModal{
			PostingTitle:    posting.Title,
			MaskedReference: models.MaskReference(result.ExistingSubmissionID),
			Actions:         []ModalAction{ActionClose, ActionBrowsePostings},
			PostingsURL:     r.cfg.PostingsRoute,
		}}
	}

	q := url.Values{}
	q.Set("submission_id", result.SubmissionID)
	q.Set("posting_id", posting.ID)
	return Decision{Navigation: &Navigation{
		URL:   r.cfg.AssessmentRoute + "?" + q.Encode(),
		Delay: r.cfg.Delay,
	}}
}

// Follow waits nav.Delay and then navigates. It returns ctx.Err() without
// navigating if ctx ends first.
func (r *Router) Follow(ctx context.Context, nav Navigation, to Navigator) error {
	t := time.NewTimer(nav.Delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return to.Navigate(ctx, nav.URL)
}
