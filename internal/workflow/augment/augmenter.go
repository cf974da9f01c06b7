// Package augment extends a posting's question list with generated
// questions in the background.
package augment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/google/uuid"
)

type Generator interface {
	GenerateQuestions(ctx context.Context, req *models.GenerateQuestionsRequest) ([]models.Question, error)
}

type Augmenter struct {
	gen     Generator
	logger  logger.Logger
	timeout time.Duration
	newID   func(n int) string

	once sync.Once
	wg   sync.WaitGroup
}

func New(gen Generator, timeout time.Duration, log logger.Logger) *Augmenter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Augmenter{
		gen:     gen,
		logger:  log,
		timeout: timeout,
		newID:   syntheticID,
	}
}

func syntheticID(n int) string {
	return fmt.Sprintf("ai_%d_%s", n, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// FetchAugmented asks the generator for extra questions and returns them
// with ids that are present and unique against posting.
func (a *Augmenter) FetchAugmented(ctx context.Context, posting models.JobPosting) ([]models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := &models.GenerateQuestionsRequest{
		PostingID:     posting.ID,
		Title:         posting.Title,
		PositionTitle: posting.PositionTitle,
		Department:    posting.Department,
		Modality:      posting.Modality,
		ContractType:  posting.ContractType,
		Description:   posting.Description,
		Requirements:  posting.Requirements,
		BaseQuestions: posting.Questions,
	}
	generated, err := a.gen.GenerateQuestions(ctx, req)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(posting.Questions)+len(generated))
	for _, q := range posting.Questions {
		taken[q.ID] = true
	}

	out := make([]models.Question, 0, len(generated))
	for i, q := range generated {
		if strings.TrimSpace(q.Title) == "" {
			continue
		}
		id := strings.TrimSpace(q.ID)
		for id == "" || taken[id] {
			id = a.newID(i + 1)
		}
		q.ID = id
		taken[id] = true
		out = append(out, q)
	}
	return out, nil
}

// Start runs FetchAugmented once in the background and hands the result to
// apply. Later calls are ignored. Failures are logged and apply is not called.
func (a *Augmenter) Start(ctx context.Context, posting models.JobPosting, apply func([]models.Question)) {
	a.once.Do(func() {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()

			qs, err := a.FetchAugmented(ctx, posting)
			if err != nil {
				a.logger.Warn("question augmentation failed, keeping base questions", map[string]interface{}{
					"postingId": posting.ID,
					"error":     err.Error(),
				})
				return
			}
			if len(qs) == 0 {
				return
			}
			a.logger.Info("posting augmented", map[string]interface{}{
				"postingId": posting.ID,
				"added":     len(qs),
			})
			apply(qs)
		}()
	})
}

// Wait blocks until a started augmentation has finished.
func (a *Augmenter) Wait() {
	a.wg.Wait()
}
