package submissions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency:application:"

	statePending = "pending"
	stateDone    = "done"

	// DefaultPendingTTL bounds how long a reservation survives a request
	// that never reached Complete or Release.
	DefaultPendingTTL = time.Minute
)

// IdempotencyRecord is what a key resolves to while it lives in Redis.
type IdempotencyRecord struct {
	State                string                    `json:"state"`
	Fingerprint          string                    `json:"fingerprint"`
	Created              *models.SubmissionCreated `json:"created,omitempty"`
	ExistingSubmissionID string                    `json:"existing_submission_id,omitempty"`
	RecordedAt           time.Time                 `json:"recorded_at"`
}

// IdempotencyStore records the outcome of each Idempotency-Key so a replayed
// request returns the original answer without re-running side effects.
type IdempotencyStore struct {
	redis      *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore keeps outcomes for ttl and in-flight reservations for
// pendingTTL (DefaultPendingTTL when zero).
func NewIdempotencyStore(rdb *redis.Client, ttl, pendingTTL time.Duration) *IdempotencyStore {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &IdempotencyStore{redis: rdb, ttl: ttl, pendingTTL: pendingTTL}
}

// Reserve claims key for a new request. It returns the stored record when the
// key already finished, and REQUEST_IN_PROGRESS while another holder runs.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (*IdempotencyRecord, error) {
	pending, err := json.Marshal(IdempotencyRecord{
		State:       statePending,
		Fingerprint: fingerprint,
		RecordedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.redis.SetNX(ctx, idempotencyPrefix+key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.redis.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == redis.Nil {
		// Expired between SETNX and GET; the caller may simply retry.
		return nil, errors.NewRequestInProgressError(key)
	}
	if err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.NewExternalServiceError("redis", fmt.Errorf("corrupt idempotency record: %w", err))
	}
	if rec.Fingerprint != fingerprint {
		return nil, errors.NewBusinessRuleError(
			"Idempotency-Key was already used with a different payload",
			fmt.Sprintf("idempotencyKey: %s", key),
		)
	}
	if rec.State != stateDone {
		return nil, errors.NewRequestInProgressError(key)
	}
	return &rec, nil
}

// Complete stores the terminal outcome for key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, rec IdempotencyRecord) error {
	rec.State = stateDone
	rec.RecordedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, idempotencyPrefix+key, data, s.ttl).Err()
}

// Release drops a reservation whose request failed without a terminal
// outcome, so the same key can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.redis.Del(ctx, idempotencyPrefix+key).Err()
}

// replay turns a stored record back into the original answer.
func (rec *IdempotencyRecord) replay() (*models.SubmissionCreated, error) {
	if rec.ExistingSubmissionID != "" {
		return nil, errors.NewDuplicateApplicationError(rec.ExistingSubmissionID)
	}
	return rec.Created, nil
}
