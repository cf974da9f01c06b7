// Package postings serves job postings with a Redis read-through cache.
package postings

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "posting:"

type Service struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewService(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"service": "postings"}),
	}
}

// Get returns an active posting with its base questions.
func (s *Service) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	cacheKey := cachePrefix + id
	if cached, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
		var p models.JobPosting
		if err := json.Unmarshal(cached, &p); err == nil {
			return &p, nil
		}
		s.logger.Warn("discarding unreadable cached posting", map[string]interface{}{"postingId": id})
	} else if err != redis.Nil {
		s.logger.Warn("posting cache read failed", map[string]interface{}{"postingId": id, "error": err})
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
			s.logger.Warn("posting cache write failed", map[string]interface{}{"postingId": id, "error": err})
		}
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.JobPosting, error) {
	var (
		p                    models.JobPosting
		salaryMin, salaryMax sql.NullFloat64
		questions            []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, position_title, department, salary_min, salary_max,
		       modality, contract_type, description, requirements, questions
		FROM job_postings
		WHERE id = $1 AND active = TRUE`, id).
		Scan(&p.ID, &p.Title, &p.PositionTitle, &p.Department, &salaryMin, &salaryMax,
			&p.Modality, &p.ContractType, &p.Description, &p.Requirements, &questions)
	if err == sql.ErrNoRows {
		return nil, errors.NewPostingNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("posting_lookup", err)
	}

	if salaryMin.Valid {
		p.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		p.SalaryMax = &salaryMax.Float64
	}
	p.Questions = []models.Question{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &p.Questions); err != nil {
			return nil, errors.NewQueryExecutionFailedError("posting_questions", err)
		}
	}
	return &p, nil
}
