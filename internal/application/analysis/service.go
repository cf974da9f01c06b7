// Package analysis produces and stores the secondary AI reading of a
// submitted application.
package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/llm"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/google/uuid"
)

type Service struct {
	db        *sql.DB
	generator llm.Generator
	model     string
	logger    logger.Logger
	now       func() time.Time
}

func NewService(db *sql.DB, generator llm.Generator, model string, log logger.Logger) *Service {
	return &Service{
		db:        db,
		generator: generator,
		model:     model,
		logger:    log.WithFields(map[string]interface{}{"service": "analysis"}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type modelAnswer struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Concerns  []string `json:"concerns"`
	FitScore  float64  `json:"fit_score"`
}

// Analyze returns the stored analysis of a submission, generating it on the
// first call.
func (s *Service) Analyze(ctx context.Context, submissionID string, req *models.AnalysisRequest) (*models.Analysis, error) {
	if req.SubmissionID != "" && req.SubmissionID != submissionID {
		return nil, errors.NewInvalidRequestError("submission_id does not match the path")
	}

	postingID, err := s.applicationPosting(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if req.PostingID != "" && req.PostingID != postingID {
		return nil, errors.NewInvalidRequestError("posting_id does not match the submission")
	}

	if existing, err := s.find(ctx, submissionID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: "analysis",
		Prompt:  buildPrompt(req),
		Context: map[string]interface{}{"submissionId": submissionID},
		JSON:    true,
	})
	if err != nil {
		if stderrors.Is(err, llm.ErrLLMTimeout) {
			return nil, errors.NewLLMTimeoutError()
		}
		return nil, errors.NewAnalysisFailedError(err)
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &answer); err != nil {
		return nil, errors.NewAnalysisFailedError(fmt.Errorf("unparseable model answer: %w", err))
	}
	if strings.TrimSpace(answer.Summary) == "" {
		return nil, errors.NewAnalysisFailedError(stderrors.New("empty summary"))
	}

	a := &models.Analysis{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		PostingID:    postingID,
		Summary:      strings.TrimSpace(answer.Summary),
		Strengths:    nonNil(answer.Strengths),
		Concerns:     nonNil(answer.Concerns),
		FitScore:     clampScore(answer.FitScore),
		Model:        s.model,
		CreatedAt:    s.now(),
	}
	if err := s.store(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("analysis stored", map[string]interface{}{
		"submissionId": submissionID,
		"fitScore":     a.FitScore,
	})
	return a, nil
}

func (s *Service) applicationPosting(ctx context.Context, submissionID string) (string, error) {
	var postingID string
	err := s.db.QueryRowContext(ctx, `SELECT posting_id FROM job_applications WHERE id = $1`, submissionID).Scan(&postingID)
	if err == sql.ErrNoRows {
		return "", errors.NewResourceNotFoundError("applications", fmt.Sprintf("submissionId: %s", submissionID))
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError("application_lookup", err)
	}
	return postingID, nil
}

func (s *Service) find(ctx context.Context, submissionID string) (*models.Analysis, error) {
	var (
		a    models.Analysis
		body []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, posting_id, analysis, model, created_at
		FROM application_analyses
		WHERE application_id = $1`, submissionID).
		Scan(&a.ID, &a.SubmissionID, &a.PostingID, &body, &a.Model, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("analysis_lookup", err)
	}

	var answer modelAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, errors.NewQueryExecutionFailedError("analysis_body", err)
	}
	a.Summary = answer.Summary
	a.Strengths = nonNil(answer.Strengths)
	a.Concerns = nonNil(answer.Concerns)
	a.FitScore = clampScore(answer.FitScore)
	return &a, nil
}

func (s *Service) store(ctx context.Context, a *models.Analysis) error {
	body, err := json.Marshal(modelAnswer{
		Summary:   a.Summary,
		Strengths: a.Strengths,
		Concerns:  a.Concerns,
		FitScore:  float64(a.FitScore),
	})
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO application_analyses (id, application_id, posting_id, analysis, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO NOTHING`,
		a.ID, a.SubmissionID, a.PostingID, body, a.Model, a.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func buildPrompt(req *models.AnalysisRequest) string {
	var parts []string

	parts = append(parts, "Você é um analista de recrutamento. Avalie a candidatura abaixo com base apenas nas respostas fornecidas.")
	parts = append(parts, fmt.Sprintf("\nCandidato: %s, %d anos", req.Name, req.Age))

	ids := make([]string, 0, len(req.Responses))
	for id := range req.Responses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts = append(parts, "\nRespostas:")
	for _, id := range ids {
		v := req.Responses[id]
		if v.IsBlank() {
			continue
		}
		parts = append(parts, fmt.Sprintf("- %s: %s", id, v.String()))
	}

	parts = append(parts, "\nInstruções:")
	parts = append(parts, "- Resuma o perfil em até três frases")
	parts = append(parts, "- Liste pontos fortes e pontos de atenção")
	parts = append(parts, "- Dê uma nota de aderência de 0 a 100")
	parts = append(parts, `- Responda apenas com JSON: {"summary":"","strengths":[],"concerns":[],"fit_score":0}`)

	return strings.Join(parts, "\n")
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v + 0.5)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
