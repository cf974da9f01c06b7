// Package questions generates supplementary application questions for a
// posting with an LLM.
package questions

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/llm"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"
)

const DefaultMaxQuestions = 5

const questionSchema = `{
	"type": "object",
	"required": ["title", "type"],
	"properties": {
		"id":          {"type": "string", "maxLength": 64},
		"title":       {"type": "string", "minLength": 3, "maxLength": 300},
		"description": {"type": "string", "maxLength": 1000},
		"type":        {"enum": ["text", "textarea", "number", "select", "radio", "checkbox"]},
		"required":    {"type": "boolean"},
		"options":     {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

var schema = validation.MustSchema(questionSchema)

type Service struct {
	generator    llm.Generator
	maxQuestions int
	logger       logger.Logger
}

func NewService(generator llm.Generator, maxQuestions int, log logger.Logger) *Service {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Service{
		generator:    generator,
		maxQuestions: maxQuestions,
		logger:       log.WithFields(map[string]interface{}{"service": "questions"}),
	}
}

// Generate asks the model for questions that complement the base ones.
// Malformed items are dropped; an answer with none usable is an empty list.
func (s *Service) Generate(ctx context.Context, req *models.GenerateQuestionsRequest) (*models.GenerateQuestionsResponse, error) {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.PositionTitle) == "" {
		return nil, errors.NewInvalidRequestError("title or position_title is required")
	}

	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: "questions",
		Prompt:  s.buildPrompt(req),
		Context: map[string]interface{}{"postingId": req.PostingID},
		JSON:    true,
	})
	if err != nil {
		if stderrors.Is(err, llm.ErrLLMTimeout) {
			return nil, errors.NewLLMTimeoutError()
		}
		return nil, errors.NewQuestionGenerationFailedError(err)
	}

	raw, err := decodeQuestions(llm.ExtractJSON(text))
	if err != nil {
		return nil, errors.NewQuestionGenerationFailedError(err)
	}

	out := make([]models.Question, 0, len(raw))
	for i, item := range raw {
		q, reason := s.accept(item)
		if reason != "" {
			s.logger.Debug("dropping generated question", map[string]interface{}{
				"postingId": req.PostingID,
				"index":     i,
				"reason":    reason,
			})
			continue
		}
		out = append(out, q)
		if len(out) == s.maxQuestions {
			break
		}
	}

	s.logger.Info("questions generated", map[string]interface{}{
		"postingId": req.PostingID,
		"received":  len(raw),
		"accepted":  len(out),
	})
	return &models.GenerateQuestionsResponse{Questions: out}, nil
}

func (s *Service) accept(item json.RawMessage) (models.Question, string) {
	result, err := schema.ValidateBytes(item)
	if err != nil {
		return models.Question{}, err.Error()
	}
	if !result.Valid {
		return models.Question{}, strings.Join(result.GetErrorMessages(), "; ")
	}

	var q models.Question
	if err := json.Unmarshal(item, &q); err != nil {
		return models.Question{}, err.Error()
	}
	q.ID = strings.TrimSpace(q.ID)
	q.Title = strings.TrimSpace(q.Title)
	if q.Type.HasOptions() && len(q.Options) < 2 {
		return models.Question{}, "choice question needs at least two options"
	}
	if !q.Type.HasOptions() {
		q.Options = nil
	}
	return q, ""
}

// decodeQuestions accepts a bare array or an object with a questions field.
func decodeQuestions(doc string) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(doc), &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(doc), &wrapped); err != nil {
		return nil, fmt.Errorf("unparseable model answer: %w", err)
	}
	return wrapped.Questions, nil
}

func (s *Service) buildPrompt(req *models.GenerateQuestionsRequest) string {
	var parts []string

	parts = append(parts, "Você é um recrutador experiente. Crie perguntas adicionais para o formulário de candidatura desta vaga.")
	parts = append(parts, fmt.Sprintf("\nVaga: %s", req.Title))
	if req.PositionTitle != "" {
		parts = append(parts, fmt.Sprintf("Cargo: %s", req.PositionTitle))
	}
	if req.Department != "" {
		parts = append(parts, fmt.Sprintf("Departamento: %s", req.Department))
	}
	if req.Modality != "" {
		parts = append(parts, fmt.Sprintf("Modalidade: %s", req.Modality))
	}
	if req.ContractType != "" {
		parts = append(parts, fmt.Sprintf("Contrato: %s", req.ContractType))
	}
	if req.Description != "" {
		parts = append(parts, fmt.Sprintf("Descrição: %s", req.Description))
	}
	if req.Requirements != "" {
		parts = append(parts, fmt.Sprintf("Requisitos: %s", req.Requirements))
	}

	if len(req.BaseQuestions) > 0 {
		parts = append(parts, "\nPerguntas já existentes (não repita):")
		for _, q := range req.BaseQuestions {
			parts = append(parts, fmt.Sprintf("- %s", q.Title))
		}
	}

	parts = append(parts, "\nInstruções:")
	parts = append(parts, fmt.Sprintf("- Gere no máximo %d perguntas em português", s.maxQuestions))
	parts = append(parts, "- Tipos permitidos: text, textarea, number, select, radio, checkbox")
	parts = append(parts, "- Perguntas de escolha devem ter pelo menos duas opções")
	parts = append(parts, `- Responda apenas com JSON: {"questions":[{"title":"","description":"","type":"","required":true,"options":[]}]}`)

	return strings.Join(parts, "\n")
}
