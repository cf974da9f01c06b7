// internal/workers/application/notify-submission/handler.go
package notifysubmission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-application-submitted"
)

const (
	emailSubject = "Recebemos sua candidatura para {{postingTitle}}"
	emailBody    = "Olá {{name}},\n\n" +
		"Sua candidatura para a vaga {{postingTitle}} foi recebida (protocolo {{reference}}).\n" +
		"O próximo passo é o teste comportamental: {{assessmentUrl}}\n\n" +
		"Boa sorte!"
	smsBody = "Candidatura recebida: {{postingTitle}} (protocolo {{reference}}). Faça o teste comportamental: {{assessmentUrl}}"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewHandler(config *Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Handle implements camunda.JobHandler.
func (h *Handler) Handle(ctx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	if input.SubmissionID == "" {
		return errors.NewInvalidRequestError("submissionId is required")
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return err
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewExternalServiceError("zeebe", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return errors.NewExternalServiceError("zeebe", err)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	rcpt, err := h.getRecipient(ctx, input.SubmissionID)
	if err == sql.ErrNoRows {
		h.logger.Warn("submission not found", map[string]interface{}{
			"submissionId": input.SubmissionID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, Channels: []string{}, SentAt: sentAt}, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("recipient_lookup", err)
	}

	data := map[string]interface{}{
		"name":          firstName(rcpt.Name),
		"postingTitle":  rcpt.PostingTitle,
		"reference":     models.MaskReference(input.SubmissionID),
		"assessmentUrl": h.assessmentURL(input),
	}

	channels := []string{}

	if h.config.EmailEnabled && rcpt.Email != "" {
		if err := h.sendEmail(ctx, rcpt.Email, renderTemplate(emailSubject, data), renderTemplate(emailBody, data)); err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		channels = append(channels, ChannelEmail)
	}

	if h.config.SMSEnabled {
		if phone := toE164(firstNonEmpty(rcpt.WhatsApp, rcpt.Phone)); phone != "" {
			if err := h.sendSMS(ctx, phone, renderTemplate(smsBody, data)); err != nil {
				h.logger.Error("SMS send failed", map[string]interface{}{
					"error":        err,
					"submissionId": input.SubmissionID,
				})
				if len(channels) == 0 {
					return &Output{NotificationID: notificationID, Status: StatusFailed, Channels: channels, SentAt: sentAt}, nil
				}
			} else {
				channels = append(channels, ChannelSMS)
			}
		}
	}

	status := StatusDisabled
	if len(channels) > 0 {
		status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"status":       status,
		"channels":     channels,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getRecipient(ctx context.Context, submissionID string) (*recipient, error) {
	var r recipient
	var whatsapp sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT a.name, a.email, a.phone, a.whatsapp, p.title
		FROM job_applications a
		JOIN job_postings p ON p.id = a.posting_id
		WHERE a.id = $1`, submissionID).
		Scan(&r.Name, &r.Email, &r.Phone, &whatsapp, &r.PostingTitle)
	if err != nil {
		return nil, err
	}
	r.WhatsApp = whatsapp.String
	return &r, nil
}

func (h *Handler) assessmentURL(input *Input) string {
	return fmt.Sprintf("%s?submission_id=%s&posting_id=%s", h.config.AssessmentURL, input.SubmissionID, input.PostingID)
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// toE164 prefixes Brazilian numbers with the country code.
func toE164(phone string) string {
	digits := validation.Digits(phone)
	switch len(digits) {
	case 10, 11:
		return "+55" + digits
	case 12, 13:
		if strings.HasPrefix(digits, "55") {
			return "+" + digits
		}
	}
	return ""
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}
	return result
}
