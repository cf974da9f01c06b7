package notifysubmission

import (
	"time"

	"application-workflow/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	// AssessmentURL is linked from the confirmation message.
	AssessmentURL string
	Timeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	workerCfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		EmailEnabled:  cfg.Notifications.Email.Enabled,
		SMSEnabled:    cfg.Notifications.SMS.Enabled,
		FromEmail:     cfg.Notifications.Email.FromEmail,
		AssessmentURL: cfg.Workflow.ServerURL + cfg.Workflow.AssessmentRoute,
		Timeout:       config.GetDuration(workerCfg.Timeout),
	}
}
