package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverYAML = `
app:
  name: vagas-api
server:
  address: ":9090"
database:
  postgres:
    host: localhost
    database: applications
    user: app
    password: ${TEST_APP_DB_PASSWORD}
  redis:
    address: localhost:6379
apis:
  genai:
    provider: http
    base_url: http://llm.local
workers:
  notify-application-submitted:
    enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_APP_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, serverYAML))
	require.NoError(t, err)

	assert.Equal(t, "vagas-api", cfg.App.Name)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, 5, cfg.Server.SubmissionRateLimit)
	assert.Equal(t, 86400, cfg.Database.Redis.IdempotencyTTL)
	assert.Equal(t, 30, cfg.Database.Redis.PendingTTL)
	assert.Equal(t, 20, cfg.Database.Redis.PoolSize)

	w := GetWorkerConfig(cfg, "notify-application-submitted")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing postgres host",
			body: "database:\n  postgres:\n    database: a\n    user: b\n  redis:\n    address: r:6379\n",
			want: "database.postgres.host",
		},
		{
			name: "gemini without key",
			body: "database:\n  postgres:\n    host: h\n    database: a\n    user: b\n  redis:\n    address: r:6379\napis:\n  genai:\n    provider: gemini\n",
			want: "apis.genai.api_key",
		},
		{
			name: "unknown provider",
			body: "database:\n  postgres:\n    host: h\n    database: a\n    user: b\n  redis:\n    address: r:6379\napis:\n  genai:\n    provider: openai\n",
			want: "provider must be",
		},
	}

	t.Setenv("GENAI_API_KEY", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWorkflow_Defaults(t *testing.T) {
	cfg, err := LoadWorkflow("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, GetDuration(cfg.Workflow.DraftDebounce))
	assert.Equal(t, 1500*time.Millisecond, GetDuration(cfg.Workflow.RedirectDelay))
	assert.Equal(t, "/teste-disc", cfg.Workflow.AssessmentRoute)
	assert.Equal(t, "/vagas", cfg.Workflow.PostingsRoute)
	assert.Equal(t, "candidatos.local", cfg.Workflow.PlaceholderDomain)
}

func TestLoadWorkflow_EnvOverride(t *testing.T) {
	t.Setenv("WORKFLOW_SERVER_URL", "https://api.vagas.test")
	t.Setenv("WORKFLOW_DRAFT_DEBOUNCE", "500")

	cfg, err := LoadWorkflow(writeConfig(t, "workflow:\n  placeholder_domain: vagas.com.br\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.vagas.test", cfg.Workflow.ServerURL)
	assert.Equal(t, 500, cfg.Workflow.DraftDebounce)
	assert.Equal(t, "vagas.com.br", cfg.Workflow.PlaceholderDomain)
}

func TestLoadWorkflow_MissingFile(t *testing.T) {
	_, err := LoadWorkflow(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
