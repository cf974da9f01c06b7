package postsubmit

import (
	"context"
	"net/url"
	"testing"
	"time"

	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var posting = models.JobPosting{ID: "posting-1", Title: "Atendente de Loja"}

func TestRoute_SuccessNavigates(t *testing.T) {
	r := NewRouter(Config{AssessmentRoute: "https://vagas.example.com/teste-disc"})

	d := r.Route(models.Success("9f1c2d3e-aaaa-bbbb-cccc-000000000001", "key-1"), posting)
	require.NotNil(t, d.Navigation)
	assert.Nil(t, d.Modal)
	assert.Equal(t, DefaultRedirectDelay, d.Navigation.Delay)

	u, err := url.Parse(d.Navigation.URL)
	require.NoError(t, err)
	assert.Equal(t, "/teste-disc", u.Path)
	assert.Equal(t, "9f1c2d3e-aaaa-bbbb-cccc-000000000001", u.Query().Get("submission_id"))
	assert.Equal(t, "posting-1", u.Query().Get("posting_id"))
}

func TestRoute_DuplicateShowsModal(t *testing.T) {
	r := NewRouter(Config{})

	d := r.Route(models.Duplicate("9f1c2d3e-aaaa-bbbb-cccc-000000000001"), posting)
	assert.Nil(t, d.Navigation)
	require.NotNil(t, d.Modal)
	assert.Equal(t, "Atendente de Loja", d.Modal.PostingTitle)
	assert.Equal(t, "#9F1C2D3E", d.Modal.MaskedReference)
	assert.Equal(t, []ModalAction{ActionClose, ActionBrowsePostings}, d.Modal.Actions)
	assert.Equal(t, "/vagas", d.Modal.PostingsURL)
}

func TestFollow_WaitsThenNavigates(t *testing.T) {
	r := NewRouter(Config{})
	var got string
	start := time.Now()

	err := r.Follow(context.Background(), Navigation{URL: "/teste-disc?submission_id=s", Delay: 30 * time.Millisecond},
		NavigatorFunc(func(ctx context.Context, u string) error {
			got = u
			return nil
		}))
	require.NoError(t, err)
	assert.Equal(t, "/teste-disc?submission_id=s", got)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFollow_AbortsOnCancel(t *testing.T) {
	r := NewRouter(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	navigated := false
	err := r.Follow(ctx, Navigation{URL: "/x", Delay: time.Hour}, NavigatorFunc(func(context.Context, string) error {
		navigated = true
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, navigated)
}
