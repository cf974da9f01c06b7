package submission

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type submitCall struct {
	key     string
	payload *models.SubmissionPayload
}

type fakeBackend struct {
	mu       sync.Mutex
	calls    []submitCall
	results  []models.SubmissionResult
	errs     []error
	analyses chan *models.AnalysisRequest
	analyzeF func(ctx context.Context) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{analyses: make(chan *models.AnalysisRequest, 4)}
}

func (f *fakeBackend) SubmitApplication(ctx context.Context, key string, p *models.SubmissionPayload) (models.SubmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, submitCall{key: key, payload: p})
	if i < len(f.errs) && f.errs[i] != nil {
		return models.SubmissionResult{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return models.Success(fmt.Sprintf("sub-%d", i+1), key), nil
}

func (f *fakeBackend) AnalyzeSubmission(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	if f.analyzeF != nil {
		if err := f.analyzeF(ctx); err != nil {
			return nil, err
		}
	}
	f.analyses <- req
	return &models.Analysis{SubmissionID: req.SubmissionID}, nil
}

func anaSilva() models.FormState {
	f := models.FormState{
		Name:    " Ana Silva ",
		Email:   "Ana@X.com",
		Phone:   "11988887777",
		Age:     "30",
		CEP:     "13050-120",
		Address: "   ",
	}
	f.SetAnswer("exp", models.TextAnswer("Três anos no varejo"))
	f.SetAnswer("turnos", models.ListAnswer("manhã", "tarde"))
	return f
}

var posting = models.JobPosting{ID: "posting-1", Title: "Atendente de Loja"}

func newCoordinator(t *testing.T, backend *fakeBackend) (*Coordinator, *MemorySession) {
	session := NewMemorySession()
	c := NewCoordinator(backend, session, Config{}, logger.NewTestLogger(t))
	n := 0
	c.newKey = func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}
	return c, session
}

func TestSubmit_SuccessStoresDiscInfoAndAnalyzes(t *testing.T) {
	backend := newFakeBackend()
	c, session := newCoordinator(t, backend)
	defer c.Close()

	res, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "sub-1", res.SubmissionID)
	assert.Equal(t, "key-1", res.IdempotencyKey)

	p := backend.calls[0].payload
	assert.Equal(t, "posting-1", p.PostingID)
	assert.Equal(t, "Ana Silva", p.Name)
	assert.Equal(t, "ana@x.com", p.Email)
	assert.Equal(t, 30, p.Age)
	require.NotNil(t, p.CEP)
	assert.Equal(t, "13050-120", *p.CEP)
	assert.Nil(t, p.Address)
	assert.Nil(t, p.LinkedIn)
	assert.Equal(t, []string{"manhã", "tarde"}, p.Responses["turnos"].List())

	var info models.CandidateDiscInfo
	ok, err := session.Get(CandidateDiscInfoKey, &info)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.CandidateDiscInfo{
		Name: "Ana Silva", Email: "ana@x.com", Phone: "11988887777", Age: 30,
		SubmissionID: "sub-1", PostingID: "posting-1",
	}, info)

	select {
	case req := <-backend.analyses:
		assert.Equal(t, "sub-1", req.SubmissionID)
		assert.Equal(t, "Três anos no varejo", req.Responses["exp"].Text())
	case <-time.After(time.Second):
		t.Fatal("analysis was not requested")
	}
}

func TestSubmit_DuplicateIsAResult(t *testing.T) {
	backend := newFakeBackend()
	backend.results = []models.SubmissionResult{models.Duplicate("sub-first")}
	c, session := newCoordinator(t, backend)
	defer c.Close()

	res, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)
	assert.True(t, res.IsDuplicate())
	assert.Equal(t, "sub-first", res.ExistingSubmissionID)

	ok, _ := session.Get(CandidateDiscInfoKey, &models.CandidateDiscInfo{})
	assert.False(t, ok)
	assert.Len(t, backend.analyses, 0)
}

func TestSubmit_MissingIdentity(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newCoordinator(t, backend)
	defer c.Close()

	f := anaSilva()
	f.Email = "  "
	_, err := c.Submit(context.Background(), f, posting)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	f = anaSilva()
	f.Name = ""
	_, err = c.Submit(context.Background(), f, posting)
	assert.ErrorIs(t, err, ErrMissingIdentity)
	assert.Empty(t, backend.calls)
}

func TestSubmit_RetryReusesKeyOnlyForSamePayload(t *testing.T) {
	backend := newFakeBackend()
	backend.errs = []error{
		apperrors.NewExternalServiceError("backend", assert.AnError),
		apperrors.NewExternalServiceError("backend", assert.AnError),
	}
	c, _ := newCoordinator(t, backend)
	defer c.Close()

	_, err := c.Submit(context.Background(), anaSilva(), posting)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "key-1", subErr.IdempotencyKey)
	assert.Contains(t, subErr.Message(), "Não foi possível enviar")

	// identical retry
	_, err = c.Submit(context.Background(), anaSilva(), posting)
	require.Error(t, err)

	// edited form
	edited := anaSilva()
	edited.Phone = "1133334444"
	res, err := c.Submit(context.Background(), edited, posting)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())

	// a new logical attempt after a terminal answer
	_, err = c.Submit(context.Background(), edited, posting)
	require.NoError(t, err)

	keys := []string{}
	for _, call := range backend.calls {
		keys = append(keys, call.key)
	}
	assert.Equal(t, []string{"key-1", "key-1", "key-2", "key-3"}, keys)
	<-backend.analyses
	<-backend.analyses
}

func TestSubmissionError_Messages(t *testing.T) {
	e := &SubmissionError{Err: apperrors.NewRateLimitedError("application submit")}
	assert.Contains(t, e.Message(), "Muitas tentativas")
	assert.True(t, apperrors.HasCode(e, apperrors.ErrCodeRateLimited))
}

func TestSubmit_AnalysisFailureDoesNotAffectResult(t *testing.T) {
	backend := newFakeBackend()
	backend.analyzeF = func(ctx context.Context) error { return assert.AnError }
	c, _ := newCoordinator(t, backend)

	res, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	c.Close()
}

func TestClose_CancelsAnalysis(t *testing.T) {
	backend := newFakeBackend()
	started := make(chan struct{})
	backend.analyzeF = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	c, _ := newCoordinator(t, backend)

	_, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)
	<-started

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel analysis")
	}
}

func TestWait_ReturnsWhenAnalysisFinishes(t *testing.T) {
	backend := newFakeBackend()
	backend.analyzeF = func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	}
	c, _ := newCoordinator(t, backend)
	defer c.Close()

	_, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
	assert.Len(t, backend.analyses, 1)
}

func TestWait_GivesUpAtDeadline(t *testing.T) {
	backend := newFakeBackend()
	backend.analyzeF = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c, _ := newCoordinator(t, backend)

	_, err := c.Submit(context.Background(), anaSilva(), posting)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
	c.Close()
}

func TestBuildPayload_UnparseableAge(t *testing.T) {
	f := anaSilva()
	f.Age = "trinta"
	p := BuildPayload(f, "posting-1")
	assert.Equal(t, 0, p.Age)
}
