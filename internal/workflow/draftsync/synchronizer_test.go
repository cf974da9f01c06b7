package draftsync

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu     sync.Mutex
	saves  []*models.DraftSaveRequest
	saveAt []time.Time
	saveFn func(ctx context.Context) error
	drafts map[string]*models.DraftRecord
	findFn func() error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{drafts: make(map[string]*models.DraftRecord)}
}

func (f *fakeBackend) SaveDraft(ctx context.Context, req *models.DraftSaveRequest) (*models.DraftSaveResult, error) {
	if f.saveFn != nil {
		if err := f.saveFn(ctx); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	f.saveAt = append(f.saveAt, time.Now())
	return &models.DraftSaveResult{DraftID: "draft-1", LastSavedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeBackend) FindDraft(ctx context.Context, postingID, email string) (*models.DraftRecord, error) {
	if f.findFn != nil {
		if err := f.findFn(); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[postingID+"|"+email], nil
}

func (f *fakeBackend) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeBackend) lastSave() *models.DraftSaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func TestScheduleSave_DebouncesToOneSave(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, Config{Delay: 200 * time.Millisecond}, logger.NewTestLogger(t))
	defer s.Close()

	form := models.FormState{}
	var last time.Time
	for _, c := range "Ana Silva" {
		form.Name += string(c)
		last = time.Now()
		s.ScheduleSave("posting-1", form, 0)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, backend.saveCount())

	backend.mu.Lock()
	firedAfter := backend.saveAt[0].Sub(last)
	backend.mu.Unlock()
	assert.GreaterOrEqual(t, firedAfter, 200*time.Millisecond)

	req := backend.lastSave()
	require.NotNil(t, req.Name)
	assert.Equal(t, "Ana Silva", *req.Name)

	st, ok := s.Status("posting-1")
	require.True(t, ok)
	assert.Equal(t, "draft-1", st.DraftID)
}

func TestScheduleSave_PostingsAreIndependent(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, Config{Delay: 30 * time.Millisecond}, logger.NewNoOpLogger())
	defer s.Close()

	s.ScheduleSave("posting-1", models.FormState{Email: "a@x.com"}, 0)
	s.ScheduleSave("posting-2", models.FormState{Email: "a@x.com"}, 0)

	require.Eventually(t, func() bool { return backend.saveCount() == 2 }, time.Second, 10*time.Millisecond)
}

func TestCancel_DropsPendingSave(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, Config{Delay: 30 * time.Millisecond}, logger.NewNoOpLogger())
	defer s.Close()

	s.ScheduleSave("posting-1", models.FormState{Name: "Ana"}, 0)
	s.Cancel("posting-1")
	s.Cancel("posting-2")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, backend.saveCount())
}

func TestScheduleSave_SkipsBlankContact(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, Config{Delay: 20 * time.Millisecond}, logger.NewNoOpLogger())

	form := models.FormState{CEP: "13050-120", Age: "30"}
	s.ScheduleSave("posting-1", form, 0)
	time.Sleep(100 * time.Millisecond)
	s.Close()

	assert.Equal(t, 0, backend.saveCount())
}

func TestScheduleSave_PayloadShape(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, Config{Delay: 10 * time.Millisecond}, logger.NewNoOpLogger())
	defer s.Close()

	form := models.FormState{Name: " Ana ", Email: "  Ana@X.com ", Phone: "11988887777"}
	form.SetAnswer("q1", models.TextAnswer("sim"))
	s.ScheduleSave("posting-1", form, 3)

	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	req := backend.lastSave()
	assert.Equal(t, "ana@x.com", req.Email)
	assert.Equal(t, "Ana", *req.Name)
	assert.Nil(t, req.CEP)
	assert.Nil(t, req.Address)
	assert.Equal(t, 3, req.CurrentStep)
	assert.Equal(t, "sim", req.Responses["q1"].Text())
	require.NotNil(t, req.FormSnapshot)
	assert.Equal(t, "  Ana@X.com ", req.FormSnapshot.Email)
}

func TestScheduleSave_FailureIsSwallowed(t *testing.T) {
	backend := newFakeBackend()
	calls := make(chan struct{}, 1)
	backend.saveFn = func(ctx context.Context) error {
		calls <- struct{}{}
		return assert.AnError
	}
	s := New(backend, Config{Delay: 10 * time.Millisecond}, logger.NewNoOpLogger())
	defer s.Close()

	s.ScheduleSave("posting-1", models.FormState{Phone: "11988887777"}, 0)
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("save never attempted")
	}
	_, ok := s.Status("posting-1")
	assert.False(t, ok)
}

func TestClose_CancelsInFlightSave(t *testing.T) {
	backend := newFakeBackend()
	started := make(chan struct{})
	backend.saveFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	s := New(backend, Config{Delay: 10 * time.Millisecond}, logger.NewNoOpLogger())

	s.ScheduleSave("posting-1", models.FormState{Name: "Ana"}, 0)
	<-started

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the in-flight save")
	}

	// no-op after close
	s.ScheduleSave("posting-1", models.FormState{Name: "Ana"}, 0)
}

func TestKeyEmail(t *testing.T) {
	s := New(newFakeBackend(), Config{PlaceholderDomain: "vagas.com.br"}, logger.NewNoOpLogger())
	defer s.Close()
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	assert.Equal(t, "ana@x.com", s.KeyEmail(models.FormState{Email: " ANA@x.com ", Phone: "11988887777"}))
	assert.Equal(t, "lead_11988887777@temp.vagas.com.br", s.KeyEmail(models.FormState{Phone: "(11) 98888-7777"}))
	assert.Equal(t, "lead_11977776666@temp.vagas.com.br", s.KeyEmail(models.FormState{WhatsApp: "+11 97777-6666"}))
	assert.Equal(t, "lead_1700000000123@temp.vagas.com.br", s.KeyEmail(models.FormState{Name: "Ana"}))
}

func TestRestore_RemoteWinsAndResponsesUnion(t *testing.T) {
	backend := newFakeBackend()
	remoteName := "Ana Silva"
	remoteCEP := "13050-120"
	backend.drafts["posting-1|ana@x.com"] = &models.DraftRecord{
		ID:        "draft-9",
		PostingID: "posting-1",
		Email:     "ana@x.com",
		Name:      &remoteName,
		CEP:       &remoteCEP,
		Responses: map[string]models.AnswerValue{
			"q1": models.TextAnswer("remota"),
			"q3": models.ListAnswer("a"),
		},
		CurrentStep: 2,
		LastSavedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s := New(backend, Config{}, logger.NewNoOpLogger())
	defer s.Close()

	local := models.FormState{Name: "Ana", Email: "Ana@x.com", Phone: "11988887777"}
	local.SetAnswer("q1", models.TextAnswer("local"))
	local.SetAnswer("q2", models.TextAnswer("só local"))

	merged, step := s.Restore(context.Background(), "posting-1", local)
	assert.Equal(t, 2, step)
	assert.Equal(t, "Ana Silva", merged.Name)
	assert.Equal(t, "11988887777", merged.Phone)
	assert.Equal(t, "13050-120", merged.CEP)
	assert.Equal(t, "remota", merged.Responses["q1"].Text())
	assert.Equal(t, "só local", merged.Responses["q2"].Text())
	assert.Equal(t, []string{"a"}, merged.Responses["q3"].List())

	st, ok := s.Status("posting-1")
	require.True(t, ok)
	assert.Equal(t, "draft-9", st.DraftID)
}

func TestRestore_PlaceholderKeyDoesNotLeakIntoEmail(t *testing.T) {
	backend := newFakeBackend()
	backend.drafts["posting-1|lead_11988887777@temp.candidatos.local"] = &models.DraftRecord{
		ID:          "draft-2",
		Email:       "lead_11988887777@temp.candidatos.local",
		CurrentStep: 1,
	}
	s := New(backend, Config{}, logger.NewNoOpLogger())
	defer s.Close()

	merged, step := s.Restore(context.Background(), "posting-1", models.FormState{Phone: "11988887777"})
	assert.Equal(t, 1, step)
	assert.Empty(t, merged.Email)
}

func TestRestore_LookupFailureKeepsLocal(t *testing.T) {
	backend := newFakeBackend()
	backend.findFn = func() error { return assert.AnError }
	s := New(backend, Config{}, logger.NewNoOpLogger())
	defer s.Close()

	local := models.FormState{Email: "ana@x.com", Name: "Ana"}
	merged, step := s.Restore(context.Background(), "posting-1", local)
	assert.Equal(t, -1, step)
	assert.Equal(t, local.Name, merged.Name)

	merged, step = s.Restore(context.Background(), "posting-1", models.FormState{Name: "Só nome"})
	assert.Equal(t, -1, step)
	assert.Equal(t, "Só nome", merged.Name)
}

func TestMerge_BlankRemoteKeepsLocalAnswer(t *testing.T) {
	local := models.FormState{}
	local.SetAnswer("q1", models.TextAnswer("local"))
	remote := models.FormState{Responses: map[string]models.AnswerValue{
		"q1": models.TextAnswer("  "),
		"q2": models.TextAnswer(""),
	}}

	out := Merge(local, remote)
	assert.Equal(t, "local", out.Responses["q1"].Text())
	assert.Empty(t, strings.TrimSpace(out.Responses["q2"].Text()))
}
