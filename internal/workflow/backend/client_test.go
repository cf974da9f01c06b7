package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "application-workflow/internal/common/errors"
	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(err *apperrors.StandardError) map[string]interface{} {
	return map[string]interface{}{"error": err}
}

func TestSubmitApplication_Outcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey := r.Header.Get(IdempotencyKeyHeader)
		if gotKey == "" {
			writeJSON(w, http.StatusBadRequest, errorBody(apperrors.NewIdempotencyKeyRequiredError()))
			return
		}
		var p models.SubmissionPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))

		switch p.Email {
		case "ana@x.com":
			writeJSON(w, http.StatusCreated, models.SubmissionCreated{SubmissionID: "sub-1", IdempotencyKey: gotKey})
		case "dup@x.com":
			writeJSON(w, http.StatusConflict, errorBody(apperrors.NewDuplicateApplicationError("sub-0")))
		case "busy@x.com":
			writeJSON(w, http.StatusConflict, errorBody(apperrors.NewRequestInProgressError(gotKey)))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	res, err := c.SubmitApplication(ctx, "key-1", &models.SubmissionPayload{Email: "ana@x.com"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "sub-1", res.SubmissionID)
	assert.Equal(t, "key-1", res.IdempotencyKey)

	res, err = c.SubmitApplication(ctx, "key-2", &models.SubmissionPayload{Email: "dup@x.com"})
	require.NoError(t, err)
	assert.True(t, res.IsDuplicate())
	assert.Equal(t, "sub-0", res.ExistingSubmissionID)

	_, err = c.SubmitApplication(ctx, "key-3", &models.SubmissionPayload{Email: "busy@x.com"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRequestInProgress))

	_, err = c.SubmitApplication(ctx, "key-4", &models.SubmissionPayload{Email: "x@x.com"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "bad gateway")
}

func TestFindDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drafts", r.URL.Path)
		if r.URL.Query().Get("email") == "ana@x.com" {
			name := "Ana Silva"
			writeJSON(w, http.StatusOK, models.DraftRecord{ID: "draft-1", PostingID: "posting-1", Email: "ana@x.com", Name: &name, CurrentStep: 2})
			return
		}
		writeJSON(w, http.StatusNotFound, errorBody(apperrors.NewDraftNotFoundError("posting-1")))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)

	d, err := c.FindDraft(context.Background(), "posting-1", "ana@x.com")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2, d.CurrentStep)
	assert.Equal(t, "Ana Silva", *d.Name)

	d, err = c.FindDraft(context.Background(), "posting-1", "none@x.com")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestGetPosting_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/postings/vaga 1", r.URL.Path)
		writeJSON(w, http.StatusNotFound, errorBody(apperrors.NewPostingNotFoundError("vaga 1")))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).GetPosting(context.Background(), "vaga 1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePostingNotFound))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, time.Second).SaveDraft(context.Background(), &models.DraftSaveRequest{})
	assert.True(t, apperrors.HasCode(err, "EXTERNAL_SERVICE_ERROR"))
}
