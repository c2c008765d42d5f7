package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/logging"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.Invalid("bad"), http.StatusBadRequest},
		{fmt.Errorf("project x: %w", domain.ErrNotFound), http.StatusNotFound},
		{&domain.GenerationError{GenerationID: "gen_1", Kind: domain.ErrRenderTimeout, Err: context.DeadlineExceeded}, http.StatusInternalServerError},
		{&domain.GenerationError{Kind: domain.ErrInvalidRequest, Err: errors.New("no furniture")}, http.StatusBadRequest},
		{fmt.Errorf("detect: %w", domain.ErrModelUnavailable), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	s := &Server{logger: slog.Default()}
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()

	s.writeError(rec, req, &domain.GenerationError{
		GenerationID: "gen_0011223344556677",
		Kind:         domain.ErrStorageFailure,
		Err:          errors.New("disk /secret/path is full"),
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/secret/path")

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "gen_0011223344556677", body.GenerationID)
	assert.Equal(t, "req-123", body.RequestID)
	assert.Equal(t, "failed to store file", body.Error)
}

func TestWriteErrorValidation(t *testing.T) {
	s := &Server{logger: slog.Default()}
	req := httptest.NewRequest(http.MethodPost, "/projects", nil)
	rec := httptest.NewRecorder()

	s.writeError(rec, req, domain.Invalid("project name is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid request: project name is required", body.Error)
	assert.Empty(t, body.RequestID)
	assert.Empty(t, body.GenerationID)
}
