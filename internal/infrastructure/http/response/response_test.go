package response

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, http.StatusCreated, map[string]int{"electronics": 2})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"electronics":2}`, rec.Body.String())
}

func TestJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()

	Text(rec, http.StatusOK, "Hello World!")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World!", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestValidationFailed(t *testing.T) {
	rec := httptest.NewRecorder()

	ValidationFailed(rec, []string{"Name must be a non-empty string.", "inStock must be a boolean."})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Validation failed","details":["Name must be a non-empty string.","inStock must be a boolean."]}`, rec.Body.String())
}

func TestErrorTranslator(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantLogged bool
	}{
		{
			name:       "not found",
			err:        domain.NewNotFound("No product found with specified id"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":"fail","message":"No product found with specified id"}`,
		},
		{
			name:       "wrapped operational error",
			err:        fmt.Errorf("handler: %w", domain.NewForbidden("Invalid API key")),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"fail","message":"Invalid API key"}`,
		},
		{
			name:       "operational server error",
			err:        domain.NewOperational("Service paused", http.StatusServiceUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"error","message":"Service paused"}`,
		},
		{
			name:       "operational error without status",
			err:        &domain.Error{Kind: domain.KindOperational, Message: "odd"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"error","message":"odd"}`,
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("database password is hunter2"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"Error"}`,
			wantLogged: true,
		},
		{
			name:       "unexpected domain error is hidden",
			err:        domain.NewUnexpected(errors.New("nil map")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"Error"}`,
			wantLogged: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var logs bytes.Buffer
			translate := NewErrorTranslator(slog.New(slog.NewJSONHandler(&logs, nil)))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/products/1", nil)

			// when
			translate(rec, req, tc.err)

			// then
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			if tc.wantLogged {
				assert.Contains(t, logs.String(), "Unexpected error while handling request")
				assert.Contains(t, logs.String(), `"path":"/api/products/1"`)
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}
