package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandlerHandle(t *testing.T) {
	handler := HealthHandler{Check: func(context.Context) error { return nil }}

	rec := httptest.NewRecorder()
	handler.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true,"status":"ok"}`, rec.Body.String())
}

func TestHealthHandlerReportsFailedCheck(t *testing.T) {
	handler := HealthHandler{Check: func(context.Context) error { return errors.New("db down") }}

	rec := httptest.NewRecorder()
	handler.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ok":false,"status":"unavailable"}`, rec.Body.String())
}

func TestRouterRejectsWrongMethodOnHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/healthz", nil, "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])
}
