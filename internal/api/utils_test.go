package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("bad: %w", types.ErrInvalidPreferences), http.StatusUnprocessableEntity},
		{types.ErrConflict, http.StatusConflict},
		{types.ErrInvalidTransition, http.StatusConflict},
		{types.ErrRetryBudgetExhausted, http.StatusConflict},
		{fmt.Errorf("trip: %w", types.ErrNotFound), http.StatusNotFound},
		{types.ErrSchedulingFailure, http.StatusBadRequest},
		{fmt.Errorf("submit: %w", types.ErrQueueUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}

func TestServiceErrorResponse(t *testing.T) {
	t.Run("conflict carries code", func(t *testing.T) {
		rr := httptest.NewRecorder()
		ServiceErrorResponse(rr, httptest.NewRequest(http.MethodPost, "/", nil), types.ErrRetryBudgetExhausted)
		require.Equal(t, http.StatusConflict, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "retry_budget_exhausted", body["code"])
		assert.Equal(t, false, body["success"])
	})

	t.Run("internal errors are hidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		ServiceErrorResponse(rr, httptest.NewRequest(http.MethodPost, "/", nil), fmt.Errorf("db password leaked"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "password")
	})
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("unknown field", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
		err := DecodeJSONBody(httptest.NewRecorder(), r, &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown key")
	})

	t.Run("trailing data", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{}`))
		assert.Error(t, DecodeJSONBody(httptest.NewRecorder(), r, &p))
	})

	t.Run("optional body may be empty", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		assert.NoError(t, DecodeOptionalJSONBody(httptest.NewRecorder(), r, &p))
		assert.Empty(t, p.Name)
	})
}
