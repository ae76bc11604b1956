package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "not found error",
			err:            services.ErrPostNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "validation error",
			err:            services.ErrInvalidPostID,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "unauthorized error",
			err:            services.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "transport error",
			err:            services.WrapTransport("gancio request failed", errors.New("connection refused")),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "bad_gateway",
		},
		{
			name:           "remote rejected",
			err:            services.ErrRemoteRejected,
			expectedStatus: http.StatusBadGateway,
			expectedError:  "bad_gateway",
		},
		{
			name:           "config missing",
			err:            services.ErrConfigMissing,
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "unavailable",
		},
		{
			name:           "internal error",
			err:            services.WrapInternal("failed to load post", errors.New("pq: connection reset")),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
		{
			name:           "plain error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}

	t.Run("internal causes are not exposed", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleServiceError(w, services.WrapInternal("query failed", errors.New("password=hunter2")), logger)

		assert.NotContains(t, w.Body.String(), "hunter2")
		assert.Contains(t, w.Body.String(), "An internal error occurred")
	})

	t.Run("validation details are forwarded", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := services.NewDomainError(services.ErrorTypeValidation, "event has no start date", nil).
			WithDetail("meta_key", "_EventStartDate")

		HandleServiceError(w, err, logger)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "_EventStartDate", response.Details["meta_key"])
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleServiceError(w, nil, logger)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("field errors become details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"post_id": "post_id is required"},
		}

		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "post_id is required", response.Details["post_id"])
	})

	t.Run("generic error keeps its message", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("limit must be at most 100"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "limit must be at most 100", response.Message)
		assert.Nil(t, response.Details)
	})
}
