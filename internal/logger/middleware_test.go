package logger

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesUUID(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := RequestIDFromContext(r.Context())
		assert.NotEmpty(t, requestID)
		assert.Len(t, strings.Split(requestID, "-"), 5, "generated ID should be a UUID")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_RespectsExistingHeader(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	existingID := "custom-request-id-12345"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, existingID, RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", existingID)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, existingID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_PropagatesTenant(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tenant-a", TenantIDFromContext(r.Context()))
		assert.NotNil(t, FromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/uploads", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_NoTenantHeader(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "", TenantIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLogger_CapturesStatusCode(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	tests := []struct {
		name       string
		statusCode int
	}{
		{"status 200", http.StatusOK},
		{"status 201", http.StatusCreated},
		{"status 400", http.StatusBadRequest},
		{"status 404", http.StatusNotFound},
		{"status 500", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.statusCode, w.Code)
		})
	}
}

func TestRequestLogger_DefaultStatusOK(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseWriter_TracksBytesAcrossWrites(t *testing.T) {
	recorder := httptest.NewRecorder()
	wrapped := &responseWriter{
		ResponseWriter: recorder,
		status:         http.StatusOK,
	}

	n1, err1 := wrapped.Write([]byte("first"))
	n2, err2 := wrapped.Write([]byte("second"))

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, 5, n1)
	assert.Equal(t, 6, n2)
	assert.Equal(t, 11, wrapped.bytes)
	assert.Equal(t, "firstsecond", recorder.Body.String())
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	wrapped := &responseWriter{
		ResponseWriter: httptest.NewRecorder(),
		status:         http.StatusOK,
	}

	wrapped.WriteHeader(http.StatusCreated)

	assert.Equal(t, http.StatusCreated, wrapped.status)
}

func TestFromContext_ReturnsDefault(t *testing.T) {
	logger := FromContext(context.Background())
	assert.Equal(t, slog.Default(), logger)
}

func TestContextKeys_Independent(t *testing.T) {
	ctx := context.Background()
	ctx = WithLogger(ctx, New("development", "info"))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenantID(ctx, "tenant-b")

	assert.NotNil(t, FromContext(ctx))
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "tenant-b", TenantIDFromContext(ctx))
}

func TestMiddlewareChain_RequestIDThenLogger(t *testing.T) {
	slog.SetDefault(New("development", "info"))

	var capturedRequestID string

	handler := RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedRequestID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, capturedRequestID)
	assert.Equal(t, capturedRequestID, w.Header().Get("X-Request-ID"))
}
