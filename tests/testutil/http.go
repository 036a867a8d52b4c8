package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DoJSON sends a JSON request to an engine and returns the recorder.
// The tenant header is always set; every API route requires it.
func DoJSON(t *testing.T, engine *gin.Engine, method, path string, tenantID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// JSONBody parses a recorder body as a generic JSON object
func JSONBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "Failed to parse JSON response")
	return result
}

// AssertSuccess asserts a successful API envelope and returns its data
func AssertSuccess(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	resp := JSONBody(t, w)
	require.Equal(t, true, resp["success"], "Expected success envelope, got: %s", w.Body.String())
	data, _ := resp["data"].(map[string]interface{})
	return data
}

// AssertError asserts an error API envelope with the given code
func AssertError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()

	resp := JSONBody(t, w)
	require.Equal(t, false, resp["success"], "Expected error envelope, got: %s", w.Body.String())

	errMap, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "Expected error object in response")
	assert.Equal(t, expectedCode, errMap["code"], "Unexpected error code")
}

// AssertStatus asserts the HTTP status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code, "Unexpected status code: %s", w.Body.String())
}
