// Package testutil provides request and response helpers for handler and
// router tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// NewJSONRequest builds a request whose body is body marshaled to JSON, or the
// string itself when body is a string.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithRegistrar puts an authenticated registrar on the request, the way the
// auth middleware does. An empty id leaves the request anonymous.
func WithRegistrar(req *http.Request, registrarID string) *http.Request {
	if registrarID == "" {
		return req
	}
	ctx := requestcontext.WithRegistrarID(req.Context(), id.RegistrarID(registrarID))
	return req.WithContext(ctx)
}

// DoRequest serves req with h and returns the recorder.
func DoRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the response body into a T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal response: %s", rr.Body.String())
	return &result
}

// AssertResult checks the HTTP status and the EPP result code of an envelope
// response.
func AssertResult(t *testing.T, rr *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	assert.Equal(t, status, rr.Code, "unexpected status code")
	env := UnmarshalResponse[struct {
		Result struct {
			Code int `json:"code"`
		} `json:"result"`
	}](t, rr)
	assert.Equal(t, code, env.Result.Code, "unexpected result code")
}
