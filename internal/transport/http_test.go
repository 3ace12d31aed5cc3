package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type apiErr struct {
	code string
}

func (e *apiErr) Error() string             { return e.code }
func (e *apiErr) CodeValue() string         { return e.code }
func (e *apiErr) MessageValue() string      { return "message for " + e.code }
func (e *apiErr) DetailsValue() any         { return nil }
func (e *apiErr) RecoveryHintValue() string { return "try again" }

type testHandler struct {
	method string
	err    error
}

func (h *testHandler) Handle(_ context.Context, tenantID, sessionID, method string, params json.RawMessage) (any, error) {
	h.method = method
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"tenant": tenantID, "session": sessionID}, nil
}

type staticResolver struct {
	tenant string
}

func (r *staticResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if token != "good" {
		return "", ErrUnauthorized
	}
	return r.tenant, nil
}

func postRPC(t *testing.T, url, body, token string) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", "sess1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out Response
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, Options{Auth: AuthMiddleware(&staticResolver{tenant: "tech1"})}))
	t.Cleanup(server.Close)

	resp, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"list_jobs","id":1}`, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "list_jobs", handler.method)
	require.Nil(t, out.Error)
	require.Equal(t, map[string]any{"tenant": "tech1", "session": "sess1"}, out.Result)

	resp, _ = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"list_jobs","id":2}`, "bad")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	handler := &testHandler{err: &apiErr{code: "JOB_NOT_FOUND"}}
	server := httptest.NewServer(NewServer(handler, Options{DefaultTenant: "tech1"}))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_job","id":1}`, "")
	require.NotNil(t, out.Error)
	require.Equal(t, ErrApplication, out.Error.Code)
	require.Equal(t, "message for JOB_NOT_FOUND", out.Error.Message)
	data := out.Error.Data.(map[string]any)
	require.Equal(t, "JOB_NOT_FOUND", data["code"])
	require.Equal(t, "try again", data["recovery_hint"])

	handler.err = &apiErr{code: "METHOD_NOT_FOUND"}
	_, out = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"nope","id":2}`, "")
	require.Equal(t, ErrMethodNotFound, out.Error.Code)

	handler.err = io.ErrUnexpectedEOF
	_, out = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_job","id":3}`, "")
	require.Equal(t, ErrInternal, out.Error.Code)
	require.Equal(t, "internal error", out.Error.Message)

	_, out = postRPC(t, server.URL, `{not json`, "")
	require.Equal(t, ErrParseCode, out.Error.Code)

	_, out = postRPC(t, server.URL, `{"jsonrpc":"1.0","method":"get_job"}`, "")
	require.Equal(t, ErrInvalidReq, out.Error.Code)
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, Options{}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `techtrace_http_request_duration_seconds`)
	require.Contains(t, string(body), `path="/health"`)
}

func TestHTTPServer_MountsMCP(t *testing.T) {
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(NewServer(&testHandler{}, Options{MCP: mcp}))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/mcp", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSessionMiddleware(t *testing.T) {
	var seen string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set(SessionHeader, "sess1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "sess1", seen)
	require.Equal(t, "sess1", rec.Header().Get(SessionHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "sess1", seen)
	require.Equal(t, seen, rec.Header().Get(SessionHeader))
}
