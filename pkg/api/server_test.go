package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
)

func newTestServer(t *testing.T, token string) (*Server, *session.Context, *queryhistory.Store) {
	t.Helper()
	ctx := session.New(session.WithID("test"))
	hist := queryhistory.Open("")
	return NewServer(Config{Token: token, Session: ctx, History: hist}), ctx, hist
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return Response{Success: env.Success, Error: env.Error}
}

func TestStatusAndSession(t *testing.T) {
	s, ctx, _ := newTestServer(t, "")
	ctx.AddCommand("search ldap.example.com dc=example,dc=com (uid=jdoe)")
	ctx.AddCommand("serch x")
	ctx.AddError("serch x", "Command 'serch' not found. Did you mean 'search'?")
	ctx.UpdateState(session.WithConnected(true))

	rec := get(t, s.Handler(), "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	assert.True(t, decode(t, rec, &st).Success)
	assert.Equal(t, "test", st.Session)
	assert.True(t, st.Connected)
	assert.Equal(t, 2, st.Commands)
	assert.Equal(t, 1, st.Errors)

	rec = get(t, s.Handler(), "/api/v1/session", nil)
	var info SessionInfo
	decode(t, rec, &info)
	assert.Equal(t, "ldap.example.com", info.Current.Host)
	assert.Equal(t, "dc=example,dc=com", info.Current.BaseDN)
	assert.Equal(t, []string{"search"}, info.Frequent)
	require.Len(t, info.Errors, 1)
	assert.Equal(t, "serch x", info.Errors[0].Command)
}

func TestSuggestions(t *testing.T) {
	s, ctx, _ := newTestServer(t, "")
	ctx.AddCommand("connect ldap.example.com")
	ctx.UpdateState(session.WithConnected(true))

	var set SuggestionsInfo
	decode(t, get(t, s.Handler(), "/api/v1/suggestions", nil), &set)
	assert.Contains(t, set.Tips, session.AuthTip)
	assert.Contains(t, set.Tips, session.TLSTip)
	assert.NotNil(t, set.Corrections)
}

func TestHistoryEndpoint(t *testing.T) {
	s, _, hist := newTestServer(t, "")
	hist.Add(queryhistory.Host, "a.example.com")
	hist.Add(queryhistory.Host, "b.example.com")

	var hosts []string
	rec := get(t, s.Handler(), "/api/v1/history/host", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &hosts)
	assert.Equal(t, []string{"b.example.com", "a.example.com"}, hosts)

	rec = get(t, s.Handler(), "/api/v1/history/bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	s, ctx, _ := newTestServer(t, "")

	post := func(body string) ValidateInfo {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var info ValidateInfo
		decode(t, rec, &info)
		return info
	}

	info := post(`{"command":"search localhost dc=example,dc=com uid=jdoe"}`)
	assert.True(t, info.Valid)
	assert.Equal(t, "search", info.Command)
	assert.NotEmpty(t, info.Warning)

	info = post(`{"command":"serch localhost"}`)
	assert.False(t, info.Valid)
	assert.Contains(t, info.SuggestedCommands, "search")

	// Validation is a dry run.
	assert.Zero(t, ctx.HistoryLen())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	s, _, _ := newTestServer(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, get(t, s.Handler(), "/api/v1/status", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(t, s.Handler(), "/api/v1/status", map[string]string{"Authorization": "Bearer wrong"}).Code)
	assert.Equal(t, http.StatusOK,
		get(t, s.Handler(), "/api/v1/status", map[string]string{"Authorization": "Bearer secret"}).Code)
	assert.Equal(t, http.StatusOK,
		get(t, s.Handler(), "/api/v1/status", map[string]string{"X-API-Key": "secret"}).Code)

	// Health and metrics bypass authentication.
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/metrics", nil).Code)
}

func TestMetrics(t *testing.T) {
	s, ctx, hist := newTestServer(t, "")
	ctx.AddCommand("search localhost dc=example,dc=com")
	ctx.AddCommand("search localhost dc=example,dc=com")
	ctx.AddCommand("frobnicate")
	ctx.AddError("frobnicate", "Command 'frobnicate' not found.")
	ctx.UpdateState(session.WithConnected(true), session.WithTLS(true))
	hist.Add(queryhistory.Filter, "(uid=*)")

	families, err := s.Registry().Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	cmds := byName["ldapsh_commands_total"]
	require.NotNil(t, cmds)
	got := make(map[string]float64)
	for _, m := range cmds.GetMetric() {
		var name string
		for _, l := range m.GetLabel() {
			if l.GetName() == "command" {
				name = l.GetValue()
			}
			if l.GetName() == "session" {
				assert.Equal(t, "test", l.GetValue())
			}
		}
		got[name] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"search": 2, "other": 1}, got)

	gauge := func(name string) float64 {
		f := byName[name]
		require.NotNil(t, f, name)
		return f.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 1.0, gauge("ldapsh_session_connected"))
	assert.Equal(t, 0.0, gauge("ldapsh_session_authenticated"))
	assert.Equal(t, 1.0, gauge("ldapsh_session_tls"))
	assert.Equal(t, 3.0, gauge("ldapsh_history_entries"))
	assert.Equal(t, 1.0, byName["ldapsh_command_errors_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Len(t, byName["ldapsh_query_history_entries"].GetMetric(), len(queryhistory.Categories))
}
