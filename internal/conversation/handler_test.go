package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
)

func authed(r *http.Request, p auth.Principal) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func TestHandler_ProcessPrompt(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: Hi John.")
	h := NewHandler(f.service, nil)

	body, _ := json.Marshal(PromptRequest{Text: "hello", SessionID: "s1"})
	req := authed(httptest.NewRequest(http.MethodPost, "/process_prompt", bytes.NewReader(body)), testPatient)
	rec := httptest.NewRecorder()
	h.ProcessPrompt(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp PromptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hi John.", resp.Response)
}

func TestHandler_ProcessPromptErrors(t *testing.T) {
	f := newServiceFixture(t)
	h := NewHandler(f.service, nil)

	tests := []struct {
		name   string
		body   string
		caller *auth.Principal
		llmErr error
		status int
	}{
		{"unauthenticated", `{"text":"hi"}`, nil, nil, http.StatusUnauthorized},
		{"bad json", `{"text":`, &testPatient, nil, http.StatusBadRequest},
		{"empty text", `{"text":"  "}`, &testPatient, nil, http.StatusBadRequest},
		{"agent failure", `{"text":"hi"}`, &testPatient, errors.New("provider down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.llm.err = tt.llmErr
			req := httptest.NewRequest(http.MethodPost, "/process_prompt", bytes.NewBufferString(tt.body))
			if tt.caller != nil {
				req = authed(req, *tt.caller)
			}
			rec := httptest.NewRecorder()
			h.ProcessPrompt(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandler_History(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.history.Save(context.Background(), HistoryEntry{UserEmail: testPatient.Email, Prompt: "p", Response: "r"}))
	require.NoError(t, f.history.Save(context.Background(), HistoryEntry{UserEmail: "someone@example.com", Prompt: "x", Response: "y"}))
	h := NewHandler(f.service, nil)

	rec := httptest.NewRecorder()
	h.History(rec, authed(httptest.NewRequest(http.MethodGet, "/prompt_history", nil), testPatient))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "p", entries[0]["prompt"])
	assert.Equal(t, "r", entries[0]["response"])
	assert.Contains(t, entries[0], "created_at")
	assert.NotContains(t, entries[0], "user_email")

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/prompt_history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
