package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/booking"
	"github.com/Rithvickkr/DOBBE-assignment/internal/conversation"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
	"github.com/Rithvickkr/DOBBE-assignment/internal/stats"
	"github.com/Rithvickkr/DOBBE-assignment/internal/tools"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// bookingLLM books the first slot on its first call and then answers.
type bookingLLM struct {
	mu    sync.Mutex
	calls int
}

func (l *bookingLLM) Complete(_ context.Context, _ conversation.LLMRequest) (conversation.LLMResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls%2 == 1 {
		return conversation.LLMResponse{Text: " I should book.\nAction: book_appointment\nAction Input: Dr. Ahuja, 2025-08-23, 9AM-10AM, John Doe, john@example.com, Checkup"}, nil
	}
	return conversation.LLMResponse{Text: " I now know the final answer\nFinal Answer: Booked."}, nil
}

type testServer struct {
	handler http.Handler
	store   *scheduling.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logging.Default()
	store := scheduling.NewMemoryStore()

	registrar := auth.DoctorRegistrarFunc(func(ctx context.Context, name, email string) error {
		_, err := store.CreateDoctor(ctx, name, email)
		return err
	})
	tokens := auth.NewTokenIssuer("test-secret", 30*time.Minute)
	authService := auth.NewService(auth.NewInMemoryUserRepository(), registrar, tokens, logger)

	bookingEngine := booking.NewEngine(store, nil, nil, logger)
	statsEngine := stats.NewEngine(store, time.UTC, logger)
	dispatcher := tools.NewDispatcher(store, bookingEngine, statsEngine, nil, logger)
	agent := conversation.NewAgent(&bookingLLM{}, dispatcher, 5, nil, logger)
	convService := conversation.NewService(session.NewStore(0, nil), agent,
		conversation.NewInMemoryHistoryRepository(), nil, conversation.ServiceConfig{}, logger)

	handler := New(&Config{
		Logger:              logger,
		AuthHandler:         auth.NewHandler(authService, logger),
		SchedulingHandler:   scheduling.NewHandler(store, logger),
		ConversationHandler: conversation.NewHandler(convService, logger),
		Tokens:              tokens,
		MetricsHandler:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics")) }),
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
	})
	return &testServer{handler: handler, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, req auth.LoginRequest) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/login", "", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", req.Email, rr.Code, rr.Body.String())
	}
	var result auth.LoginResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return result.AccessToken
}

func TestRouterHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "# metrics") {
		t.Fatalf("unexpected metrics response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouterRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/users/me", "/prompt_history"} {
		if rr := srv.do(t, http.MethodGet, path, "", nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rr.Code)
		}
	}
	if rr := srv.do(t, http.MethodPost, "/process_prompt", "garbage", map[string]string{"text": "hi"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", rr.Code)
	}
}

func TestRouterDoctorAddsSlotsPatientBooks(t *testing.T) {
	srv := newTestServer(t)

	doctorToken := srv.login(t, auth.LoginRequest{Name: "Ahuja", Email: "ahuja@example.com", Password: "pw", Role: "doctor"})
	patientToken := srv.login(t, auth.LoginRequest{Name: "John Doe", Email: "john@example.com", Password: "pw"})

	rr := srv.do(t, http.MethodGet, "/users/me", doctorToken, nil)
	var me auth.Principal
	if err := json.NewDecoder(rr.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Name != "Dr. Ahuja" || me.Role != auth.RoleDoctor {
		t.Fatalf("unexpected principal %+v", me)
	}

	slots := scheduling.AddSlotsRequest{Slots: scheduling.Availability{"2025-08-23": {"9AM-10AM", "10AM-11AM"}}}
	if rr := srv.do(t, http.MethodPost, "/appointments", patientToken, slots); rr.Code != http.StatusForbidden {
		t.Fatalf("patient adding slots: expected 403, got %d", rr.Code)
	}
	if rr := srv.do(t, http.MethodPost, "/appointments", doctorToken, slots); rr.Code != http.StatusOK {
		t.Fatalf("doctor adding slots: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = srv.do(t, http.MethodPost, "/process_prompt", patientToken, conversation.PromptRequest{Text: "Book Dr. Ahuja at 9AM on 2025-08-23", SessionID: "s1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("process_prompt: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var answer conversation.PromptResponse
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Response != "Booked." {
		t.Fatalf("unexpected answer %q", answer.Response)
	}

	appts, err := srv.store.Appointments(context.Background(), scheduling.AppointmentFilter{})
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if len(appts) != 1 || appts[0].Slot != "9AM-10AM" || appts[0].Patient.Email != "john@example.com" {
		t.Fatalf("unexpected appointments %+v", appts)
	}

	rr = srv.do(t, http.MethodGet, "/prompt_history", patientToken, nil)
	var history []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0]["response"] != "Booked." {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRouterRateLimitsLogin(t *testing.T) {
	logger := logging.Default()
	tokens := auth.NewTokenIssuer("test-secret", time.Minute)
	handler := New(&Config{
		AuthHandler:    auth.NewHandler(auth.NewService(auth.NewInMemoryUserRepository(), nil, tokens, logger), logger),
		Tokens:         tokens,
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
	})

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)
	}
	if statuses[0] != http.StatusBadRequest || statuses[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}
