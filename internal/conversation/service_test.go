package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
)

type recordingReports struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recordingReports) PublishReport(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

type failingHistory struct{ InMemoryHistoryRepository }

func (*failingHistory) Save(context.Context, HistoryEntry) error { return errors.New("db down") }

type serviceFixture struct {
	service  *Service
	llm      *scriptedLLM
	sessions *session.Store
	history  *InMemoryHistoryRepository
	reports  *recordingReports
}

func newServiceFixture(t *testing.T, replies ...string) *serviceFixture {
	t.Helper()
	llm := &scriptedLLM{replies: replies}
	sessions := session.NewStore(50, nil)
	history := NewInMemoryHistoryRepository()
	reports := &recordingReports{}
	agent := NewAgent(llm, &recordingTools{}, 5, nil, nil)
	svc := NewService(sessions, agent, history, reports, ServiceConfig{ContextTurns: 10}, nil)
	return &serviceFixture{service: svc, llm: llm, sessions: sessions, history: history, reports: reports}
}

func TestProcessPrompt_RecordsSessionAndHistory(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: Dr. Ahuja is free at 9AM.", "Final Answer: Booked.")
	ctx := context.Background()

	resp, err := f.service.ProcessPrompt(ctx, testPatient, PromptRequest{Text: " Is Dr. Ahuja free? ", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ahuja is free at 9AM.", resp.Response)

	_, err = f.service.ProcessPrompt(ctx, testPatient, PromptRequest{Text: "Book it", SessionID: "s1"})
	require.NoError(t, err)

	second := f.llm.requests[1].Messages[0].Content
	assert.Contains(t, second, "User: Is Dr. Ahuja free?")
	assert.Contains(t, second, "Assistant: Dr. Ahuja is free at 9AM.")

	turns := f.sessions.RecentContext(session.Key{UserEmail: testPatient.Email, SessionID: "s1"}, 10)
	require.Len(t, turns, 2)
	assert.Equal(t, "Is Dr. Ahuja free?", turns[0].Input)
	assert.Equal(t, "Dr. Ahuja is free at 9AM.", turns[0].Output)

	entries, err := f.service.History(ctx, testPatient)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Is Dr. Ahuja free?", entries[0].Prompt)
	assert.Equal(t, "s1", entries[0].SessionID)
	assert.Empty(t, f.reports.texts)
}

func TestProcessPrompt_SessionsAreIsolated(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: one", "Final Answer: two")
	ctx := context.Background()

	_, err := f.service.ProcessPrompt(ctx, testPatient, PromptRequest{Text: "first"})
	require.NoError(t, err)
	_, err = f.service.ProcessPrompt(ctx, testPatient, PromptRequest{Text: "second", SessionID: "other"})
	require.NoError(t, err)

	assert.NotContains(t, f.llm.requests[1].Messages[0].Content, "Previous conversation context")
	turns := f.sessions.RecentContext(session.Key{UserEmail: testPatient.Email, SessionID: defaultSessionID}, 10)
	require.Len(t, turns, 1)
	assert.Equal(t, "one", turns[0].Output)
}

func TestProcessPrompt_DoctorAnswersAreReported(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: 3 appointments today.")
	resp, err := f.service.ProcessPrompt(context.Background(), testDoctor, PromptRequest{Text: "How many today?"})
	require.NoError(t, err)
	assert.Equal(t, []string{resp.Response}, f.reports.texts)
}

func TestProcessPrompt_ReportFailureIgnored(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: ok")
	f.reports.err = errors.New("queue full")
	_, err := f.service.ProcessPrompt(context.Background(), testDoctor, PromptRequest{Text: "stats"})
	require.NoError(t, err)
}

func TestProcessPrompt_HistoryFailureIgnored(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Final Answer: ok"}}
	svc := NewService(session.NewStore(0, nil), NewAgent(llm, &recordingTools{}, 5, nil, nil),
		&failingHistory{}, nil, ServiceConfig{}, nil)
	resp, err := svc.ProcessPrompt(context.Background(), testPatient, PromptRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
}

func TestProcessPrompt_Errors(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.ProcessPrompt(context.Background(), testPatient, PromptRequest{Text: "   "})
	require.ErrorIs(t, err, ErrEmptyPrompt)

	f.llm.err = errors.New("provider down")
	_, err = f.service.ProcessPrompt(context.Background(), testPatient, PromptRequest{Text: "hi"})
	require.Error(t, err)
	assert.Zero(t, f.sessions.Len())
}

func TestProcessPrompt_SweepsIdleSessions(t *testing.T) {
	f := newServiceFixture(t, "Final Answer: fresh")
	stale := session.Key{UserEmail: "old@example.com", SessionID: "x"}
	f.sessions.Append(stale, session.Turn{Input: "hello", Output: "hi"})
	f.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := f.service.ProcessPrompt(context.Background(), testPatient, PromptRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, f.sessions.RecentContext(stale, 10))
}
