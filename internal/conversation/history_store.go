package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one persisted prompt and the answer it got.
type HistoryEntry struct {
	ID        string    `json:"-"`
	SessionID string    `json:"-"`
	UserEmail string    `json:"-"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository persists prompt history per user.
type HistoryRepository interface {
	Save(ctx context.Context, entry HistoryEntry) error
	ListByEmail(ctx context.Context, email string) ([]HistoryEntry, error)
}

// ErrInvalidHistory is returned for entries without a user or prompt.
var ErrInvalidHistory = errors.New("history entry needs a user email and prompt")

func prepareEntry(entry HistoryEntry, now func() time.Time) (HistoryEntry, error) {
	if strings.TrimSpace(entry.UserEmail) == "" || strings.TrimSpace(entry.Prompt) == "" {
		return HistoryEntry{}, ErrInvalidHistory
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now().UTC()
	}
	return entry, nil
}

// InMemoryHistoryRepository keeps history in process memory.
type InMemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]HistoryEntry
	now     func() time.Time
}

func NewInMemoryHistoryRepository() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{entries: make(map[string][]HistoryEntry), now: time.Now}
}

func (r *InMemoryHistoryRepository) Save(_ context.Context, entry HistoryEntry) error {
	entry, err := prepareEntry(entry, r.now)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.UserEmail] = append(r.entries[entry.UserEmail], entry)
	return nil
}

func (r *InMemoryHistoryRepository) ListByEmail(_ context.Context, email string) ([]HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]HistoryEntry{}, r.entries[email]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SQLHistoryRepository stores history in the prompt_history table.
type SQLHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLHistoryRepository returns nil without a database.
func NewSQLHistoryRepository(db *sql.DB) *SQLHistoryRepository {
	if db == nil {
		return nil
	}
	return &SQLHistoryRepository{db: db, now: time.Now}
}

func (r *SQLHistoryRepository) Save(ctx context.Context, entry HistoryEntry) error {
	entry, err := prepareEntry(entry, r.now)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO prompt_history (id, session_id, user_email, prompt_text, response_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.SessionID, entry.UserEmail, entry.Prompt, entry.Response, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("conversation: insert prompt history: %w", err)
	}
	return nil
}

func (r *SQLHistoryRepository) ListByEmail(ctx context.Context, email string) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, session_id, user_email, prompt_text, response_text, created_at
		FROM prompt_history
		WHERE user_email = $1
		ORDER BY created_at ASC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("conversation: query prompt history: %w", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserEmail, &e.Prompt, &e.Response, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan prompt history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate prompt history: %w", err)
	}
	return out, nil
}

var (
	_ HistoryRepository = (*InMemoryHistoryRepository)(nil)
	_ HistoryRepository = (*SQLHistoryRepository)(nil)
)
