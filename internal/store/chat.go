package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const chatSchema = `
CREATE TABLE IF NOT EXISTS chat_turns (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    sender TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_conversation ON chat_turns(conversation_id, created_at);
`

// ChatStore persists recruiter conversations in SQLite or PostgreSQL.
type ChatStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewChatStore opens the database and creates the schema.
func NewChatStore(driver, dsn string) (*ChatStore, error) {
	driver = strings.TrimSpace(driver)
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(chatSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &ChatStore{db: db, now: time.Now}, nil
}

// Append stores one turn, filling its id and timestamp when missing.
func (s *ChatStore) Append(ctx context.Context, t ChatTurn) (ChatTurn, error) {
	if strings.TrimSpace(t.ConversationID) == "" {
		return ChatTurn{}, errors.New("conversation id is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}
	t.Timestamp = t.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_turns (id, conversation_id, sender, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.ConversationID, t.Sender, t.Message, t.Timestamp,
	)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("insert chat turn: %w", err)
	}
	return t, nil
}

// History returns the last limit turns of a conversation, oldest first. A non-positive limit
// returns every turn.
func (s *ChatStore) History(ctx context.Context, conversationID string, limit int) ([]ChatTurn, error) {
	query := `SELECT id, conversation_id, sender, message, created_at FROM chat_turns
WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	turns := make([]ChatTurn, 0)
	for rows.Next() {
		var t ChatTurn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Sender, &t.Message, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Conversations lists stored conversations, most recently active first.
func (s *ChatStore) Conversations(ctx context.Context) ([]ConversationInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, COUNT(*), MAX(created_at) FROM chat_turns GROUP BY conversation_id`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	out := make([]ConversationInfo, 0)
	for rows.Next() {
		var (
			info ConversationInfo
			last any
		)
		if err := rows.Scan(&info.ID, &info.Turns, &last); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		info.UpdatedAt = parseTime(last)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortConversations(out)
	return out, nil
}

// Delete removes every turn of a conversation and reports whether anything was removed.
func (s *ChatStore) Delete(ctx context.Context, conversationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_turns WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ChatStore) Close() error {
	return s.db.Close()
}

// parseTime reads aggregate timestamps, which drivers may return as time values or strings.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}
	}
}

func parseTimeString(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func sortConversations(list []ConversationInfo) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
