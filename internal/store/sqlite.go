package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zzstoatzz/slackbot/internal/models"
)

// SQLiteStore keeps conversation history as per-conversation ordered rows.
// Unlike FileStore, an append touches only the affected conversation, so
// the database serializes concurrent writers for us.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/slackbot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL,
		message_index   INTEGER NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (conversation_id, message_index)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load is a no-op: state lives in the database, not in memory.
func (s *SQLiteStore) Load(_ context.Context) error {
	return nil
}

// Get returns the ordered history for a conversation.
func (s *SQLiteStore) Get(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = ?
		ORDER BY message_index
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Append inserts new messages after the conversation's current tail, in one
// transaction so a concurrent append cannot interleave indices.
func (s *SQLiteStore) Append(ctx context.Context, conversationID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(message_index), -1) + 1 FROM messages
		WHERE conversation_id = ?
	`, conversationID).Scan(&next)
	if err != nil {
		return err
	}

	for i, m := range msgs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, message_index, role, content)
			VALUES (?, ?, ?, ?)
		`, conversationID, next+i, m.Role, m.Content)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// All returns every conversation, ordered within each thread.
func (s *SQLiteStore) All(ctx context.Context) (map[string][]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, role, content FROM messages
		ORDER BY conversation_id, message_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.Message)
	for rows.Next() {
		var id string
		var m models.Message
		if err := rows.Scan(&id, &m.Role, &m.Content); err != nil {
			return nil, err
		}
		out[id] = append(out[id], m)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ConversationStore = (*SQLiteStore)(nil)
