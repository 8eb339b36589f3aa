package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zzstoatzz/slackbot/internal/models"
)

// PostgresStore is the conversation store over a pgx connection pool, for
// deployments where several gateway instances share one history.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL,
			message_index   INTEGER NOT NULL,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			created_at      TIMESTAMPTZ DEFAULT now(),
			PRIMARY KEY (conversation_id, message_index)
		)
	`)
	return err
}

// Load is a no-op: state lives in the database.
func (s *PostgresStore) Load(_ context.Context) error {
	return nil
}

// Get returns the ordered history for a conversation.
func (s *PostgresStore) Get(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = $1
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

// Append inserts after the current tail inside a transaction. A
// transaction-scoped advisory lock on the conversation id serializes
// concurrent appends: without it two writers read the same MAX under
// READ COMMITTED and the loser dies on the primary key, losing its turn.
func (s *PostgresStore) Append(ctx context.Context, conversationID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, conversationID); err != nil {
		return err
	}

	var next int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(message_index), -1) + 1 FROM messages
		WHERE conversation_id = $1
	`, conversationID).Scan(&next)
	if err != nil {
		return err
	}

	for i, m := range msgs {
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (conversation_id, message_index, role, content)
			VALUES ($1, $2, $3, $4)
		`, conversationID, next+i, m.Role, m.Content)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// All returns every conversation, ordered within each thread.
func (s *PostgresStore) All(ctx context.Context) (map[string][]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the underlying pool for components sharing the database
// (the knowledgebase store).
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

var _ ConversationStore = (*PostgresStore)(nil)
