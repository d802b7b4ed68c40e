package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/memochat/memochat/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time, and an in-memory database
	// exists per connection; a single pooled connection avoids both
	// problems.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			api_key TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			message_count INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reasoning TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (conversation_id, seq),
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.UserID, user.Username, user.PasswordHash, user.CreatedAt)
	if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrUsernameTaken
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash, api_key, created_at FROM users WHERE user_id = ?`,
		userID))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash, api_key, created_at FROM users WHERE username = ?`,
		username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var apiKey sql.NullString
	err := row.Scan(&user.UserID, &user.Username, &user.PasswordHash, &apiKey, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if apiKey.Valid {
		user.APIKey = apiKey.String
	}
	return &user, nil
}

// UpdateUserAPIKey sets or clears a user's provider API key. An empty key
// clears it.
func (s *SQLiteStore) UpdateUserAPIKey(ctx context.Context, userID, apiKey string) error {
	var value sql.NullString
	if apiKey != "" {
		value = sql.NullString{String: apiKey, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET api_key = ? WHERE user_id = ?`,
		value, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

// CreateConversation creates a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, created_at, updated_at, message_count) VALUES (?, ?, ?, ?, ?)`,
		conv.ConversationID, conv.UserID, conv.CreatedAt, conv.UpdatedAt, conv.MessageCount)
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, created_at, updated_at, message_count, summary FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&conv.ConversationID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount, &summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		conv.Summary = summary.String
	}
	return &conv, nil
}

// ListConversations returns a user's most recently updated conversations,
// each with its first message as a preview.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationPreview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.conversation_id, c.user_id, c.created_at, c.updated_at, c.message_count, c.summary,
		        m.message_id, m.seq, m.role, m.content, m.created_at
		 FROM conversations c
		 LEFT JOIN messages m ON m.conversation_id = c.conversation_id AND m.seq = 0
		 WHERE c.user_id = ?
		 ORDER BY c.updated_at DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var previews []domain.ConversationPreview
	for rows.Next() {
		var p domain.ConversationPreview
		var summary sql.NullString
		var msgID, role, content sql.NullString
		var seq sql.NullInt64
		var msgCreatedAt sql.NullTime
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.MessageCount, &summary,
			&msgID, &seq, &role, &content, &msgCreatedAt); err != nil {
			return nil, err
		}
		if summary.Valid {
			p.Summary = summary.String
		}
		if msgID.Valid {
			p.FirstMessage = &domain.Message{
				MessageID:      msgID.String,
				ConversationID: p.ConversationID,
				Seq:            int(seq.Int64),
				Role:           domain.Role(role.String),
				Content:        content.String,
				CreatedAt:      msgCreatedAt.Time,
			}
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}

// UpdateConversationSummary persists a compressed summary on the
// conversation record.
func (s *SQLiteStore) UpdateConversationSummary(ctx context.Context, conversationID, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET summary = ? WHERE conversation_id = ?`,
		summary, conversationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	return nil
}

// GetMessages retrieves all messages of a conversation in sequence order.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, seq, role, content, reasoning, created_at FROM messages WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var reasoning sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Seq, &msg.Role, &msg.Content, &reasoning, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if reasoning.Valid {
			msg.Reasoning = reasoning.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// FinalizeTurn commits a turn's two messages and the counter advance in
// one transaction. The message counter is read inside the transaction so
// concurrent finalizes on the same conversation cannot produce duplicate
// sequence numbers.
func (s *SQLiteStore) FinalizeTurn(ctx context.Context, conversationID, userContent, assistantContent, reasoning string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT message_count FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&count)
	if err == sql.ErrNoRows {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	if err != nil {
		return fmt.Errorf("failed to read message count: %w", err)
	}

	now := time.Now()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), conversationID, count, domain.RoleUser, userContent, now); err != nil {
		return fmt.Errorf("failed to insert user message: %w", err)
	}

	var reasoningValue sql.NullString
	if reasoning != "" {
		reasoningValue = sql.NullString{String: reasoning, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, seq, role, content, reasoning, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), conversationID, count+1, domain.RoleAssistant, assistantContent, reasoningValue, now); err != nil {
		return fmt.Errorf("failed to insert assistant message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET message_count = ?, updated_at = ? WHERE conversation_id = ?`,
		count+2, now, conversationID); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit()
}
