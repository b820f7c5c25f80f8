package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sabio/internal/domain/chat"
	applog "sabio/internal/platform/log"
)

// ChatStore PostgreSQL 实现的会话存储
type ChatStore struct {
	db *sql.DB
}

// NewChatStore 创建会话存储
func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

// EnsureTables 确保会话相关表存在
func (s *ChatStore) EnsureTables(ctx context.Context) error {
	applog.Info("[Chat/PG] Ensuring chat tables exist...")
	ddl := `
	CREATE TABLE IF NOT EXISTS chat_users (
		user_id    VARCHAR(64) PRIMARY KEY,
		user_name  VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS chat_conversations (
		conversation_id VARCHAR(64) PRIMARY KEY,
		user_id         VARCHAR(64) NOT NULL REFERENCES chat_users(user_id),
		created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_conversations_user ON chat_conversations(user_id);
	CREATE TABLE IF NOT EXISTS chat_messages (
		id              UUID PRIMARY KEY,
		conversation_id VARCHAR(64) NOT NULL REFERENCES chat_conversations(conversation_id),
		role            VARCHAR(16) NOT NULL,
		agent           VARCHAR(32) NOT NULL DEFAULT '',
		content         TEXT NOT NULL,
		created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_conv ON chat_messages(conversation_id, created_at);
	`
	_, err := s.db.ExecContext(ctx, ddl)
	if err != nil {
		applog.Error("[Chat/PG] ❌ Failed to create tables", "error", err)
	} else {
		applog.Info("[Chat/PG] ✅ Tables ready")
	}
	return err
}

// CreateUser 创建用户，ID 形如 client<毫秒时间戳>
func (s *ChatStore) CreateUser(ctx context.Context, userName string) (*chat.User, error) {
	user := &chat.User{
		UserID:    fmt.Sprintf("client%d", time.Now().UnixMilli()),
		UserName:  userName,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_users (user_id, user_name, created_at) VALUES ($1, $2, $3)`,
		user.UserID, user.UserName, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pg create user: %w", err)
	}
	applog.Info("[Chat/PG] User created", "user_id", user.UserID)
	return user, nil
}

// GetUser 查询用户，不存在时返回 (nil, nil)
func (s *ChatStore) GetUser(ctx context.Context, userID string) (*chat.User, error) {
	var user chat.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, user_name, created_at FROM chat_users WHERE user_id = $1`,
		userID,
	).Scan(&user.UserID, &user.UserName, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pg get user: %w", err)
	}
	return &user, nil
}

// CreateConversation 创建会话，ID 形如 conv-<毫秒时间戳>
func (s *ChatStore) CreateConversation(ctx context.Context, userID string) (*chat.Conversation, error) {
	conv := &chat.Conversation{
		ConversationID: fmt.Sprintf("conv-%d", time.Now().UnixMilli()),
		UserID:         userID,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_conversations (conversation_id, user_id, created_at) VALUES ($1, $2, $3)`,
		conv.ConversationID, conv.UserID, conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pg create conversation: %w", err)
	}
	applog.Info("[Chat/PG] Conversation created", "conversation_id", conv.ConversationID, "user_id", userID)
	return conv, nil
}

// GetConversation 查询会话，不存在时返回 (nil, nil)
func (s *ChatStore) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, created_at FROM chat_conversations WHERE conversation_id = $1`,
		conversationID,
	).Scan(&conv.ConversationID, &conv.UserID, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pg get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations 列出用户的全部会话，按创建时间排序
func (s *ChatStore) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, created_at FROM chat_conversations
		 WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("pg list conversations: %w", err)
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ConversationID, &c.UserID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// AppendMessage 追加一条消息到会话历史
func (s *ChatStore) AppendMessage(ctx context.Context, entry *chat.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, conversation_id, role, agent, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ConversationID, entry.Role, entry.Agent, entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pg append message: %w", err)
	}
	return nil
}

// History 按时间顺序返回会话的全部消息
func (s *ChatStore) History(ctx context.Context, conversationID string) ([]chat.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, agent, content, created_at FROM chat_messages
		 WHERE conversation_id = $1 ORDER BY created_at`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("pg load history: %w", err)
	}
	defer rows.Close()

	var entries []chat.HistoryEntry
	for rows.Next() {
		var e chat.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Role, &e.Agent, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg scan message: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
