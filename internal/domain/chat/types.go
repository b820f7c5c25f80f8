package chat

import (
	"context"
	"time"
)

// User 聊天用户
type User struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation 会话
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryEntry 会话中的一条消息
type HistoryEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user | assistant
	Agent          string    `json:"agent,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store 会话持久化接口
type Store interface {
	CreateUser(ctx context.Context, userName string) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)

	CreateConversation(ctx context.Context, userID string) (*Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)

	AppendMessage(ctx context.Context, entry *HistoryEntry) error
	History(ctx context.Context, conversationID string) ([]HistoryEntry, error)
}
