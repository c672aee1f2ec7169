// Package session defines the boundary to external conversation storage:
// chat history, the context string fed into generation prompts, and the
// per-message debug trace recorded when Self-RAG tracing is enabled. The
// core pipeline only ever consumes this interface (see
// selfrag.SessionContextResolver); it never depends on a storage backend.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/ragforge/retrieval/selfrag"
)

// ErrSessionNotFound is returned when an operation references a session id
// that does not exist (or has been deleted).
var ErrSessionNotFound = errors.New("session: not found")

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// History is the chat history returned for a session.
type History struct {
	Messages     []Message
	MessageCount int
}

// Meta is free-form session metadata (e.g. user id, client tag).
type Meta map[string]string

// Store is the narrow, external boundary to conversation persistence.
type Store interface {
	CreateSession(ctx context.Context, meta Meta) (string, error)
	GetChatHistory(ctx context.Context, sessionID string) (History, error)
	GetContextString(ctx context.Context, sessionID string) (string, error)
	AddConversation(ctx context.Context, sessionID, userMessage, assistantMessage string, meta Meta) error
	GetDebugTrace(ctx context.Context, sessionID, messageID string) (*selfrag.DebugTrace, bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ResolveContext implements selfrag.SessionContextResolver. It is a thin
// adapter so any Store can be plugged directly into a selfrag.Pipeline
// without an extra wrapper type.
type contextResolver struct {
	store Store
}

// AsContextResolver adapts a Store to selfrag.SessionContextResolver.
func AsContextResolver(store Store) selfrag.SessionContextResolver {
	return &contextResolver{store: store}
}

func (c *contextResolver) ResolveContext(ctx context.Context, sessionID string) (string, error) {
	return c.store.GetContextString(ctx, sessionID)
}
