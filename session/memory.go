package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ragforge/retrieval/selfrag"
)

// DefaultMaxMessages is the sliding-window size applied when Config.MaxMessages
// is unset, matching MessageWindowChatMemory's default of 20 in Tangerg-lynx/ai.
const DefaultMaxMessages = 20

// Config configures an InMemoryStore.
type Config struct {
	// MaxMessages bounds how many most-recent messages GetContextString
	// includes. GetChatHistory is not windowed: it always returns the full
	// history.
	MaxMessages int
}

func (c *Config) validate() Config {
	out := Config{MaxMessages: DefaultMaxMessages}
	if c != nil && c.MaxMessages > 0 {
		out.MaxMessages = c.MaxMessages
	}
	return out
}

type record struct {
	meta        Meta
	messages    []Message
	debugTraces map[string]*selfrag.DebugTrace
	createdAt   time.Time
}

// InMemoryStore is a process-local reference Store implementation, suitable
// for tests and single-instance deployments without an external session
// database. Message retention follows a sliding window: once a session's
// history exceeds MaxMessages, the oldest turns are no longer included in
// the generated context string (GetChatHistory still returns full history).
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*record
	cfg      Config
}

// NewInMemoryStore constructs an empty InMemoryStore. A nil cfg applies
// DefaultMaxMessages.
func NewInMemoryStore(cfg *Config) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*record),
		cfg:      cfg.validate(),
	}
}

func (s *InMemoryStore) CreateSession(_ context.Context, meta Meta) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &record{
		meta:        meta,
		debugTraces: make(map[string]*selfrag.DebugTrace),
		createdAt:   time.Now(),
	}
	return id, nil
}

func (s *InMemoryStore) GetChatHistory(_ context.Context, sessionID string) (History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return History{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	msgs := make([]Message, len(rec.messages))
	copy(msgs, rec.messages)
	return History{Messages: msgs, MessageCount: len(msgs)}, nil
}

func (s *InMemoryStore) GetContextString(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	windowed := s.window(rec.messages)
	if len(windowed) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, m := range windowed {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// window takes the most recent maxMessages entries, a LIFO sliding-window
// retention policy.
func (s *InMemoryStore) window(msgs []Message) []Message {
	if len(msgs) <= s.cfg.MaxMessages {
		return msgs
	}
	return msgs[len(msgs)-s.cfg.MaxMessages:]
}

func (s *InMemoryStore) AddConversation(_ context.Context, sessionID, userMessage, assistantMessage string, meta Meta) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	now := time.Now()
	rec.messages = append(rec.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Content: userMessage, Timestamp: now},
		Message{ID: uuid.NewString(), Role: RoleAssistant, Content: assistantMessage, Timestamp: now},
	)
	if meta != nil {
		if rec.meta == nil {
			rec.meta = Meta{}
		}
		for k, v := range meta {
			rec.meta[k] = v
		}
	}
	return nil
}

func (s *InMemoryStore) GetDebugTrace(_ context.Context, sessionID, messageID string) (*selfrag.DebugTrace, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, false, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	trace, ok := rec.debugTraces[messageID]
	return trace, ok, nil
}

// RecordDebugTrace stores a Self-RAG debug trace against the message id
// that produced it. Not part of the Store interface: a caller opts in to
// tracing per-request (selfrag.Options.EnableDebugTrace) and, when it does,
// persists the result here so GetDebugTrace can later serve it.
func (s *InMemoryStore) RecordDebugTrace(_ context.Context, sessionID, messageID string, trace *selfrag.DebugTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	rec.debugTraces[messageID] = trace
	return nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
