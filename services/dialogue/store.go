package dialogue

import (
	"context"
	"sync"
	"time"

	"servicefinder/models"
	"servicefinder/services/intent"

	"github.com/google/uuid"
)

// Conversation is the explicit per-conversation context the engine reads and writes on each
// call. Nothing about a dialogue lives in process-wide state.
type Conversation struct {
	ID             string                 `json:"conversationId"`
	State          models.DialogueState   `json:"state"`
	Memory         intent.LocationMemory  `json:"memory"`
	PendingService string                 `json:"pendingService,omitempty"`
	ShownProviders []string               `json:"shownProviders,omitempty"`
	LastQuery      *models.CanonicalQuery `json:"lastQuery,omitempty"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// NewConversation returns a conversation in the initial state.
func NewConversation(id string) *Conversation {
	return &Conversation{ID: id, State: models.StateInitial}
}

// ContextStore persists conversations and owns the per-conversation busy flag.
type ContextStore interface {
	// Get returns the stored conversation or a fresh one when none exists.
	Get(ctx context.Context, id string) (*Conversation, error)
	Set(ctx context.Context, conv *Conversation) error
	Clear(ctx context.Context, id string) error
	// Acquire sets the busy flag and returns the token that owns it; ok is false when the
	// flag is already held.
	Acquire(ctx context.Context, id string) (token string, ok bool, err error)
	// Release clears the flag only while it is still owned by token.
	Release(ctx context.Context, id, token string) error
}

// TurnLog is the append-only conversation transcript.
type TurnLog interface {
	Append(ctx context.Context, conversationID string, turn models.Turn) error
	List(ctx context.Context, conversationID string) ([]models.Turn, error)
}

// MemoryStore keeps conversations and transcripts in process memory. It implements both
// ContextStore and TurnLog and is used by the local chat command and tests.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string]Conversation
	busy  map[string]string
	turns map[string][]models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[string]Conversation),
		busy:  make(map[string]string),
		turns: make(map[string][]models.Turn),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return NewConversation(id), nil
	}
	conv.ShownProviders = append([]string(nil), conv.ShownProviders...)
	if conv.Memory.Location != nil {
		loc := *conv.Memory.Location
		conv.Memory.Location = &loc
	}
	if conv.LastQuery != nil {
		q := *conv.LastQuery
		conv.LastQuery = &q
	}
	return &conv, nil
}

func (s *MemoryStore) Set(_ context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = *conv
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}

func (s *MemoryStore) Acquire(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.busy[id]; held {
		return "", false, nil
	}
	token := uuid.New().String()
	s.busy[id] = token
	return token, true, nil
}

func (s *MemoryStore) Release(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[id] == token {
		delete(s.busy, id)
	}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[conversationID] = append(s.turns[conversationID], turn)
	return nil
}

func (s *MemoryStore) List(_ context.Context, conversationID string) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Turn(nil), s.turns[conversationID]...), nil
}
