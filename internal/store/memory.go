package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errLedgerUnavailable = errors.New("ledger unavailable")

// MemoryStore is an in-memory ConversationStore/LedgerStore for tests and
// offline runs. The atomic token operation can be disabled to exercise the
// degraded fallback path.
type MemoryStore struct {
	// DisableTokenRPC makes AddConversationTokens report ErrRPCUnavailable,
	// simulating a backend where the atomic operation is not deployed.
	DisableTokenRPC bool
	// DisableLedger makes InsertEntry fail, simulating a missing ledger
	// table or permission.
	DisableLedger bool

	mu            sync.Mutex
	conversations map[string]Conversation
	entries       []LedgerEntry
}

var (
	_ ConversationStore = (*MemoryStore)(nil)
	_ LedgerStore       = (*MemoryStore)(nil)
	_ TokenRPC          = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]Conversation)}
}

func (m *MemoryStore) CreateOrUpdate(_ context.Context, id, userID string, p Patch) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if id == "" {
		conv := Conversation{
			ID:        uuid.NewString(),
			UserID:    userID,
			Archived:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyPatch(&conv, p)
		m.conversations[conv.ID] = conv
		return conv, nil
	}

	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return Conversation{}, ErrNotFound
	}
	applyPatch(&conv, p)
	conv.UpdatedAt = now
	m.conversations[id] = conv
	return conv, nil
}

func (m *MemoryStore) Get(_ context.Context, id, userID string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok || (userID != "" && conv.UserID != userID) {
		return nil, ErrNotFound
	}
	out := conv
	return &out, nil
}

func (m *MemoryStore) InsertEntry(_ context.Context, e LedgerEntry) (LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DisableLedger {
		return LedgerEntry{}, errLedgerUnavailable
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *MemoryStore) AddConversationTokens(_ context.Context, conversationID string, amount int64, note string) (LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DisableTokenRPC {
		return LedgerEntry{}, ErrRPCUnavailable
	}
	if amount < 0 {
		amount = 0
	}
	conv, ok := m.conversations[conversationID]
	if !ok {
		return LedgerEntry{}, ErrNotFound
	}
	conv.TokensCount += amount
	if conv.TokensCount < 0 {
		conv.TokensCount = 0
	}
	conv.UpdatedAt = time.Now().UTC()
	m.conversations[conversationID] = conv

	entry := LedgerEntry{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Amount:         amount,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

// Entries returns a copy of all recorded ledger entries, oldest first.
func (m *MemoryStore) Entries() []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LedgerEntry(nil), m.entries...)
}

func applyPatch(conv *Conversation, p Patch) {
	if p.Survey != nil {
		conv.Survey = *p.Survey
	}
	if p.Payload != nil {
		doc := *p.Payload
		conv.Payload = &doc
	}
	if p.FollowUps != nil {
		conv.FollowUps = append([]string(nil), *p.FollowUps...)
	}
	if p.ModelUsed != nil {
		conv.ModelUsed = *p.ModelUsed
	}
	if p.TokensCount != nil {
		conv.TokensCount = *p.TokensCount
	}
	if p.Archived != nil {
		conv.Archived = *p.Archived
	}
}
