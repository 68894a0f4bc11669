package store

import (
	"context"
	"errors"
	"time"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
)

// Conversation is the durable aggregate for one survey session. It is
// created on the first successful generation and updated in place afterwards.
// TokensCount is a derived, eventually-consistent cache of the ledger sum;
// exact equality is never assumed.
type Conversation struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Survey      survey.Result    `json:"surveyResult"`
	Payload     *report.Document `json:"structuredPayload,omitempty"`
	FollowUps   []string         `json:"followUps"`
	ModelUsed   string           `json:"modelUsed,omitempty"`
	TokensCount int64            `json:"tokensCount"`
	Archived    bool             `json:"archived"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// LedgerEntry is an immutable usage event explaining how a conversation's
// running total reached its value. Entries are never updated or deleted.
type LedgerEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Amount         int64     `json:"amount"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	// Synthetic marks an in-memory row shape returned when the degraded
	// fallback path could not persist the real row.
	Synthetic bool `json:"-"`
}

// Patch is a partial update. Nil fields are left untouched server-side.
type Patch struct {
	Survey      *survey.Result
	Payload     *report.Document
	FollowUps   *[]string
	ModelUsed   *string
	TokensCount *int64
	Archived    *bool
}

var (
	// ErrNotFound indicates the id+user scope matched no conversation.
	ErrNotFound = errors.New("conversation not found")
	// ErrRPCUnavailable indicates the atomic token operation is not
	// deployed; callers fall back to the documented non-atomic path.
	ErrRPCUnavailable = errors.New("token rpc unavailable")
)

// ConversationStore persists the Conversation aggregate. Updates are scoped
// to both the identifier and the owning user; overlapping updates are
// last-write-wins at the field level.
type ConversationStore interface {
	// CreateOrUpdate inserts a new conversation when id is empty (the store
	// allocates the identifier, Archived defaults to true) and otherwise
	// applies the patch to the existing record, bumping UpdatedAt.
	CreateOrUpdate(ctx context.Context, id, userID string, p Patch) (Conversation, error)
	// Get returns the conversation, or ErrNotFound.
	Get(ctx context.Context, id, userID string) (*Conversation, error)
}

// LedgerStore appends immutable usage events.
type LedgerStore interface {
	InsertEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error)
}

// TokenRPC is the preferred, atomic remote operation: one indivisible step
// that bumps the running total and inserts the ledger row.
type TokenRPC interface {
	AddConversationTokens(ctx context.Context, conversationID string, amount int64, note string) (LedgerEntry, error)
}
