package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/store"
)

// Appender records immutable token-usage events against a conversation. The
// preferred path is the atomic remote operation; when that is unavailable the
// appender degrades to a read-modify-write fallback that is last-write-wins
// under concurrent appenders. The fallback exists for development and offline
// runs; operators should deploy the atomic operation for correctness.
type Appender struct {
	// RPC is the atomic operation. Nil, or ErrRPCUnavailable from it,
	// selects the fallback.
	RPC store.TokenRPC
	// Conversations backs the fallback's total read and write-back.
	Conversations store.ConversationStore
	// Ledger backs the fallback's best-effort row insert. Optional.
	Ledger store.LedgerStore
	// UserID scopes fallback reads and writes to the owning user.
	UserID string
}

// Append records amount tokens for the conversation with an explanatory note
// and returns the ledger row. Amount is floored to a non-negative integer.
// The returned entry is synthetic when the fallback could not persist a row;
// callers get a consistent shape either way.
func (a *Appender) Append(ctx context.Context, conversationID string, amount int64, note string) (store.LedgerEntry, error) {
	if amount < 0 {
		amount = 0
	}
	if a.RPC != nil {
		entry, err := a.RPC.AddConversationTokens(ctx, conversationID, amount, note)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, store.ErrRPCUnavailable) {
			return store.LedgerEntry{}, fmt.Errorf("token rpc: %w", err)
		}
		log.Warn().Str("conversation", conversationID).
			Msg("atomic token operation unavailable; using non-atomic fallback")
	}
	return a.appendFallback(ctx, conversationID, amount, note)
}

// appendFallback reads the current total, writes back current+amount
// unconditionally, then inserts the row best-effort. The read-modify-write is
// a documented race under concurrent appenders.
func (a *Appender) appendFallback(ctx context.Context, conversationID string, amount int64, note string) (store.LedgerEntry, error) {
	if a.Conversations == nil {
		return store.LedgerEntry{}, errors.New("ledger fallback: no conversation store")
	}
	conv, err := a.Conversations.Get(ctx, conversationID, a.UserID)
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("ledger fallback read: %w", err)
	}
	next := conv.TokensCount + amount
	if next < 0 {
		next = 0
	}
	if _, err := a.Conversations.CreateOrUpdate(ctx, conversationID, a.UserID, store.Patch{TokensCount: &next}); err != nil {
		return store.LedgerEntry{}, fmt.Errorf("ledger fallback write: %w", err)
	}

	entry := store.LedgerEntry{
		ConversationID: conversationID,
		Amount:         amount,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
	if a.Ledger != nil {
		if inserted, err := a.Ledger.InsertEntry(ctx, entry); err == nil {
			return inserted, nil
		} else {
			log.Warn().Err(err).Str("conversation", conversationID).
				Msg("ledger row insert failed; returning synthesized entry")
		}
	}
	entry.Synthetic = true
	return entry, nil
}
