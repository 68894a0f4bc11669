package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "capstack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(title string) *report.Document {
	d := report.Normalize(map[string]any{"title": title, "summary": "S"})
	return &d
}

func TestSQLite_InsertAllocatesIdentifier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "test"}
	conv, err := s.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis, Payload: testDoc("T")})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.True(t, conv.Archived, "new conversations are archived by convention")
	assert.False(t, conv.CreatedAt.IsZero())

	got, err := s.Get(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "test", got.Survey.OpenEndedAnswer)
	require.NotNil(t, got.Payload)
	assert.Equal(t, "T", got.Payload.Title)
	assert.Equal(t, report.SchemaVersion, got.Payload.SchemaVersion)
}

func TestSQLite_PartialUpdateLeavesOtherFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "seed"}
	model := "gpt-4o-mini"
	conv, err := s.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis, Payload: testDoc("T"), ModelUsed: &model})
	require.NoError(t, err)

	fu := []string{"angle A"}
	updated, err := s.CreateOrUpdate(ctx, conv.ID, "user-1", Patch{FollowUps: &fu})
	require.NoError(t, err)

	assert.Equal(t, []string{"angle A"}, updated.FollowUps)
	assert.Equal(t, "gpt-4o-mini", updated.ModelUsed, "omitted field must be untouched")
	assert.Equal(t, "seed", updated.Survey.OpenEndedAnswer, "omitted field must be untouched")
	require.NotNil(t, updated.Payload)
	assert.Equal(t, "T", updated.Payload.Title, "omitted field must be untouched")
	assert.True(t, updated.UpdatedAt.After(conv.UpdatedAt) || updated.UpdatedAt.Equal(conv.UpdatedAt))
}

func TestSQLite_UpdateScopedToOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "seed"}
	conv, err := s.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis})
	require.NoError(t, err)

	_, err = s.CreateOrUpdate(ctx, conv.ID, "intruder", Patch{Payload: testDoc("X")})
	assert.ErrorIs(t, err, ErrNotFound, "authorization by filter")

	_, err = s.Get(ctx, conv.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_AddConversationTokensAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "seed"}
	conv, err := s.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis})
	require.NoError(t, err)

	entry, err := s.AddConversationTokens(ctx, conv.ID, 120, "initial generation")
	require.NoError(t, err)
	assert.Equal(t, int64(120), entry.Amount)
	assert.Equal(t, "initial generation", entry.Note)

	_, err = s.AddConversationTokens(ctx, conv.ID, 80, "follow-up generation")
	require.NoError(t, err)

	got, err := s.Get(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.TokensCount)

	entries, err := s.LedgerEntries(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(120), entries[0].Amount)
	assert.Equal(t, int64(80), entries[1].Amount)
}

func TestSQLite_AddConversationTokensFloorsNegative(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "seed"}
	conv, err := s.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis})
	require.NoError(t, err)

	entry, err := s.AddConversationTokens(ctx, conv.ID, -50, "noise")
	require.NoError(t, err)
	assert.Equal(t, int64(0), entry.Amount)

	got, err := s.Get(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TokensCount)
}

func TestSQLite_AddConversationTokensUnknownConversation(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AddConversationTokens(context.Background(), "missing", 10, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_MatchesContract(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	basis := survey.Result{OpenEndedAnswer: "seed"}
	conv, err := m.CreateOrUpdate(ctx, "", "user-1", Patch{Survey: &basis})
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	assert.True(t, conv.Archived)

	fu := []string{"angle A"}
	updated, err := m.CreateOrUpdate(ctx, conv.ID, "user-1", Patch{FollowUps: &fu})
	require.NoError(t, err)
	assert.Equal(t, "seed", updated.Survey.OpenEndedAnswer)

	_, err = m.CreateOrUpdate(ctx, conv.ID, "intruder", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.AddConversationTokens(ctx, conv.ID, 500, "initial generation")
	require.NoError(t, err)
	got, err := m.Get(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TokensCount)

	m.DisableTokenRPC = true
	_, err = m.AddConversationTokens(ctx, conv.ID, 1, "")
	assert.ErrorIs(t, err, ErrRPCUnavailable)
}
