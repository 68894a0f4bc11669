package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
)

// SQLiteStore persists conversations and the token ledger in a local SQLite
// database. It implements ConversationStore, LedgerStore, and TokenRPC; the
// RPC is a single transaction, so the running total and the ledger row move
// as one indivisible step.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ ConversationStore = (*SQLiteStore)(nil)
	_ LedgerStore       = (*SQLiteStore)(nil)
	_ TokenRPC          = (*SQLiteStore)(nil)
)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			survey_result TEXT NOT NULL,
			structured_payload TEXT,
			follow_ups TEXT NOT NULL DEFAULT '[]',
			model_used TEXT,
			tokens_count INTEGER NOT NULL DEFAULT 0,
			archived INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS token_ledger (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			note TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_token_ledger_conversation ON token_ledger(conversation_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateOrUpdate(ctx context.Context, id, userID string, p Patch) (Conversation, error) {
	if id == "" {
		return s.insert(ctx, userID, p)
	}
	return s.update(ctx, id, userID, p)
}

func (s *SQLiteStore) insert(ctx context.Context, userID string, p Patch) (Conversation, error) {
	now := time.Now().UTC()
	conv := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Archived:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Survey != nil {
		conv.Survey = *p.Survey
	}
	if p.Payload != nil {
		conv.Payload = p.Payload
	}
	if p.FollowUps != nil {
		conv.FollowUps = *p.FollowUps
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

	surveyJSON, err := json.Marshal(conv.Survey)
	if err != nil {
		return Conversation{}, fmt.Errorf("marshal survey: %w", err)
	}
	payloadJSON, err := marshalPayload(conv.Payload)
	if err != nil {
		return Conversation{}, err
	}
	followUpsJSON, err := json.Marshal(emptySliceWhenNil(conv.FollowUps))
	if err != nil {
		return Conversation{}, fmt.Errorf("marshal follow-ups: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO conversations
		(id, user_id, survey_result, structured_payload, follow_ups, model_used, tokens_count, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, string(surveyJSON), payloadJSON, string(followUpsJSON),
		nullWhenEmpty(conv.ModelUsed), conv.TokensCount, boolToInt(conv.Archived), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) update(ctx context.Context, id, userID string, p Patch) (Conversation, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if p.Survey != nil {
		b, err := json.Marshal(*p.Survey)
		if err != nil {
			return Conversation{}, fmt.Errorf("marshal survey: %w", err)
		}
		sets = append(sets, "survey_result = ?")
		args = append(args, string(b))
	}
	if p.Payload != nil {
		b, err := marshalPayload(p.Payload)
		if err != nil {
			return Conversation{}, err
		}
		sets = append(sets, "structured_payload = ?")
		args = append(args, b)
	}
	if p.FollowUps != nil {
		b, err := json.Marshal(emptySliceWhenNil(*p.FollowUps))
		if err != nil {
			return Conversation{}, fmt.Errorf("marshal follow-ups: %w", err)
		}
		sets = append(sets, "follow_ups = ?")
		args = append(args, string(b))
	}
	if p.ModelUsed != nil {
		sets = append(sets, "model_used = ?")
		args = append(args, nullWhenEmpty(*p.ModelUsed))
	}
	if p.TokensCount != nil {
		sets = append(sets, "tokens_count = ?")
		args = append(args, *p.TokensCount)
	}
	if p.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, boolToInt(*p.Archived))
	}

	// Authorization by filter: the update is scoped to id AND owner.
	args = append(args, id, userID)
	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	if n == 0 {
		return Conversation{}, ErrNotFound
	}

	conv, err := s.Get(ctx, id, userID)
	if err != nil {
		return Conversation{}, err
	}
	return *conv, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id, userID string) (*Conversation, error) {
	query := `SELECT id, user_id, survey_result, structured_payload, follow_ups, model_used, tokens_count, archived, created_at, updated_at
		FROM conversations WHERE id = ?`
	args := []any{id}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	var (
		conv          Conversation
		surveyJSON    string
		payloadJSON   sql.NullString
		followUpsJSON string
		modelUsed     sql.NullString
		archived      int
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&conv.ID, &conv.UserID, &surveyJSON, &payloadJSON, &followUpsJSON,
		&modelUsed, &conv.TokensCount, &archived, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(surveyJSON), &conv.Survey); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	if payloadJSON.Valid && payloadJSON.String != "" {
		var doc report.Document
		if err := json.Unmarshal([]byte(payloadJSON.String), &doc); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		conv.Payload = &doc
	}
	if err := json.Unmarshal([]byte(followUpsJSON), &conv.FollowUps); err != nil {
		return nil, fmt.Errorf("decode follow-ups: %w", err)
	}
	conv.ModelUsed = modelUsed.String
	conv.Archived = archived != 0
	return &conv, nil
}

func (s *SQLiteStore) InsertEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO token_ledger (id, conversation_id, amount, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ConversationID, e.Amount, nullWhenEmpty(e.Note), e.CreatedAt)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return e, nil
}

// AddConversationTokens bumps the running total and records the ledger row in
// a single transaction.
func (s *SQLiteStore) AddConversationTokens(ctx context.Context, conversationID string, amount int64, note string) (LedgerEntry, error) {
	if amount < 0 {
		amount = 0
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET tokens_count = MAX(0, tokens_count + ?), updated_at = ? WHERE id = ?`,
		amount, time.Now().UTC(), conversationID)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("bump tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("bump tokens: %w", err)
	}
	if n == 0 {
		return LedgerEntry{}, ErrNotFound
	}

	entry := LedgerEntry{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Amount:         amount,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO token_ledger (id, conversation_id, amount, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.ConversationID, entry.Amount, nullWhenEmpty(entry.Note), entry.CreatedAt); err != nil {
		return LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return LedgerEntry{}, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

// LedgerEntries returns a conversation's usage events, oldest first.
func (s *SQLiteStore) LedgerEntries(ctx context.Context, conversationID string) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, amount, note, created_at FROM token_ledger
		 WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Amount, &note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalPayload(doc *report.Document) (any, error) {
	if doc == nil {
		return nil, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}

func emptySliceWhenNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullWhenEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
