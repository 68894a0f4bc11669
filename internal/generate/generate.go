package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/ledger"
	"github.com/IvanClarion/CapStack-sub000/internal/llm"
	"github.com/IvanClarion/CapStack-sub000/internal/report"
	"github.com/IvanClarion/CapStack-sub000/internal/sanitize"
	"github.com/IvanClarion/CapStack-sub000/internal/store"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
	"github.com/IvanClarion/CapStack-sub000/internal/tokens"
)

// State is the orchestrator's position within one generation round.
type State int

const (
	StateIdle State = iota
	StatePrompting
	StateAwaitingModel
	StateParsing
	StateValidating
	StatePersisting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompting:
		return "prompting"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateParsing:
		return "parsing"
	case StateValidating:
		return "validating"
	case StatePersisting:
		return "persisting"
	default:
		return "unknown"
	}
}

// Session drives structured generation for one conversation. It exclusively
// owns the in-flight document and round state; the durable aggregate is only
// ever touched through the store. A Session is single-flight: the caller uses
// the loading flag to gate duplicate submissions, and cancellation of the
// round context suppresses all state updates from a late-arriving response.
type Session struct {
	Generator llm.Generator
	Estimator *tokens.Estimator
	Store     store.ConversationStore
	Ledger    *ledger.Appender
	UserID    string
	// Tier must be resolved by the caller before the first round; an unset
	// tier makes Run a silent no-op.
	Tier llm.Tier
	// OnTransition, when set, observes every state change.
	OnTransition func(State)

	basis          *survey.Result
	followUps      []string
	doc            *report.Document
	rawText        string
	conversationID string
	modelUsed      string
	tokensTotal    int64
	savedOnce      bool
	loading        bool
	followUpDraft  string
	state          State
}

// RoundInput describes one generation round.
type RoundInput struct {
	// FollowUp marks a refinement round: the pending draft is appended to
	// the follow-up sequence and the updated document is persisted.
	FollowUp bool
}

// Round is the outcome of a completed round.
type Round struct {
	// Skipped is true when preconditions were not met ("not ready yet");
	// this is not a failure.
	Skipped        bool
	Document       report.Document
	ConversationID string
	TokensDelta    int64
	TokensTotal    int64
}

// UseBasis sets the survey basis (original or override) for prompt building.
func (s *Session) UseBasis(r survey.Result) {
	s.basis = &r
}

// Rehydrate resumes a persisted conversation: identifier, basis, follow-up
// history, payload, and running total. A rehydrated session never auto-saves.
func (s *Session) Rehydrate(conv store.Conversation) {
	s.conversationID = conv.ID
	s.basis = &conv.Survey
	s.followUps = append([]string(nil), conv.FollowUps...)
	s.doc = conv.Payload
	s.modelUsed = conv.ModelUsed
	s.tokensTotal = conv.TokensCount
	s.savedOnce = true
}

// SetFollowUpDraft stages refinement text for the next follow-up round. The
// draft is cleared when a round completes, unless the round was cancelled.
func (s *Session) SetFollowUpDraft(text string) {
	s.followUpDraft = text
}

func (s *Session) Document() *report.Document { return s.doc }
func (s *Session) RawText() string            { return s.rawText }
func (s *Session) ConversationID() string     { return s.conversationID }
func (s *Session) ModelUsed() string          { return s.modelUsed }
func (s *Session) TokensTotal() int64         { return s.tokensTotal }
func (s *Session) Loading() bool              { return s.loading }
func (s *Session) State() State               { return s.state }

// FollowUps returns a copy of the accumulated follow-up sequence.
func (s *Session) FollowUps() []string {
	return append([]string(nil), s.followUps...)
}

func (s *Session) transition(st State) {
	s.state = st
	if s.OnTransition != nil {
		s.OnTransition(st)
	}
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// Run executes one generation round: build the prompt, invoke the model,
// sanitize/validate/normalize the response, persist, and record usage. Steps
// run strictly in order; after every suspension point the round context is
// checked, and once it is cancelled no further session state is applied.
func (s *Session) Run(ctx context.Context, in RoundInput) (Round, error) {
	// "Not ready yet" is a silent no-op, not an error.
	if s.Tier == "" || s.basis == nil || s.basis.Empty() {
		return Round{Skipped: true}, nil
	}
	if s.loading {
		return Round{Skipped: true}, nil
	}

	s.loading = true
	defer func() {
		// Success or handled failure clears the loading state and the
		// follow-up draft; a cancelled round leaves both alone.
		if !cancelled(ctx) {
			s.loading = false
			s.followUpDraft = ""
		}
	}()

	s.transition(StatePrompting)
	if in.FollowUp {
		if t := strings.TrimSpace(s.followUpDraft); t != "" {
			s.followUps = append(s.followUps, t)
		}
	}
	prompt := survey.BuildPrompt(*s.basis, s.followUps)
	inputEstimate := s.Estimator.Estimate(prompt)

	s.transition(StateAwaitingModel)
	gen, err := s.Generator.Generate(ctx, *s.basis, s.followUps, s.Tier)
	if cancelled(ctx) {
		// Stale response: drop it without touching session state.
		return Round{}, ctx.Err()
	}
	if err != nil {
		s.transition(StateIdle)
		return Round{}, &RoundError{Kind: KindModel, Err: err}
	}

	outputEstimate := s.Estimator.Estimate(gen.Text)
	delta := int64(inputEstimate + outputEstimate)
	if delta < 0 {
		delta = 0
	}

	s.transition(StateParsing)
	s.rawText = gen.Text
	parsed, err := report.Parse(sanitize.Sanitize(gen.Text))
	if err != nil {
		s.transition(StateIdle)
		return Round{}, &RoundError{Kind: KindParse, RawText: gen.Text, Err: err}
	}

	s.transition(StateValidating)
	if err := report.Validate(parsed); err != nil {
		s.transition(StateIdle)
		return Round{}, &RoundError{Kind: KindValidate, RawText: gen.Text, Err: err}
	}

	doc := report.Normalize(parsed.(map[string]any))
	s.doc = &doc
	s.modelUsed = gen.ModelUsed

	s.transition(StatePersisting)
	hadConversation := s.conversationID != ""
	if !hadConversation && !s.savedOnce {
		// One-shot silent save: the first successful document of a
		// brand-new session allocates the conversation identifier.
		fu := s.FollowUps()
		conv, err := s.Store.CreateOrUpdate(ctx, "", s.UserID, store.Patch{
			Survey:    s.basis,
			Payload:   &doc,
			FollowUps: &fu,
			ModelUsed: &gen.ModelUsed,
		})
		if cancelled(ctx) {
			return Round{}, ctx.Err()
		}
		if err != nil {
			s.transition(StateIdle)
			return Round{}, &RoundError{Kind: KindInternal, Err: fmt.Errorf("create conversation: %w", err)}
		}
		s.conversationID = conv.ID
		s.savedOnce = true
	}

	note := "initial generation"
	if in.FollowUp {
		note = "follow-up generation"
	}
	s.tokensTotal += delta
	if s.Ledger != nil && s.conversationID != "" {
		if _, err := s.Ledger.Append(ctx, s.conversationID, delta, note); err != nil {
			log.Warn().Err(err).Str("conversation", s.conversationID).
				Msg("token ledger append failed; generation unaffected")
		}
		if cancelled(ctx) {
			return Round{}, ctx.Err()
		}
	}

	// Reconcile the optimistic local total against the source of truth;
	// keep the local estimate when the read fails.
	if s.conversationID != "" {
		conv, err := s.Store.Get(ctx, s.conversationID, s.UserID)
		if cancelled(ctx) {
			return Round{}, ctx.Err()
		}
		if err != nil {
			log.Warn().Err(err).Str("conversation", s.conversationID).
				Msg("token total re-read failed; keeping local estimate")
		} else {
			s.tokensTotal = conv.TokensCount
		}
	}

	if in.FollowUp || hadConversation {
		fu := s.FollowUps()
		if _, err := s.Store.CreateOrUpdate(ctx, s.conversationID, s.UserID, store.Patch{
			Payload:   &doc,
			FollowUps: &fu,
			ModelUsed: &gen.ModelUsed,
		}); err != nil {
			// Silent background save: swallow and log.
			log.Warn().Err(err).Str("conversation", s.conversationID).
				Msg("silent conversation save failed")
		}
		if cancelled(ctx) {
			return Round{}, ctx.Err()
		}
	}

	s.transition(StateIdle)
	return Round{
		Document:       doc,
		ConversationID: s.conversationID,
		TokensDelta:    delta,
		TokensTotal:    s.tokensTotal,
	}, nil
}
