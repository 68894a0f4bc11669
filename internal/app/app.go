// Package app wires the survey-to-report pipeline together: survey intake,
// model invocation, document validation and persistence, token accounting,
// and artifact export.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/cache"
	"github.com/IvanClarion/CapStack-sub000/internal/export"
	"github.com/IvanClarion/CapStack-sub000/internal/generate"
	"github.com/IvanClarion/CapStack-sub000/internal/ledger"
	"github.com/IvanClarion/CapStack-sub000/internal/llm"
	"github.com/IvanClarion/CapStack-sub000/internal/store"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
	"github.com/IvanClarion/CapStack-sub000/internal/tokens"
)

// App owns the configured pipeline for one run.
type App struct {
	cfg     Config
	session *generate.Session
	closeFn func() error
}

// New builds the pipeline from configuration: the OpenAI-compatible client,
// the conversation store (SQLite when a path is configured, in-memory
// otherwise), the token estimator, and the generation session.
func New(ctx context.Context, cfg Config) (*App, error) {
	tier, err := llm.ParseTier(cfg.Tier)
	if err != nil {
		return nil, err
	}

	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	provider := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	// Quick connectivity check by listing models. Best-effort: warn and
	// continue, letting the generation call surface real errors.
	{
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		models, err := provider.ListModels(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("model list failed; continuing")
		} else {
			log.Debug().Int("count", len(models.Models)).Msg("LLM reachable")
		}
	}

	var (
		conversations store.ConversationStore
		ledgerRows    store.LedgerStore
		tokenRPC      store.TokenRPC
		closeFn       = func() error { return nil }
	)
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		conversations, ledgerRows, tokenRPC = db, db, db
		closeFn = db.Close
	} else {
		mem := store.NewMemoryStore()
		conversations, ledgerRows, tokenRPC = mem, mem, mem
		log.Warn().Msg("no database path configured; conversations will not survive this run")
	}

	var respCache *cache.ResponseCache
	if cfg.CacheDir != "" {
		respCache = &cache.ResponseCache{Dir: cfg.CacheDir}
	}

	models := llm.ModelMap{Commoner: cfg.ModelCommoner, Elite: cfg.ModelElite}
	session := &generate.Session{
		Generator: &llm.ChatGenerator{Client: provider, Models: models, Cache: respCache},
		Estimator: tokens.New(models.ForTier(tier)),
		Store:     conversations,
		Ledger: &ledger.Appender{
			RPC:           tokenRPC,
			Conversations: conversations,
			Ledger:        ledgerRows,
			UserID:        cfg.UserID,
		},
		UserID: cfg.UserID,
		Tier:   tier,
		OnTransition: func(st generate.State) {
			log.Debug().Stringer("state", st).Msg("round transition")
		},
	}

	return &App{cfg: cfg, session: session, closeFn: closeFn}, nil
}

// Close releases the store.
func (a *App) Close() error { return a.closeFn() }

// Run executes the pipeline: load the survey, generate the initial document,
// apply any configured follow-up refinements, then write the artifacts.
func (a *App) Run(ctx context.Context) error {
	basis, err := survey.ParseResultFile(a.cfg.SurveyPath)
	if err != nil {
		return fmt.Errorf("load survey: %w", err)
	}
	a.session.UseBasis(basis)

	round, err := a.session.Run(ctx, generate.RoundInput{})
	if err != nil {
		return describeRoundError(err)
	}
	if round.Skipped {
		return errors.New("generation skipped: survey is empty or tier unresolved")
	}
	log.Info().
		Str("conversation", round.ConversationID).
		Str("model", a.session.ModelUsed()).
		Int64("tokensDelta", round.TokensDelta).
		Int64("tokensTotal", round.TokensTotal).
		Msg("initial document generated")

	for _, fu := range a.cfg.FollowUps {
		a.session.SetFollowUpDraft(fu)
		round, err = a.session.Run(ctx, generate.RoundInput{FollowUp: true})
		if err != nil {
			return describeRoundError(err)
		}
		log.Info().
			Str("followUp", fu).
			Int64("tokensDelta", round.TokensDelta).
			Int64("tokensTotal", round.TokensTotal).
			Msg("document refined")
	}

	doc := round.Document
	if err := writeDocumentJSON(a.cfg.OutputJSON, doc); err != nil {
		return err
	}
	log.Info().Str("path", a.cfg.OutputJSON).Msg("wrote document")

	if a.cfg.OutputPDF != "" {
		meta := export.Meta{
			FileName: a.cfg.OutputPDF,
			LogoURL:  a.cfg.LogoURL,
			ShareURL: a.cfg.ShareURL,
		}
		if err := export.PDF(doc, meta); err != nil {
			return err
		}
		log.Info().Str("path", a.cfg.OutputPDF).Msg("wrote pdf")
	}

	log.Info().
		Str("conversation", round.ConversationID).
		Int64("tokensTotal", round.TokensTotal).
		Msg("run complete")
	return nil
}

// describeRoundError attaches a truncated raw-model excerpt to parse and
// validation failures so the operator can see what the model produced.
func describeRoundError(err error) error {
	var re *generate.RoundError
	if !errors.As(err, &re) {
		return err
	}
	if re.RawText == "" {
		return re
	}
	excerpt := re.RawText
	const maxExcerpt = 400
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "..."
	}
	return fmt.Errorf("%w\nmodel output excerpt:\n%s", re, excerpt)
}
