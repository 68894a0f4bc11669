package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/app"
)

// followUpList collects repeatable -followup flags in order.
type followUpList []string

func (f *followUpList) String() string { return strings.Join(*f, "; ") }

func (f *followUpList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional; explicit env always wins over its contents.
	_ = godotenv.Load()

	var (
		surveyPath    string
		outputJSON    string
		outputPDF     string
		llmBaseURL    string
		llmKey        string
		modelCommoner string
		modelElite    string
		tier          string
		userID        string
		dbPath        string
		cacheDir      string
		followUps     followUpList
		shareURL      string
		logoURL       string
		configPath    string
		verbose       bool
	)

	flag.StringVar(&surveyPath, "survey", os.Getenv("SURVEY_FILE"), "Path to survey result file (YAML or JSON)")
	flag.StringVar(&outputJSON, "out", "report.json", "Path to write the structured document JSON")
	flag.StringVar(&outputPDF, "pdf", "", "Optional path to write a PDF export")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.StringVar(&modelCommoner, "model.commoner", os.Getenv("MODEL_COMMONER"), "Model for the commoner tier")
	flag.StringVar(&modelElite, "model.elite", os.Getenv("MODEL_ELITE"), "Model for the elite tier (falls back to commoner)")
	flag.StringVar(&tier, "tier", envOr("TIER", "commoner"), "Subscription tier: commoner or elite")
	flag.StringVar(&userID, "user", envOr("CAPSTACK_USER", "local"), "Owner identifier for conversations")
	flag.StringVar(&dbPath, "db", os.Getenv("CAPSTACK_DB"), "SQLite database path (empty keeps conversations in memory)")
	flag.StringVar(&cacheDir, "cache.dir", ".capstack-cache", "Response cache directory (empty disables)")
	flag.Var(&followUps, "followup", "Follow-up refinement text; repeatable, applied in order")
	flag.StringVar(&shareURL, "share.url", os.Getenv("SHARE_URL"), "Optional share link embedded in the PDF footer")
	flag.StringVar(&logoURL, "logo.url", os.Getenv("LOGO_URL"), "Optional logo image URL for the PDF header")
	flag.StringVar(&configPath, "config", os.Getenv("CAPSTACK_CONFIG"), "Optional YAML/JSON config file; flags win over its values")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		SurveyPath:    surveyPath,
		OutputJSON:    outputJSON,
		OutputPDF:     outputPDF,
		LLMBaseURL:    llmBaseURL,
		LLMAPIKey:     llmKey,
		ModelCommoner: modelCommoner,
		ModelElite:    modelElite,
		Tier:          tier,
		UserID:        userID,
		FollowUps:     followUps,
		DBPath:        dbPath,
		CacheDir:      cacheDir,
		ShareURL:      shareURL,
		LogoURL:       logoURL,
		Verbose:       verbose,
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file")
			os.Exit(2)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("store close")
		}
	}()

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
