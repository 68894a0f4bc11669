package app

// Config holds runtime configuration for one pipeline run.
type Config struct {
	SurveyPath string
	OutputJSON string
	OutputPDF  string

	// LLM
	LLMBaseURL    string
	LLMAPIKey     string
	ModelCommoner string
	ModelElite    string

	// Generation
	Tier      string
	UserID    string
	FollowUps []string

	// Persistence
	DBPath   string
	CacheDir string

	// Export decoration
	ShareURL string
	LogoURL  string

	Verbose bool
}
