package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested sections
// map naturally to flags and environment variables.
type FileConfig struct {
	Survey    string `yaml:"survey" json:"survey"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Models struct {
		Commoner string `yaml:"commoner" json:"commoner"`
		Elite    string `yaml:"elite" json:"elite"`
	} `yaml:"models" json:"models"`

	Tier   string `yaml:"tier" json:"tier"`
	UserID string `yaml:"user" json:"user"`

	FollowUps []string `yaml:"followUps" json:"followUps"`

	DB string `yaml:"db" json:"db"`

	Cache struct {
		Dir string `yaml:"dir" json:"dir"`
	} `yaml:"cache" json:"cache"`

	Share struct {
		URL  string `yaml:"url" json:"url"`
		Logo string `yaml:"logo" json:"logo"`
	} `yaml:"share" json:"share"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are currently unset in cfg. Flags should already have been parsed;
// file config supplies defaults while explicit flags win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	const (
		outputDefault   = "report.json"
		cacheDirDefault = ".capstack-cache"
		userDefault     = "local"
	)

	if cfg.SurveyPath == "" && fc.Survey != "" {
		cfg.SurveyPath = fc.Survey
	}
	if (cfg.OutputJSON == "" || cfg.OutputJSON == outputDefault) && fc.Output != "" {
		cfg.OutputJSON = fc.Output
	}
	if cfg.OutputPDF == "" && fc.OutputPDF != "" {
		cfg.OutputPDF = fc.OutputPDF
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.ModelCommoner == "" && fc.Models.Commoner != "" {
		cfg.ModelCommoner = fc.Models.Commoner
	}
	if cfg.ModelElite == "" && fc.Models.Elite != "" {
		cfg.ModelElite = fc.Models.Elite
	}

	if cfg.Tier == "" && fc.Tier != "" {
		cfg.Tier = fc.Tier
	}
	if (cfg.UserID == "" || cfg.UserID == userDefault) && fc.UserID != "" {
		cfg.UserID = fc.UserID
	}
	if len(cfg.FollowUps) == 0 && len(fc.FollowUps) > 0 {
		cfg.FollowUps = append([]string{}, fc.FollowUps...)
	}

	if cfg.DBPath == "" && fc.DB != "" {
		cfg.DBPath = fc.DB
	}
	if (cfg.CacheDir == "" || cfg.CacheDir == cacheDirDefault) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}

	if cfg.ShareURL == "" && fc.Share.URL != "" {
		cfg.ShareURL = fc.Share.URL
	}
	if cfg.LogoURL == "" && fc.Share.Logo != "" {
		cfg.LogoURL = fc.Share.Logo
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SurveyPath) == "" {
		return errors.New("config: survey path is required")
	}
	if strings.TrimSpace(cfg.OutputJSON) == "" {
		return errors.New("config: output path is required")
	}
	if strings.TrimSpace(cfg.ModelCommoner) == "" {
		return errors.New("config: models.commoner is required (or set MODEL_COMMONER)")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return errors.New("config: user identifier is required")
	}
	return nil
}
