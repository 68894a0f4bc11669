package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capstack.yaml")
	body := `survey: survey.yaml
output: out/report.json
outputPDF: out/report.pdf
llm:
  base: http://localhost:8090/v1
  key: secret
models:
  commoner: gpt-4o-mini
  elite: gpt-4o
tier: elite
user: student-7
followUps:
  - focus on hardware
db: capstack.db
cache:
  dir: .cache
share:
  url: https://example.com/r/1
verbose: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Survey != "survey.yaml" || fc.Models.Elite != "gpt-4o" || fc.Tier != "elite" {
		t.Fatalf("unexpected config: %+v", fc)
	}
	if len(fc.FollowUps) != 1 || fc.FollowUps[0] != "focus on hardware" {
		t.Fatalf("follow-ups: %v", fc.FollowUps)
	}
}

func TestLoadConfigFile_JSONFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capstack.conf")
	body := `{"survey":"s.json","models":{"commoner":"m"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Survey != "s.json" || fc.Models.Commoner != "m" {
		t.Fatalf("unexpected config: %+v", fc)
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	cfg := Config{
		SurveyPath:    "explicit.yaml",
		OutputJSON:    "report.json", // flag default, file may override
		ModelCommoner: "",
		UserID:        "local", // flag default
	}
	var fc FileConfig
	fc.Survey = "from-file.yaml"
	fc.Output = "file-output.json"
	fc.Models.Commoner = "file-model"
	fc.UserID = "file-user"
	fc.Tier = "commoner"

	ApplyFileConfig(&cfg, fc)

	if cfg.SurveyPath != "explicit.yaml" {
		t.Fatalf("explicit flag must win, got %q", cfg.SurveyPath)
	}
	if cfg.OutputJSON != "file-output.json" {
		t.Fatalf("file must override the flag default, got %q", cfg.OutputJSON)
	}
	if cfg.ModelCommoner != "file-model" || cfg.UserID != "file-user" || cfg.Tier != "commoner" {
		t.Fatalf("file values must fill unset fields: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{SurveyPath: "s.yaml", OutputJSON: "o.json", ModelCommoner: "m", UserID: "u"}
	if err := ValidateConfig(valid); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing survey", func(c *Config) { c.SurveyPath = " " }},
		{"missing output", func(c *Config) { c.OutputJSON = "" }},
		{"missing model", func(c *Config) { c.ModelCommoner = "" }},
		{"missing user", func(c *Config) { c.UserID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
