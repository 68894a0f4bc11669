package llm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/IvanClarion/CapStack-sub000/internal/cache"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
)

type fakeClient struct {
	calls int
	text  string
	err   error
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.text}},
		},
	}, nil
}

func TestChatGenerator_TierSelectsModel(t *testing.T) {
	fc := &fakeClient{text: "{}"}
	g := &ChatGenerator{Client: fc, Models: ModelMap{Commoner: "small", Elite: "large"}}

	gen, err := g.Generate(context.Background(), survey.Result{OpenEndedAnswer: "x"}, nil, TierElite)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.ModelUsed != "large" {
		t.Fatalf("expected elite model, got %q", gen.ModelUsed)
	}
}

func TestChatGenerator_ErrorPropagates(t *testing.T) {
	g := &ChatGenerator{Client: &fakeClient{err: errors.New("boom")}, Models: ModelMap{Commoner: "m"}}
	if _, err := g.Generate(context.Background(), survey.Result{}, nil, TierCommoner); err == nil {
		t.Fatal("expected transport error to propagate")
	}
}

func TestChatGenerator_CacheShortCircuits(t *testing.T) {
	fc := &fakeClient{text: `{"title":"T"}`}
	g := &ChatGenerator{
		Client: fc,
		Models: ModelMap{Commoner: "m"},
		Cache:  &cache.ResponseCache{Dir: filepath.Join(t.TempDir(), "c")},
	}
	basis := survey.Result{OpenEndedAnswer: "same prompt"}

	first, err := g.Generate(context.Background(), basis, nil, TierCommoner)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := g.Generate(context.Background(), basis, nil, TierCommoner)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", fc.calls)
	}
	if first.Text != second.Text {
		t.Fatal("cached text must match the original response")
	}
}
