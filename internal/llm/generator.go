package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/cache"
	"github.com/IvanClarion/CapStack-sub000/internal/survey"
)

// Generation is one raw model response.
type Generation struct {
	Text      string
	ModelUsed string
}

// Generator produces a raw structured-report response for a survey basis plus
// its accumulated follow-ups. The tier selects the model variant.
type Generator interface {
	Generate(ctx context.Context, basis survey.Result, followUps []string, tier Tier) (Generation, error)
}

// ChatGenerator drives an OpenAI-compatible chat endpoint under the
// strict-JSON contract. The optional cache allows deterministic re-runs.
type ChatGenerator struct {
	Client Client
	Models ModelMap
	Cache  *cache.ResponseCache
}

func (g *ChatGenerator) Generate(ctx context.Context, basis survey.Result, followUps []string, tier Tier) (Generation, error) {
	if g.Client == nil {
		return Generation{}, errors.New("generator not configured")
	}
	model := g.Models.ForTier(tier)
	if strings.TrimSpace(model) == "" {
		return Generation{}, errors.New("no model configured for tier " + string(tier))
	}

	user := survey.BuildPrompt(basis, followUps)
	key := cache.Key(model, survey.SystemMessage+"\n\n"+user)
	if g.Cache != nil {
		if text, ok := g.Cache.Get(key); ok {
			return Generation{Text: text, ModelUsed: model}, nil
		}
	}

	resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: survey.SystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, errors.New("no choices")
	}
	text := resp.Choices[0].Message.Content
	if g.Cache != nil {
		if err := g.Cache.Save(key, text); err != nil {
			log.Warn().Err(err).Msg("response cache save failed")
		}
	}
	return Generation{Text: text, ModelUsed: model}, nil
}
