package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator derives an approximate token count for prompt and completion
// text. When a tokenizer is available for the configured model it is used;
// otherwise the conservative chars/4 heuristic applies. Either way the result
// is an estimate, not billed ground truth.
type Estimator struct {
	Model string

	once  sync.Once
	codec tokenizer.Codec
}

// New returns an estimator for the given model name. An empty model name
// skips the exact tokenizer entirely.
func New(model string) *Estimator {
	return &Estimator{Model: model}
}

// Estimate returns a non-negative token count: zero for empty text, at least
// one otherwise.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	if c := e.exact(); c != nil {
		if ids, _, err := c.Encode(text); err == nil {
			return len(ids)
		}
	}
	return Heuristic(text)
}

// exact resolves a tiktoken codec for the model once. Unknown models fall
// back to the o200k_base encoding; a failure there disables exact counting.
func (e *Estimator) exact() tokenizer.Codec {
	e.once.Do(func() {
		model := strings.ToLower(strings.TrimSpace(e.Model))
		if model == "" {
			return
		}
		if c, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
			e.codec = c
			return
		}
		if c, err := tokenizer.Get(tokenizer.O200kBase); err == nil {
			e.codec = c
		}
	})
	return e.codec
}

// Heuristic estimates tokens as ceil(len/4), roughly four characters per
// token in English text.
func Heuristic(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
