package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
)

// ResponseCache stores raw model responses on disk keyed by a model+prompt
// digest so rounds can be replayed deterministically and offline.
type ResponseCache struct {
	Dir string
}

// Key builds a cache key from the model name and the full prompt text.
func Key(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *ResponseCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return os.MkdirAll(c.Dir, 0o755)
}

func (c *ResponseCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".txt")
}

// Get returns the cached response text if present.
func (c *ResponseCache) Get(key string) (string, bool) {
	if err := c.ensureDir(); err != nil {
		return "", false
	}
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Save writes the response text to the cache.
func (c *ResponseCache) Save(key, text string) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(key), []byte(text), 0o644)
}
