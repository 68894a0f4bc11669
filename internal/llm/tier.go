package llm

import (
	"fmt"
	"strings"
)

// Tier is the caller's resolved access level. It selects which underlying
// model variant answers a generation round; nothing else branches on it.
type Tier string

const (
	TierCommoner Tier = "commoner"
	TierElite    Tier = "elite"
)

// ParseTier normalizes a tier string. The empty string is rejected: callers
// resolve the tier before the first round and thread it in explicitly.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierCommoner:
		return TierCommoner, nil
	case TierElite:
		return TierElite, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// ModelMap maps tiers to concrete model identifiers.
type ModelMap struct {
	Commoner string
	Elite    string
}

// ForTier returns the model id for a tier. Unknown tiers fall back to the
// commoner model.
func (m ModelMap) ForTier(t Tier) string {
	if t == TierElite && m.Elite != "" {
		return m.Elite
	}
	return m.Commoner
}
