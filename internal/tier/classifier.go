package tier

import (
	"errors"
	"strings"
)

// ErrMissingKey is returned when the request carries no API key at all.
// Keys with an unknown prefix are not an error; they fall into the default
// tier.
var ErrMissingKey = errors.New("missing API key")

// Classifier resolves a raw API key into a service tier. The prefix
// implementation below trusts the key's literal prefix; swapping in real
// authentication (signed tokens, issuer lookup) only requires a new
// implementation of this interface.
type Classifier interface {
	Classify(rawKey string) (*Tier, error)
}

type prefixRule struct {
	prefix string
	tier   *Tier
}

// PrefixClassifier maps keys to tiers by literal prefix. Rules are ordered
// most-specific first; classification is a pure pattern match with no side
// effects.
type PrefixClassifier struct {
	rules       []prefixRule
	defaultTier *Tier
}

// NewPrefixClassifier builds the classifier over the given tier set. The
// tiers map must contain the three built-in names.
func NewPrefixClassifier(tiers map[string]*Tier) *PrefixClassifier {
	return &PrefixClassifier{
		rules: []prefixRule{
			{prefix: "qn_test_", tier: tiers[TierSandbox]},
			{prefix: "qn_live_", tier: tiers[TierPro]},
			{prefix: "qn_ent_", tier: tiers[TierEnterprise]},
		},
		defaultTier: tiers[TierSandbox],
	}
}

// KeyPrefix returns the key prefix issued for the named tier, or "" if the
// tier is unknown.
func (c *PrefixClassifier) KeyPrefix(tierName string) string {
	for _, r := range c.rules {
		if r.tier.Name == tierName {
			return r.prefix
		}
	}
	return ""
}

// Classify resolves rawKey to a tier. Empty keys fail with ErrMissingKey;
// keys matching no rule land in the default tier.
func (c *PrefixClassifier) Classify(rawKey string) (*Tier, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, ErrMissingKey
	}

	for _, r := range c.rules {
		if strings.HasPrefix(rawKey, r.prefix) {
			return r.tier, nil
		}
	}

	return c.defaultTier, nil
}
