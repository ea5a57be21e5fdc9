package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/apierr"
	"github.com/quantalink/qnet-gateway/internal/service"
	"github.com/quantalink/qnet-gateway/internal/tier"
)

// Context keys shared by the gateway middleware chain.
const (
	CtxTier    = "tier"
	CtxKeyHash = "api_key_hash"
)

// KeyClassifier resolves the caller's API key into a service tier and stores
// it on the request context. Requests without a key are rejected outright;
// keys with an unrecognised prefix are tolerated and land in the default
// tier.
func KeyClassifier(classifier tier.Classifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := strings.TrimSpace(c.GetHeader("X-API-Key"))

		t, err := classifier.Classify(rawKey)
		if err != nil {
			if errors.Is(err, tier.ErrMissingKey) {
				apierr.Abort(c, http.StatusUnauthorized, "Missing API key", apierr.CodeInvalidAPIKey)
				return
			}
			apierr.Abort(c, http.StatusUnauthorized, "Invalid API key", apierr.CodeInvalidAPIKey)
			return
		}

		c.Set(CtxTier, t)
		c.Set(CtxKeyHash, service.HashKey(rawKey))

		c.Next()
	}
}

// TierFromContext returns the tier stored by KeyClassifier, or nil.
func TierFromContext(c *gin.Context) *tier.Tier {
	v, ok := c.Get(CtxTier)
	if !ok {
		return nil
	}
	t, _ := v.(*tier.Tier)
	return t
}
