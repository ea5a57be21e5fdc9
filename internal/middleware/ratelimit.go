package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/apierr"
	"github.com/quantalink/qnet-gateway/internal/metrics"
	"github.com/quantalink/qnet-gateway/internal/ratelimit"
	"github.com/quantalink/qnet-gateway/internal/tier"
	"go.uber.org/zap"
)

// RateLimit enforces the per-key window quotas. It must run after
// KeyClassifier; the counter key is the key hash so raw keys never reach the
// store.
func RateLimit(tracker *ratelimit.Tracker, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TierFromContext(c)
		if t == nil {
			// Route misconfiguration; classification must come first.
			apierr.Abort(c, http.StatusUnauthorized, "Missing API key", apierr.CodeInvalidAPIKey)
			return
		}
		key := c.GetString(CtxKeyHash)

		res, err := tracker.CheckAndConsume(c.Request.Context(), key, t, time.Now())
		if err != nil {
			m.StoreErrors.WithLabelValues("error").Inc()
			log.Error("rate limit check failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Rate limit check failed",
			})
			return
		}

		setRateLimitHeaders(c, t, res)

		if !res.Allowed {
			retryAfter := int(time.Until(res.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			msg := fmt.Sprintf("%s rate limit exceeded. Limit: %d requests. Reset at: %s",
				res.Window, res.Limit, res.ResetAt.Format(time.RFC3339))
			apierr.Abort(c, http.StatusTooManyRequests, msg, apierr.CodeRateLimitExceeded)
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, t *tier.Tier, res ratelimit.Result) {
	if t.RequestsPerDay == tier.Unlimited {
		c.Header("X-RateLimit-Limit", "unlimited")
		c.Header("X-RateLimit-Remaining", "unlimited")
	} else {
		c.Header("X-RateLimit-Limit", strconv.FormatInt(t.RequestsPerDay, 10))
		remaining := res.Remaining
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	}
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	c.Header("X-API-Tier", t.Name)
}
