package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/models"
	"github.com/quantalink/qnet-gateway/internal/repository"
	"github.com/quantalink/qnet-gateway/internal/service"
	"go.uber.org/zap"
)

// Context keys set by the execute handler for the usage log.
const (
	CtxProtocol = "protocol"
	CtxHardware = "hardware"
)

const usageBatchSize = 100

// UsageRecorder persists gateway decisions to Postgres in batches, off the
// request path. A full buffer drops entries rather than blocking requests.
type UsageRecorder struct {
	repo *repository.UsageLogRepository
	keys *service.APIKeyService
	log  *zap.Logger
	ch   chan models.UsageLog
}

func NewUsageRecorder(repo *repository.UsageLogRepository, keys *service.APIKeyService, log *zap.Logger, bufferSize int) *UsageRecorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &UsageRecorder{
		repo: repo,
		keys: keys,
		log:  log,
		ch:   make(chan models.UsageLog, bufferSize),
	}
}

// Start runs the batch writer until ctx is cancelled. Remaining entries are
// flushed on every tick and on shutdown.
func (u *UsageRecorder) Start(ctx context.Context) {
	go func() {
		batch := make([]models.UsageLog, 0, usageBatchSize)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := u.repo.CreateBatch(context.Background(), batch); err != nil {
				u.log.Warn("failed to insert usage logs", zap.Error(err), zap.Int("count", len(batch)))
			}

			seen := make(map[string]struct{}, len(batch))
			for _, entry := range batch {
				if entry.KeyHash == "" {
					continue
				}
				if _, ok := seen[entry.KeyHash]; ok {
					continue
				}
				seen[entry.KeyHash] = struct{}{}
				u.keys.TouchLastUsed(context.Background(), entry.KeyHash)
			}

			batch = batch[:0]
		}

		for {
			select {
			case <-ctx.Done():
				flush()
				return
			case entry := <-u.ch:
				batch = append(batch, entry)
				if len(batch) >= usageBatchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
}

// Middleware observes the final status of each request and queues a usage
// entry.
func (u *UsageRecorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Only the keyed API surface is audited.
		if !strings.HasPrefix(c.Request.URL.Path, "/v1") {
			return
		}

		decision, ok := decisionForStatus(c.Writer.Status())
		if !ok {
			return
		}

		var tierName string
		if t := TierFromContext(c); t != nil {
			tierName = t.Name
		}

		entry := models.UsageLog{
			Timestamp:      start,
			KeyHash:        c.GetString(CtxKeyHash),
			Tier:           tierName,
			Protocol:       c.GetString(CtxProtocol),
			Decision:       decision,
			Hardware:       c.GetBool(CtxHardware),
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			IPAddress:      c.ClientIP(),
		}

		select {
		case u.ch <- entry:
		default:
			// Buffer full; dropping beats blocking the request path.
			u.log.Warn("usage log buffer full, dropping entry")
		}
	}
}

func decisionForStatus(status int) (string, bool) {
	switch status {
	case http.StatusOK:
		return models.DecisionProceed, true
	case http.StatusUnauthorized:
		return models.DecisionMissingKey, true
	case http.StatusForbidden:
		return models.DecisionHardwareDenied, true
	case http.StatusTooManyRequests:
		return models.DecisionRateLimited, true
	default:
		return "", false
	}
}
