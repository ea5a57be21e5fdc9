package service

import (
	"context"
	"time"

	"github.com/quantalink/qnet-gateway/internal/repository"
)

type UsageService struct {
	repository *repository.UsageLogRepository
}

func NewUsageService(repo *repository.UsageLogRepository) *UsageService {
	return &UsageService{repository: repo}
}

// UsageSummary aggregates gateway decisions over a time range.
type UsageSummary struct {
	From            time.Time                  `json:"from"`
	To              time.Time                  `json:"to"`
	TotalRequests   int64                      `json:"total_requests"`
	AvgResponseTime float64                    `json:"avg_response_time_ms"`
	ByTierDecision  []repository.DecisionCount `json:"by_tier_decision"`
}

func (s *UsageService) GetSummary(ctx context.Context, from, to time.Time) (*UsageSummary, error) {
	summary := &UsageSummary{From: from, To: to}

	total, err := s.repository.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = total

	if total == 0 {
		return summary, nil
	}

	avg, err := s.repository.GetAverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avg

	breakdown, err := s.repository.CountByTierAndDecision(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.ByTierDecision = breakdown

	return summary, nil
}

// PruneOlderThan deletes usage logs past the retention horizon.
func (s *UsageService) PruneOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return s.repository.DeleteOldLogs(ctx, before)
}
