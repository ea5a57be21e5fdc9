package repository

import (
	"context"
	"time"

	"github.com/quantalink/qnet-gateway/internal/models"
	"github.com/quantalink/qnet-gateway/internal/storage"
)

type UsageLogRepository struct {
	db *storage.Postgres
}

func NewUsageLogRepository(db *storage.Postgres) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Inserts multiple usage logs (for batch insertion)
func (r *UsageLogRepository) CreateBatch(ctx context.Context, logs []models.UsageLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

// Retrieves logs within a time range
func (r *UsageLogRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.UsageLog, error) {
	var logs []models.UsageLog

	err := r.db.DB.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, err
}

// Counts logs in a time range
func (r *UsageLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// DecisionCount is one row of the per-decision breakdown.
type DecisionCount struct {
	Tier     string `json:"tier"`
	Decision string `json:"decision"`
	Count    int64  `json:"count"`
}

// Returns request counts grouped by tier and decision
func (r *UsageLogRepository) CountByTierAndDecision(ctx context.Context, from, to time.Time) ([]DecisionCount, error) {
	var results []DecisionCount

	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Select("tier, decision, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("tier").
		Group("decision").
		Order("count DESC").
		Scan(&results).Error

	return results, err
}

// Calculates average response time
func (r *UsageLogRepository) GetAverageResponseTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64

	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// Deletes logs older than the specified time
func (r *UsageLogRepository) DeleteOldLogs(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.UsageLog{})

	return result.RowsAffected, result.Error
}
