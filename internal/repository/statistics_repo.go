package repository

import (
	"context"
	"fmt"
	"time"

	"freightdesk/internal/model"

	"gorm.io/gorm"
)

// CollectionDataPoint is one period bucket of the collections aggregate.
type CollectionDataPoint struct {
	Period         string `gorm:"column:period"`
	TotalDue       string `gorm:"column:total_due"`
	TotalCollected string `gorm:"column:total_collected"`
}

type StatisticsRepository interface {
	CountCargoByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error)
	TopContainersByFill(ctx context.Context, limit int) ([]model.ContainerFillRate, error)
	CollectionsByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]CollectionDataPoint, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountCargoByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count cargo by status: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *statisticsRepository) TopContainersByFill(ctx context.Context, limit int) ([]model.ContainerFillRate, error) {
	var rankings []model.ContainerFillRate
	if err := GetDB(ctx, r.db).Table("containers").
		Select(`containers.id as container_id, containers.reference, containers.destination, containers.status,
			containers.declared_weight, containers.used_weight,
			CASE WHEN containers.declared_weight > 0 THEN containers.used_weight / containers.declared_weight * 100 ELSE 0 END as weight_fill_pct,
			COUNT(cargo_items.id) as item_count`).
		Joins("LEFT JOIN cargo_items ON cargo_items.container_id = containers.id AND cargo_items.deleted_at IS NULL").
		Where("containers.deleted_at IS NULL").
		Group("containers.id, containers.reference, containers.destination, containers.status, containers.declared_weight, containers.used_weight").
		Order("weight_fill_pct DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query container fill rates: %w", err)
	}
	return rankings, nil
}

// CollectionsByPeriod buckets valid payments with DATE_TRUNC; groupBy must be
// validated by the caller (week, month, quarter, year).
func (r *statisticsRepository) CollectionsByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]CollectionDataPoint, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, p.created_at), 'YYYY-MM-DD') AS period,
			COALESCE(CAST(SUM(p.amount_due) AS TEXT), '0') AS total_due,
			COALESCE(CAST(SUM(p.amount_paid) AS TEXT), '0') AS total_collected
		FROM payments p
		WHERE p.status = $2
		  AND p.created_at >= $3
		  AND p.created_at <= $4
		GROUP BY DATE_TRUNC($1, p.created_at)
		ORDER BY period
	`

	var rows []CollectionDataPoint
	if err := GetDB(ctx, r.db).Raw(query,
		groupBy,
		model.PaymentStatusValid,
		start,
		end,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query collections by period: %w", err)
	}
	return rows, nil
}
