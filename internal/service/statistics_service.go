package service

import (
	"context"
	"fmt"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

// CollectionDataPoint is one period bucket of the collections report.
type CollectionDataPoint struct {
	Period         string `json:"period"`
	TotalDue       string `json:"total_due"`
	TotalCollected string `json:"total_collected"`
	Outstanding    string `json:"outstanding"`
}

type CollectionFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate time.Time
	EndDate   time.Time
}

// --- Interface ---

type StatisticsService interface {
	GetDashboard(ctx context.Context, startDate, endDate time.Time) (model.DashboardStatistics, error)
	GetCollections(ctx context.Context, filter CollectionFilter) ([]CollectionDataPoint, error)
}

type statisticsService struct {
	statsRepo     repository.StatisticsRepository
	clientRepo    repository.ClientRepository
	containerRepo repository.ContainerRepository
}

func NewStatisticsService(
	statsRepo repository.StatisticsRepository,
	clientRepo repository.ClientRepository,
	containerRepo repository.ContainerRepository,
) StatisticsService {
	return &statisticsService{
		statsRepo:     statsRepo,
		clientRepo:    clientRepo,
		containerRepo: containerRepo,
	}
}

// --- Implementation ---

func (s *statisticsService) GetDashboard(ctx context.Context, startDate, endDate time.Time) (model.DashboardStatistics, error) {
	var stats model.DashboardStatistics
	stats.TimeRangeStartDate = startDate
	stats.TimeRangeEndDate = endDate

	totalClients, err := s.clientRepo.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count clients: %w", err)
	}
	stats.TotalClients = totalClients

	cargoCounts, err := s.statsRepo.CountCargoByStatus(ctx, startDate, endDate)
	if err != nil {
		return stats, err
	}
	stats.CargoCountByStatus = cargoCounts

	containerCounts, err := s.containerRepo.CountByStatus(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count containers: %w", err)
	}
	stats.ContainersByStatus = containerCounts

	topContainers, err := s.statsRepo.TopContainersByFill(ctx, 5)
	if err != nil {
		return stats, err
	}
	stats.TopContainersByFill = topContainers

	// One all-time bucket gives the headline due/collected totals.
	points, err := s.statsRepo.CollectionsByPeriod(ctx, "year", time.Time{}, endDate)
	if err != nil {
		return stats, err
	}
	totalDue := decimal.Zero
	totalCollected := decimal.Zero
	for _, p := range points {
		due, parseErr := decimal.NewFromString(p.TotalDue)
		if parseErr != nil {
			return stats, fmt.Errorf("failed to parse due total: %w", parseErr)
		}
		collected, parseErr := decimal.NewFromString(p.TotalCollected)
		if parseErr != nil {
			return stats, fmt.Errorf("failed to parse collected total: %w", parseErr)
		}
		totalDue = totalDue.Add(due)
		totalCollected = totalCollected.Add(collected)
	}
	stats.TotalDue = totalDue.String()
	stats.TotalCollected = totalCollected.String()
	stats.TotalOutstanding = totalDue.Sub(totalCollected).String()

	return stats, nil
}

func (s *statisticsService) GetCollections(ctx context.Context, filter CollectionFilter) ([]CollectionDataPoint, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
		// valid
	default:
		groupBy = "month"
	}

	rows, err := s.statsRepo.CollectionsByPeriod(ctx, groupBy, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	result := make([]CollectionDataPoint, 0, len(rows))
	for _, r := range rows {
		due, parseErr := decimal.NewFromString(r.TotalDue)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse due total: %w", parseErr)
		}
		collected, parseErr := decimal.NewFromString(r.TotalCollected)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse collected total: %w", parseErr)
		}
		result = append(result, CollectionDataPoint{
			Period:         r.Period,
			TotalDue:       due.StringFixed(4),
			TotalCollected: collected.StringFixed(4),
			Outstanding:    due.Sub(collected).StringFixed(4),
		})
	}
	return result, nil
}
