package model

import (
	"time"
)

// DashboardStatistics aggregates operational and financial totals for the
// back-office dashboard.
type DashboardStatistics struct {
	TotalClients        int64               `json:"total_clients"`
	CargoCountByStatus  map[string]int64    `json:"cargo_count_by_status"`
	ContainersByStatus  map[string]int64    `json:"containers_by_status"`
	TotalDue            string              `json:"total_due"`
	TotalCollected      string              `json:"total_collected"`
	TotalOutstanding    string              `json:"total_outstanding"`
	TopContainersByFill []ContainerFillRate `json:"top_containers_by_fill"`
	TimeRangeStartDate  time.Time           `json:"time_range_start_date"`
	TimeRangeEndDate    time.Time           `json:"time_range_end_date"`
}

// ContainerFillRate ranks a container by how full it is against declared capacity
type ContainerFillRate struct {
	ContainerID    string  `json:"container_id"`
	Reference      string  `json:"reference"`
	Destination    string  `json:"destination"`
	Status         string  `json:"status"`
	DeclaredWeight float64 `json:"declared_weight"`
	UsedWeight     float64 `json:"used_weight"`
	WeightFillPct  float64 `json:"weight_fill_pct"`
	ItemCount      int     `json:"item_count"`
}
