package repository

import (
	"context"
	"errors"
	"time"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict signals that a guarded container write matched no row:
// another transaction bumped the version between read and write.
var ErrVersionConflict = errors.New("container version conflict")

// CapacityUsage carries the summed weight/volume of a container's current
// membership.
type CapacityUsage struct {
	UsedWeight float64
	UsedVolume float64
}

type ContainerRepository interface {
	Create(ctx context.Context, container *model.Container) error
	// UpdateDetails writes only the named columns. Status, used capacity,
	// closed_at, and version belong to SaveGuarded; detail edits must never
	// carry a stale copy of them back to the row.
	UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Container, error)
	// FindForUpdate locks the container row for the duration of the enclosing
	// transaction. Facade operations use it to serialize check-then-commit
	// sequences on the same container while other containers proceed in
	// parallel.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Container, error)
	List(ctx context.Context, status, destination string, page, limit int) ([]model.Container, int64, error)
	// SumAssignedCapacity derives used capacity from a fresh membership query;
	// the aggregate is never incremented in place.
	SumAssignedCapacity(ctx context.Context, id uuid.UUID) (CapacityUsage, error)
	// SaveGuarded persists the container only if its version column still
	// matches, bumping it by one; returns ErrVersionConflict otherwise.
	SaveGuarded(ctx context.Context, container *model.Container) error
	SetClosed(ctx context.Context, container *model.Container, closedAt time.Time) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type containerRepository struct {
	db *gorm.DB
}

func NewContainerRepository(db *gorm.DB) ContainerRepository {
	return &containerRepository{db: db}
}

func (r *containerRepository) Create(ctx context.Context, container *model.Container) error {
	return GetDB(ctx, r.db).Create(container).Error
}

func (r *containerRepository) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Container{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *containerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Container{}).Error
}

func (r *containerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	var container model.Container
	if err := GetDB(ctx, r.db).First(&container, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &container, nil
}

func (r *containerRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	var container model.Container
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&container, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &container, nil
}

func (r *containerRepository) List(ctx context.Context, status, destination string, page, limit int) ([]model.Container, int64, error) {
	var containers []model.Container
	var total int64

	db := GetDB(ctx, r.db)
	applyFilters := func(q *gorm.DB) *gorm.DB {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if destination != "" {
			q = q.Where("destination ILIKE ?", "%"+destination+"%")
		}
		return q
	}

	if err := applyFilters(db.Model(&model.Container{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := applyFilters(db.Model(&model.Container{})).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&containers).Error; err != nil {
		return nil, 0, err
	}

	return containers, total, nil
}

func (r *containerRepository) SumAssignedCapacity(ctx context.Context, id uuid.UUID) (CapacityUsage, error) {
	var result struct {
		UsedWeight float64
		UsedVolume float64
	}
	if err := GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Select("COALESCE(SUM(weight), 0) as used_weight, COALESCE(SUM(volume), 0) as used_volume").
		Where("container_id = ?", id).
		Scan(&result).Error; err != nil {
		return CapacityUsage{}, err
	}
	return CapacityUsage{UsedWeight: result.UsedWeight, UsedVolume: result.UsedVolume}, nil
}

func (r *containerRepository) SaveGuarded(ctx context.Context, container *model.Container) error {
	expected := container.Version
	container.Version = expected + 1

	result := GetDB(ctx, r.db).Model(&model.Container{}).
		Where("id = ? AND version = ?", container.ID, expected).
		Updates(map[string]interface{}{
			"status":      container.Status,
			"used_weight": container.UsedWeight,
			"used_volume": container.UsedVolume,
			"closed_at":   container.ClosedAt,
			"version":     container.Version,
		})
	if result.Error != nil {
		container.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		container.Version = expected
		return ErrVersionConflict
	}
	return nil
}

func (r *containerRepository) SetClosed(ctx context.Context, container *model.Container, closedAt time.Time) error {
	container.Status = model.ContainerStatusClosed
	container.ClosedAt = &closedAt
	return r.SaveGuarded(ctx, container)
}

func (r *containerRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Container{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
