package repository

import (
	"context"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CargoFilter narrows cargo listings.
type CargoFilter struct {
	ClientID    *uuid.UUID
	ContainerID *uuid.UUID
	Status      string
	Search      string
	Page        int
	Limit       int
}

type CargoRepository interface {
	Create(ctx context.Context, item *model.CargoItem) error
	// UpdateDetails writes only the named columns. Intake corrections go
	// through here so a stale in-memory copy can never overwrite the
	// assignment columns owned by UpdateAssignment/BulkTransitionForClose.
	UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CargoItem, error)
	List(ctx context.Context, filter CargoFilter) ([]model.CargoItem, int64, error)
	ListByContainer(ctx context.Context, containerID uuid.UUID) ([]model.CargoItem, error)
	CountByContainer(ctx context.Context, containerID uuid.UUID) (int64, error)
	UpdateAssignment(ctx context.Context, itemID uuid.UUID, containerID *uuid.UUID, status string) error
	BulkTransitionForClose(ctx context.Context, containerID uuid.UUID) (int64, error)
	SumCostByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	SumCostByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error)
}

type cargoRepository struct {
	db *gorm.DB
}

func NewCargoRepository(db *gorm.DB) CargoRepository {
	return &cargoRepository{db: db}
}

func (r *cargoRepository) Create(ctx context.Context, item *model.CargoItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *cargoRepository) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *cargoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CargoItem{}).Error
}

func (r *cargoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CargoItem, error) {
	var item model.CargoItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &item, nil
}

func (r *cargoRepository) List(ctx context.Context, filter CargoFilter) ([]model.CargoItem, int64, error) {
	var items []model.CargoItem
	var total int64

	db := GetDB(ctx, r.db)
	applyFilters := func(q *gorm.DB) *gorm.DB {
		if filter.ClientID != nil {
			q = q.Where("client_id = ?", *filter.ClientID)
		}
		if filter.ContainerID != nil {
			q = q.Where("container_id = ?", *filter.ContainerID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			q = q.Where("reference ILIKE ? OR description ILIKE ?",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		return q
	}

	if err := applyFilters(db.Model(&model.CargoItem{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := applyFilters(db.Model(&model.CargoItem{}).Preload("Client")).
		Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *cargoRepository) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]model.CargoItem, error) {
	var items []model.CargoItem
	if err := GetDB(ctx, r.db).
		Where("container_id = ?", containerID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cargoRepository) CountByContainer(ctx context.Context, containerID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Where("container_id = ?", containerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateAssignment writes only the container reference and status. All
// callers go through the admission controller; nothing else touches these
// two columns.
func (r *cargoRepository) UpdateAssignment(ctx context.Context, itemID uuid.UUID, containerID *uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"container_id": containerID,
			"status":       status,
		}).Error
}

// BulkTransitionForClose moves every non-terminal item of the container to
// en_transit in a single statement so a closed container can never be
// observed with items still in a pre-transit status.
func (r *cargoRepository) BulkTransitionForClose(ctx context.Context, containerID uuid.UUID) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Where("container_id = ? AND status NOT IN ?", containerID, model.CargoTerminalStatuses).
		Update("status", model.CargoStatusInTransit)
	return result.RowsAffected, result.Error
}

func (r *cargoRepository) SumCostByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sumCost(ctx, "client_id = ?", clientID)
}

func (r *cargoRepository) SumCostByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error) {
	return r.sumCost(ctx, "container_id = ?", containerID)
}

func (r *cargoRepository) sumCost(ctx context.Context, cond string, arg interface{}) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.CargoItem{}).
		Select("COALESCE(SUM(total_cost), 0) as total").
		Where(cond, arg).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
