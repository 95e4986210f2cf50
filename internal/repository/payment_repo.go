package repository

import (
	"context"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	ClientID    *uuid.UUID
	CargoItemID *uuid.UUID
	ContainerID *uuid.UUID
	Status      string
	Page        int
	Limit       int
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	SumPaidByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	SumPaidByCargoItem(ctx context.Context, cargoItemID uuid.UUID) (decimal.Decimal, error)
	SumPaidByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := GetDB(ctx, r.db)
	applyFilters := func(q *gorm.DB) *gorm.DB {
		if filter.ClientID != nil {
			q = q.Where("client_id = ?", *filter.ClientID)
		}
		if filter.CargoItemID != nil {
			q = q.Where("cargo_item_id = ?", *filter.CargoItemID)
		}
		if filter.ContainerID != nil {
			q = q.Where("container_id = ?", *filter.ContainerID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	if err := applyFilters(db.Model(&model.Payment{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := applyFilters(db.Model(&model.Payment{}).Preload("Client")).
		Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Payment{}).Where("id = ?", id).Update("status", status).Error
}

func (r *paymentRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).Where("payment_no LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *paymentRepository) SumPaidByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(ctx, "client_id = ?", clientID)
}

func (r *paymentRepository) SumPaidByCargoItem(ctx context.Context, cargoItemID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(ctx, "cargo_item_id = ?", cargoItemID)
}

func (r *paymentRepository) SumPaidByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(ctx, "container_id = ?", containerID)
}

// sumPaid only counts valid payments; pending, cancelled and refunded rows
// never contribute to a balance.
func (r *paymentRepository) sumPaid(ctx context.Context, cond string, arg interface{}) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount_paid), 0) as total").
		Where("status = ?", model.PaymentStatusValid).
		Where(cond, arg).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
