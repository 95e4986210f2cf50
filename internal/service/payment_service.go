package service

import (
	"context"
	"fmt"

	"freightdesk/internal/repository"

	"github.com/google/uuid"
)

// PaymentListFilter narrows payment listings for the read side; all writes
// go through the reconciliation service.
type PaymentListFilter struct {
	ClientID    string
	CargoItemID string
	ContainerID string
	Status      string
	Page        int
	Limit       int
}

type PaymentService interface {
	GetPayment(ctx context.Context, id string) (PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
}

func NewPaymentService(paymentRepo repository.PaymentRepository) PaymentService {
	return &paymentService{paymentRepo: paymentRepo}
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("payment not found: %w", err)
	}
	return toPaymentResponse(*payment), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	repoFilter := repository.PaymentFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.ClientID != "" {
		parsed, err := uuid.Parse(filter.ClientID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid client_id filter: %w", err)
		}
		repoFilter.ClientID = &parsed
	}
	if filter.CargoItemID != "" {
		parsed, err := uuid.Parse(filter.CargoItemID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid cargo_item_id filter: %w", err)
		}
		repoFilter.CargoItemID = &parsed
	}
	if filter.ContainerID != "" {
		parsed, err := uuid.Parse(filter.ContainerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid container_id filter: %w", err)
		}
		repoFilter.ContainerID = &parsed
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	payments, total, err := s.paymentRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	res := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		res = append(res, toPaymentResponse(p))
	}
	return res, total, nil
}
