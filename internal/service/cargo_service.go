package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateCargoRequest struct {
	Reference     string  `json:"reference" binding:"required"`
	Description   string  `json:"description"`
	ClientID      string  `json:"client_id" binding:"required"`
	Weight        float64 `json:"weight" binding:"min=0"`
	Volume        float64 `json:"volume" binding:"min=0"`
	DeclaredValue string  `json:"declared_value"`
	TransportCost string  `json:"transport_cost"`
	HandlingCost  string  `json:"handling_cost"`
	InsuranceCost string  `json:"insurance_cost"`
	StorageCost   string  `json:"storage_cost"`
}

// UpdateCargoRequest is the explicit correction path: costs never change as
// a side effect of assignment, only through this request.
type UpdateCargoRequest struct {
	Description   *string  `json:"description"`
	Status        *string  `json:"status"`
	Weight        *float64 `json:"weight"`
	Volume        *float64 `json:"volume"`
	DeclaredValue *string  `json:"declared_value"`
	TransportCost *string  `json:"transport_cost"`
	HandlingCost  *string  `json:"handling_cost"`
	InsuranceCost *string  `json:"insurance_cost"`
	StorageCost   *string  `json:"storage_cost"`
}

type CargoResponse struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Description   string  `json:"description"`
	ClientID      string  `json:"client_id"`
	ClientName    string  `json:"client_name,omitempty"`
	ContainerID   *string `json:"container_id"`
	Status        string  `json:"status"`
	Weight        float64 `json:"weight"`
	Volume        float64 `json:"volume"`
	DeclaredValue string  `json:"declared_value"`
	TransportCost string  `json:"transport_cost"`
	HandlingCost  string  `json:"handling_cost"`
	InsuranceCost string  `json:"insurance_cost"`
	StorageCost   string  `json:"storage_cost"`
	TotalCost     string  `json:"total_cost"`
	CreatedAt     string  `json:"created_at"`
}

type CargoListFilter struct {
	ClientID    string
	ContainerID string
	Status      string
	Search      string
	Page        int
	Limit       int
}

// --- Interface ---

type CargoService interface {
	CreateCargo(ctx context.Context, userID string, req CreateCargoRequest) (CargoResponse, error)
	UpdateCargo(ctx context.Context, userID, id string, req UpdateCargoRequest) (CargoResponse, error)
	DeleteCargo(ctx context.Context, userID, id string) error
	GetCargo(ctx context.Context, id string) (CargoResponse, error)
	ListCargo(ctx context.Context, filter CargoListFilter) ([]CargoResponse, int64, error)
}

type cargoService struct {
	cargoRepo     repository.CargoRepository
	clientRepo    repository.ClientRepository
	containerRepo repository.ContainerRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	tracker       *CapacityTracker
	balances      BalanceInvalidator
}

func NewCargoService(
	cargoRepo repository.CargoRepository,
	clientRepo repository.ClientRepository,
	containerRepo repository.ContainerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	balances BalanceInvalidator,
) CargoService {
	return &cargoService{
		cargoRepo:     cargoRepo,
		clientRepo:    clientRepo,
		containerRepo: containerRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		tracker:       NewCapacityTracker(containerRepo),
		balances:      balances,
	}
}

var validCargoStatuses = map[string]bool{
	model.CargoStatusReceived:    true,
	model.CargoStatusPending:     true,
	model.CargoStatusAssigned:    true,
	model.CargoStatusInContainer: true,
	model.CargoStatusInTransit:   true,
	model.CargoStatusArrived:     true,
	model.CargoStatusDelivered:   true,
	model.CargoStatusProblem:     true,
	model.CargoStatusLost:        true,
	model.CargoStatusDamaged:     true,
}

// --- Implementation ---

func (s *cargoService) CreateCargo(ctx context.Context, userID string, req CreateCargoRequest) (CargoResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid client_id: %w", err)
	}

	declaredValue, err := parseAmount(req.DeclaredValue)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid declared_value: %w", err)
	}
	transport, err := parseAmount(req.TransportCost)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid transport_cost: %w", err)
	}
	handling, err := parseAmount(req.HandlingCost)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid handling_cost: %w", err)
	}
	insurance, err := parseAmount(req.InsuranceCost)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid insurance_cost: %w", err)
	}
	storage, err := parseAmount(req.StorageCost)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid storage_cost: %w", err)
	}

	item := &model.CargoItem{
		Reference:     req.Reference,
		Description:   req.Description,
		ClientID:      clientID,
		Status:        model.CargoStatusReceived,
		Weight:        req.Weight,
		Volume:        req.Volume,
		DeclaredValue: declaredValue,
		TransportCost: transport,
		HandlingCost:  handling,
		InsuranceCost: insurance,
		StorageCost:   storage,
	}
	item.TotalCost = item.ComputeTotalCost()

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, txErr := s.clientRepo.FindByID(txCtx, clientID); txErr != nil {
			return fmt.Errorf("client not found: %w", txErr)
		}
		if txErr := s.cargoRepo.Create(txCtx, item); txErr != nil {
			return fmt.Errorf("failed to create cargo item: %w", txErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateCargo, item.ID.String(), item.Reference, req)
	})
	if err != nil {
		return CargoResponse{}, err
	}

	s.balances.Invalidate(ClientScope(clientID))

	return toCargoResponse(*item), nil
}

func (s *cargoService) UpdateCargo(ctx context.Context, userID, id string, req UpdateCargoRequest) (CargoResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid cargo item id: %w", err)
	}
	if req.Status != nil && !validCargoStatuses[*req.Status] {
		return CargoResponse{}, fmt.Errorf("invalid cargo status '%s'", *req.Status)
	}
	if req.Weight != nil && *req.Weight < 0 {
		return CargoResponse{}, fmt.Errorf("weight cannot be negative")
	}
	if req.Volume != nil && *req.Volume < 0 {
		return CargoResponse{}, fmt.Errorf("volume cannot be negative")
	}

	var item *model.CargoItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		item, txErr = s.cargoRepo.FindByID(txCtx, itemID)
		if txErr != nil {
			return fmt.Errorf("cargo item not found: %w", txErr)
		}

		// Weight/volume edits on an assigned item change the container's
		// aggregate, so they run under the same container lock the facade
		// takes: lock, re-read, check capacity, write, recompute.
		dimensionEdit := (req.Weight != nil && *req.Weight != item.Weight) ||
			(req.Volume != nil && *req.Volume != item.Volume)
		var container *model.Container
		if item.ContainerID != nil && dimensionEdit {
			container, txErr = s.containerRepo.FindForUpdate(txCtx, *item.ContainerID)
			if txErr != nil {
				return fmt.Errorf("container not found: %w", txErr)
			}
			item, txErr = s.cargoRepo.FindByID(txCtx, itemID)
			if txErr != nil {
				return fmt.Errorf("cargo item not found: %w", txErr)
			}
			if item.ContainerID == nil || *item.ContainerID != container.ID {
				return ErrConcurrentModification
			}
		}
		oldWeight, oldVolume := item.Weight, item.Volume

		fields := map[string]interface{}{}
		if req.Description != nil {
			item.Description = *req.Description
			fields["description"] = *req.Description
		}
		if req.Status != nil {
			item.Status = *req.Status
			fields["status"] = *req.Status
		}
		if req.Weight != nil {
			item.Weight = *req.Weight
			fields["weight"] = *req.Weight
		}
		if req.Volume != nil {
			item.Volume = *req.Volume
			fields["volume"] = *req.Volume
		}

		costChanged := false
		for _, field := range []struct {
			src *string
			dst *decimal.Decimal
			tag string
		}{
			{req.DeclaredValue, &item.DeclaredValue, "declared_value"},
			{req.TransportCost, &item.TransportCost, "transport_cost"},
			{req.HandlingCost, &item.HandlingCost, "handling_cost"},
			{req.InsuranceCost, &item.InsuranceCost, "insurance_cost"},
			{req.StorageCost, &item.StorageCost, "storage_cost"},
		} {
			if field.src == nil {
				continue
			}
			parsed, parseErr := parseAmount(*field.src)
			if parseErr != nil {
				return fmt.Errorf("invalid %s: %w", field.tag, parseErr)
			}
			*field.dst = parsed
			fields[field.tag] = parsed
			if field.tag != "declared_value" {
				costChanged = true
			}
		}
		if costChanged {
			item.TotalCost = item.ComputeTotalCost()
			fields["total_cost"] = item.TotalCost
		}

		if container != nil {
			usage, sumErr := s.containerRepo.SumAssignedCapacity(txCtx, container.ID)
			if sumErr != nil {
				return fmt.Errorf("failed to sum assigned capacity: %w", sumErr)
			}
			newWeight := usage.UsedWeight - oldWeight + item.Weight
			newVolume := usage.UsedVolume - oldVolume + item.Volume
			var overWeight, overVolume float64
			if !container.HasUnlimitedWeight() && newWeight > container.DeclaredWeight {
				overWeight = newWeight - container.DeclaredWeight
			}
			if !container.HasUnlimitedVolume() && newVolume > container.DeclaredVolume {
				overVolume = newVolume - container.DeclaredVolume
			}
			if overWeight > 0 || overVolume > 0 {
				return &CapacityExceededError{OverflowWeight: overWeight, OverflowVolume: overVolume}
			}
		}

		if txErr = s.cargoRepo.UpdateDetails(txCtx, itemID, fields); txErr != nil {
			return fmt.Errorf("failed to update cargo item: %w", txErr)
		}
		if container != nil {
			if _, txErr = s.tracker.Recompute(txCtx, container); txErr != nil {
				return txErr
			}
		}
		return s.writeAudit(txCtx, userID, model.ActionUpdateCargo, item.ID.String(), item.Reference, req)
	})
	if err != nil {
		return CargoResponse{}, err
	}

	scopes := []BalanceScope{ClientScope(item.ClientID), CargoScope(item.ID)}
	if item.ContainerID != nil {
		scopes = append(scopes, ContainerScope(*item.ContainerID))
	}
	s.balances.Invalidate(scopes...)

	return toCargoResponse(*item), nil
}

func (s *cargoService) DeleteCargo(ctx context.Context, userID, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid cargo item id: %w", err)
	}

	item, err := s.cargoRepo.FindByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("cargo item not found: %w", err)
	}
	if item.ContainerID != nil {
		return fmt.Errorf("cargo item is assigned to a container; unassign it first")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.cargoRepo.Delete(txCtx, itemID); txErr != nil {
			return fmt.Errorf("failed to delete cargo item: %w", txErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionDeleteCargo, item.ID.String(), item.Reference, map[string]bool{"deleted": true})
	})
	if err != nil {
		return err
	}

	s.balances.Invalidate(ClientScope(item.ClientID), CargoScope(itemID))
	return nil
}

func (s *cargoService) GetCargo(ctx context.Context, id string) (CargoResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("invalid cargo item id: %w", err)
	}
	item, err := s.cargoRepo.FindByID(ctx, itemID)
	if err != nil {
		return CargoResponse{}, fmt.Errorf("cargo item not found: %w", err)
	}
	return toCargoResponse(*item), nil
}

func (s *cargoService) ListCargo(ctx context.Context, filter CargoListFilter) ([]CargoResponse, int64, error) {
	repoFilter := repository.CargoFilter{
		Status: filter.Status,
		Search: filter.Search,
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

	items, total, err := s.cargoRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch cargo items: %w", err)
	}

	res := make([]CargoResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toCargoResponse(item))
	}
	return res, total, nil
}

func (s *cargoService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	details, _ := json.Marshal(payload)
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// parseAmount treats the empty string as zero; amounts arrive as strings so
// no precision is lost in JSON floats.
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount cannot be negative")
	}
	return amount, nil
}

func toCargoResponse(item model.CargoItem) CargoResponse {
	resp := CargoResponse{
		ID:            item.ID.String(),
		Reference:     item.Reference,
		Description:   item.Description,
		ClientID:      item.ClientID.String(),
		Status:        item.Status,
		Weight:        item.Weight,
		Volume:        item.Volume,
		DeclaredValue: item.DeclaredValue.String(),
		TransportCost: item.TransportCost.String(),
		HandlingCost:  item.HandlingCost.String(),
		InsuranceCost: item.InsuranceCost.String(),
		StorageCost:   item.StorageCost.String(),
		TotalCost:     item.TotalCost.String(),
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
	}
	if item.Client != nil {
		resp.ClientName = item.Client.Name
	}
	if item.ContainerID != nil {
		id := item.ContainerID.String()
		resp.ContainerID = &id
	}
	return resp
}
