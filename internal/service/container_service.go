package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateContainerRequest struct {
	Reference      string  `json:"reference" binding:"required"`
	Destination    string  `json:"destination" binding:"required"`
	Type           string  `json:"type"`
	Dimensions     string  `json:"dimensions"`
	DeclaredWeight float64 `json:"declared_weight" binding:"min=0"`
	DeclaredVolume float64 `json:"declared_volume" binding:"min=0"`
	TransportCost  string  `json:"transport_cost"`
	CustomsCost    string  `json:"customs_cost"`
}

type UpdateContainerRequest struct {
	Destination    *string  `json:"destination"`
	Type           *string  `json:"type"`
	Dimensions     *string  `json:"dimensions"`
	DeclaredWeight *float64 `json:"declared_weight"`
	DeclaredVolume *float64 `json:"declared_volume"`
	TransportCost  *string  `json:"transport_cost"`
	CustomsCost    *string  `json:"customs_cost"`
}

type ContainerResponse struct {
	ID             string  `json:"id"`
	Reference      string  `json:"reference"`
	Destination    string  `json:"destination"`
	Type           string  `json:"type"`
	Dimensions     string  `json:"dimensions"`
	Status         string  `json:"status"`
	DeclaredWeight float64 `json:"declared_weight"`
	DeclaredVolume float64 `json:"declared_volume"`
	UsedWeight     float64 `json:"used_weight"`
	UsedVolume     float64 `json:"used_volume"`
	TransportCost  string  `json:"transport_cost"`
	CustomsCost    string  `json:"customs_cost"`
	ClosedAt       *string `json:"closed_at"`
	CreatedAt      string  `json:"created_at"`
}

// ManifestEntry is one line of a container's manifest, read by the
// document/export layer.
type ManifestEntry struct {
	CargoID    string  `json:"cargo_id"`
	Reference  string  `json:"reference"`
	ClientID   string  `json:"client_id"`
	Status     string  `json:"status"`
	Weight     float64 `json:"weight"`
	Volume     float64 `json:"volume"`
	TotalCost  string  `json:"total_cost"`
	AssignedAt string  `json:"assigned_at"`
}

// --- Interface ---

type ContainerService interface {
	CreateContainer(ctx context.Context, userID string, req CreateContainerRequest) (ContainerResponse, error)
	UpdateContainer(ctx context.Context, userID, id string, req UpdateContainerRequest) (ContainerResponse, error)
	GetContainer(ctx context.Context, id string) (ContainerResponse, error)
	ListContainers(ctx context.Context, status, destination string, page, limit int) ([]ContainerResponse, int64, error)
	GetManifest(ctx context.Context, id string) ([]ManifestEntry, error)
}

type containerService struct {
	containerRepo repository.ContainerRepository
	cargoRepo     repository.CargoRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewContainerService(
	containerRepo repository.ContainerRepository,
	cargoRepo repository.CargoRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ContainerService {
	return &containerService{
		containerRepo: containerRepo,
		cargoRepo:     cargoRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *containerService) CreateContainer(ctx context.Context, userID string, req CreateContainerRequest) (ContainerResponse, error) {
	transport, err := parseAmount(req.TransportCost)
	if err != nil {
		return ContainerResponse{}, fmt.Errorf("invalid transport_cost: %w", err)
	}
	customs, err := parseAmount(req.CustomsCost)
	if err != nil {
		return ContainerResponse{}, fmt.Errorf("invalid customs_cost: %w", err)
	}

	container := &model.Container{
		Reference:      req.Reference,
		Destination:    req.Destination,
		Type:           req.Type,
		Dimensions:     req.Dimensions,
		Status:         model.ContainerStatusOpen,
		DeclaredWeight: req.DeclaredWeight,
		DeclaredVolume: req.DeclaredVolume,
		TransportCost:  transport,
		CustomsCost:    customs,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.containerRepo.Create(txCtx, container); txErr != nil {
			return fmt.Errorf("failed to create container: %w", txErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateContainer, container.ID.String(), container.Reference, req)
	})
	if err != nil {
		return ContainerResponse{}, err
	}

	return toContainerResponse(*container), nil
}

func (s *containerService) UpdateContainer(ctx context.Context, userID, id string, req UpdateContainerRequest) (ContainerResponse, error) {
	contID, err := uuid.Parse(id)
	if err != nil {
		return ContainerResponse{}, fmt.Errorf("invalid container id: %w", err)
	}

	var container *model.Container
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock the row: the shrink check below must see the committed usage,
		// and the write must not race a facade operation on the same container.
		var txErr error
		container, txErr = s.containerRepo.FindForUpdate(txCtx, contID)
		if txErr != nil {
			return fmt.Errorf("container not found: %w", txErr)
		}
		if container.Status == model.ContainerStatusClosed {
			return ErrContainerClosed
		}

		fields := map[string]interface{}{}
		if req.Destination != nil {
			if *req.Destination == "" {
				return fmt.Errorf("destination cannot be empty")
			}
			container.Destination = *req.Destination
			fields["destination"] = *req.Destination
		}
		if req.Type != nil {
			container.Type = *req.Type
			fields["type"] = *req.Type
		}
		if req.Dimensions != nil {
			container.Dimensions = *req.Dimensions
			fields["dimensions"] = *req.Dimensions
		}
		if req.DeclaredWeight != nil {
			if *req.DeclaredWeight < 0 {
				return fmt.Errorf("declared_weight cannot be negative")
			}
			// Shrinking below current usage would break the capacity invariant.
			if *req.DeclaredWeight > 0 && *req.DeclaredWeight < container.UsedWeight {
				return fmt.Errorf("declared_weight %.3f is below current usage %.3f", *req.DeclaredWeight, container.UsedWeight)
			}
			container.DeclaredWeight = *req.DeclaredWeight
			fields["declared_weight"] = *req.DeclaredWeight
		}
		if req.DeclaredVolume != nil {
			if *req.DeclaredVolume < 0 {
				return fmt.Errorf("declared_volume cannot be negative")
			}
			if *req.DeclaredVolume > 0 && *req.DeclaredVolume < container.UsedVolume {
				return fmt.Errorf("declared_volume %.3f is below current usage %.3f", *req.DeclaredVolume, container.UsedVolume)
			}
			container.DeclaredVolume = *req.DeclaredVolume
			fields["declared_volume"] = *req.DeclaredVolume
		}
		if req.TransportCost != nil {
			parsed, parseErr := parseAmount(*req.TransportCost)
			if parseErr != nil {
				return fmt.Errorf("invalid transport_cost: %w", parseErr)
			}
			container.TransportCost = parsed
			fields["transport_cost"] = parsed
		}
		if req.CustomsCost != nil {
			parsed, parseErr := parseAmount(*req.CustomsCost)
			if parseErr != nil {
				return fmt.Errorf("invalid customs_cost: %w", parseErr)
			}
			container.CustomsCost = parsed
			fields["customs_cost"] = parsed
		}

		if txErr := s.containerRepo.UpdateDetails(txCtx, contID, fields); txErr != nil {
			return fmt.Errorf("failed to update container: %w", txErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionUpdateContainer, container.ID.String(), container.Reference, req)
	})
	if err != nil {
		return ContainerResponse{}, err
	}

	return toContainerResponse(*container), nil
}

func (s *containerService) GetContainer(ctx context.Context, id string) (ContainerResponse, error) {
	contID, err := uuid.Parse(id)
	if err != nil {
		return ContainerResponse{}, fmt.Errorf("invalid container id: %w", err)
	}
	container, err := s.containerRepo.FindByID(ctx, contID)
	if err != nil {
		return ContainerResponse{}, fmt.Errorf("container not found: %w", err)
	}
	return toContainerResponse(*container), nil
}

func (s *containerService) ListContainers(ctx context.Context, status, destination string, page, limit int) ([]ContainerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	containers, total, err := s.containerRepo.List(ctx, status, destination, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch containers: %w", err)
	}

	res := make([]ContainerResponse, 0, len(containers))
	for _, c := range containers {
		res = append(res, toContainerResponse(c))
	}
	return res, total, nil
}

func (s *containerService) GetManifest(ctx context.Context, id string) ([]ManifestEntry, error) {
	contID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid container id: %w", err)
	}
	if _, err := s.containerRepo.FindByID(ctx, contID); err != nil {
		return nil, fmt.Errorf("container not found: %w", err)
	}

	items, err := s.cargoRepo.ListByContainer(ctx, contID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	manifest := make([]ManifestEntry, 0, len(items))
	for _, item := range items {
		manifest = append(manifest, ManifestEntry{
			CargoID:    item.ID.String(),
			Reference:  item.Reference,
			ClientID:   item.ClientID.String(),
			Status:     item.Status,
			Weight:     item.Weight,
			Volume:     item.Volume,
			TotalCost:  item.TotalCost.String(),
			AssignedAt: item.UpdatedAt.Format(time.RFC3339),
		})
	}
	return manifest, nil
}

func (s *containerService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, payload interface{}) error {
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

func toContainerResponse(c model.Container) ContainerResponse {
	resp := ContainerResponse{
		ID:             c.ID.String(),
		Reference:      c.Reference,
		Destination:    c.Destination,
		Type:           c.Type,
		Dimensions:     c.Dimensions,
		Status:         c.Status,
		DeclaredWeight: c.DeclaredWeight,
		DeclaredVolume: c.DeclaredVolume,
		UsedWeight:     c.UsedWeight,
		UsedVolume:     c.UsedVolume,
		TransportCost:  c.TransportCost.String(),
		CustomsCost:    c.CustomsCost.String(),
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
	if c.ClosedAt != nil {
		closed := c.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	return resp
}
