package service

import (
	"context"
	"fmt"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
)

// AssignmentResult reports the committed outcome of an assign/unassign.
type AssignmentResult struct {
	ItemID      uuid.UUID  `json:"item_id"`
	ContainerID *uuid.UUID `json:"container_id"`
	ItemStatus  string     `json:"item_status"`
	UsedWeight  float64    `json:"used_weight"`
	UsedVolume  float64    `json:"used_volume"`
}

// AdmissionController decides whether a cargo item may enter or leave a
// container, enforcing capacity and lifecycle guards, then mutates the
// assignment and recomputes the capacity aggregate. It expects to run inside
// the facade's transaction: the container row must already be locked.
type AdmissionController struct {
	cargoRepo repository.CargoRepository
	tracker   *CapacityTracker
}

func NewAdmissionController(cargoRepo repository.CargoRepository, tracker *CapacityTracker) *AdmissionController {
	return &AdmissionController{cargoRepo: cargoRepo, tracker: tracker}
}

// Assign admits the item into the container.
// Guards: item unassigned (ErrAlreadyAssigned), container accepting
// (ErrContainerClosed unless ouvert/en_preparation), capacity
// (ErrCapacityExceeded with overflow).
func (a *AdmissionController) Assign(ctx context.Context, item *model.CargoItem, container *model.Container) (*AssignmentResult, error) {
	if item.ContainerID != nil {
		// Idempotent retry: re-assigning to the same container after a
		// timed-out call whose commit went through is a no-op.
		if *item.ContainerID == container.ID {
			return a.result(item, container), nil
		}
		return nil, ErrAlreadyAssigned
	}

	if container.Status != model.ContainerStatusOpen && container.Status != model.ContainerStatusPreparing {
		return nil, ErrContainerClosed
	}

	if err := a.tracker.Fits(container, item); err != nil {
		return nil, err
	}

	status := item.Status
	if !statusPastAssigned(status) {
		// Never downgrade an item a direct edit already moved further along.
		status = model.CargoStatusAssigned
	}

	if err := a.cargoRepo.UpdateAssignment(ctx, item.ID, &container.ID, status); err != nil {
		return nil, fmt.Errorf("failed to persist assignment: %w", err)
	}
	item.ContainerID = &container.ID
	item.Status = status

	if _, err := a.tracker.Recompute(ctx, container); err != nil {
		return nil, err
	}

	return a.result(item, container), nil
}

// Unassign detaches the item from its container. Detaching from a closed
// container is forbidden; it must be reopened first.
func (a *AdmissionController) Unassign(ctx context.Context, item *model.CargoItem, container *model.Container) (*AssignmentResult, error) {
	if item.ContainerID == nil {
		return nil, ErrNotAssigned
	}
	if container.Status == model.ContainerStatusClosed {
		return nil, ErrContainerClosed
	}

	if err := a.cargoRepo.UpdateAssignment(ctx, item.ID, nil, model.CargoStatusPending); err != nil {
		return nil, fmt.Errorf("failed to persist unassignment: %w", err)
	}
	item.ContainerID = nil
	item.Status = model.CargoStatusPending

	if _, err := a.tracker.Recompute(ctx, container); err != nil {
		return nil, err
	}

	return a.result(item, container), nil
}

func (a *AdmissionController) result(item *model.CargoItem, container *model.Container) *AssignmentResult {
	return &AssignmentResult{
		ItemID:      item.ID,
		ContainerID: item.ContainerID,
		ItemStatus:  item.Status,
		UsedWeight:  container.UsedWeight,
		UsedVolume:  container.UsedVolume,
	}
}

// statusPastAssigned reports whether the item status is already further along
// than "affecte" in the shipping lifecycle.
func statusPastAssigned(status string) bool {
	switch status {
	case model.CargoStatusInContainer, model.CargoStatusInTransit, model.CargoStatusArrived,
		model.CargoStatusDelivered, model.CargoStatusProblem, model.CargoStatusLost, model.CargoStatusDamaged:
		return true
	}
	return false
}
