package service

import (
	"context"
	"fmt"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"
)

// containerTransitions is the fixed edge table of the container lifecycle.
// The only backward edge is cloture -> ouvert (reopen). Close and reopen are
// dedicated operations; Advance only walks the forward edges between them.
var containerTransitions = map[string][]string{
	model.ContainerStatusOpen:      {model.ContainerStatusPreparing},
	model.ContainerStatusPreparing: {model.ContainerStatusInTransit},
	model.ContainerStatusInTransit: {model.ContainerStatusArrived},
	model.ContainerStatusArrived:   {model.ContainerStatusClosed},
	model.ContainerStatusClosed:    {model.ContainerStatusOpen},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to string) bool {
	for _, next := range containerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LifecycleResult reports a committed lifecycle transition.
type LifecycleResult struct {
	ContainerID       string     `json:"container_id"`
	PreviousStatus    string     `json:"previous_status"`
	Status            string     `json:"status"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	ItemsTransitioned int64      `json:"items_transitioned"` // Cargo rows bulk-moved to en_transit on close
}

// LifecycleStateMachine governs the container status field and the side
// effects of each transition. Like the admission controller it runs inside
// the facade's transaction with the container row locked.
type LifecycleStateMachine struct {
	containerRepo repository.ContainerRepository
	cargoRepo     repository.CargoRepository
	now           func() time.Time
}

func NewLifecycleStateMachine(containerRepo repository.ContainerRepository, cargoRepo repository.CargoRepository) *LifecycleStateMachine {
	return &LifecycleStateMachine{
		containerRepo: containerRepo,
		cargoRepo:     cargoRepo,
		now:           time.Now,
	}
}

// Close seals the container: status becomes cloture, closed_at is stamped,
// and every assigned item not already in a terminal status is bulk-moved to
// en_transit in the same transaction. Closing an empty container is rejected
// (historically a source of orphaned shipments).
func (m *LifecycleStateMachine) Close(ctx context.Context, container *model.Container) (*LifecycleResult, error) {
	if container.Status == model.ContainerStatusClosed {
		return nil, &InvalidTransitionError{From: container.Status, To: model.ContainerStatusClosed}
	}

	count, err := m.cargoRepo.CountByContainer(ctx, container.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count container cargo: %w", err)
	}
	if count == 0 {
		return nil, ErrEmptyContainer
	}

	previous := container.Status
	transitioned, err := m.cargoRepo.BulkTransitionForClose(ctx, container.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to transition cargo items: %w", err)
	}

	closedAt := m.now()
	if err := m.containerRepo.SetClosed(ctx, container, closedAt); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("failed to close container: %w", err)
	}

	return &LifecycleResult{
		ContainerID:       container.ID.String(),
		PreviousStatus:    previous,
		Status:            container.Status,
		ClosedAt:          container.ClosedAt,
		ItemsTransitioned: transitioned,
	}, nil
}

// Reopen flips cloture back to ouvert. Item statuses are deliberately left
// untouched: reopening corrects paperwork, it does not undo a shipment event.
func (m *LifecycleStateMachine) Reopen(ctx context.Context, container *model.Container) (*LifecycleResult, error) {
	if container.Status != model.ContainerStatusClosed {
		return nil, &InvalidTransitionError{From: container.Status, To: model.ContainerStatusOpen}
	}

	previous := container.Status
	container.Status = model.ContainerStatusOpen
	container.ClosedAt = nil
	if err := m.containerRepo.SaveGuarded(ctx, container); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("failed to reopen container: %w", err)
	}

	return &LifecycleResult{
		ContainerID:    container.ID.String(),
		PreviousStatus: previous,
		Status:         container.Status,
	}, nil
}

// Advance performs a generic forward transition validated against the edge
// table. Closing and reopening have dedicated entry points with their own
// side effects and are rejected here.
func (m *LifecycleStateMachine) Advance(ctx context.Context, container *model.Container, next string) (*LifecycleResult, error) {
	if next == model.ContainerStatusClosed || next == model.ContainerStatusOpen {
		return nil, &InvalidTransitionError{From: container.Status, To: next}
	}
	if !CanTransition(container.Status, next) {
		return nil, &InvalidTransitionError{From: container.Status, To: next}
	}

	previous := container.Status
	container.Status = next
	if err := m.containerRepo.SaveGuarded(ctx, container); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("failed to advance container: %w", err)
	}

	return &LifecycleResult{
		ContainerID:    container.ID.String(),
		PreviousStatus: previous,
		Status:         container.Status,
	}, nil
}
