package service

import (
	"context"
	"fmt"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
)

// CapacityTracker maintains the used-weight/used-volume aggregate of a
// container. The aggregate is treated as a materialized view over current
// membership: Recompute always derives it from a fresh membership query and
// never adjusts it in place, so a partial failure can never leave the
// aggregate drifted from the rows it summarizes.
type CapacityTracker struct {
	containerRepo repository.ContainerRepository
}

func NewCapacityTracker(containerRepo repository.ContainerRepository) *CapacityTracker {
	return &CapacityTracker{containerRepo: containerRepo}
}

// Recompute sums weight and volume over the container's currently assigned
// cargo items and persists both aggregates on the container row. Idempotent:
// with no intervening assignment change two calls yield the same result.
// The container must have been loaded (and, inside a facade transaction,
// locked) by the caller.
func (t *CapacityTracker) Recompute(ctx context.Context, container *model.Container) (repository.CapacityUsage, error) {
	usage, err := t.containerRepo.SumAssignedCapacity(ctx, container.ID)
	if err != nil {
		return repository.CapacityUsage{}, fmt.Errorf("failed to sum assigned capacity: %w", err)
	}

	container.UsedWeight = usage.UsedWeight
	container.UsedVolume = usage.UsedVolume
	if err := t.containerRepo.SaveGuarded(ctx, container); err != nil {
		if err == repository.ErrVersionConflict {
			return repository.CapacityUsage{}, ErrConcurrentModification
		}
		return repository.CapacityUsage{}, fmt.Errorf("failed to persist capacity aggregate: %w", err)
	}

	return usage, nil
}

// RecomputeByID is the maintenance entry point used when no loaded container
// is at hand.
func (t *CapacityTracker) RecomputeByID(ctx context.Context, containerID uuid.UUID) (repository.CapacityUsage, error) {
	container, err := t.containerRepo.FindForUpdate(ctx, containerID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.CapacityUsage{}, ErrNotFound
		}
		return repository.CapacityUsage{}, err
	}
	return t.Recompute(ctx, container)
}

// Fits checks whether the item can be admitted without exceeding declared
// capacity. A declared capacity of zero means the dimension was never
// configured and admits anything (explicit policy; the tracker must not
// fault on an unconfigured container). Returns nil when the item fits, a
// *CapacityExceededError carrying the overflow otherwise.
func (t *CapacityTracker) Fits(container *model.Container, item *model.CargoItem) error {
	var overWeight, overVolume float64

	if !container.HasUnlimitedWeight() {
		if used := container.UsedWeight + item.Weight; used > container.DeclaredWeight {
			overWeight = used - container.DeclaredWeight
		}
	}
	if !container.HasUnlimitedVolume() {
		if used := container.UsedVolume + item.Volume; used > container.DeclaredVolume {
			overVolume = used - container.DeclaredVolume
		}
	}

	if overWeight > 0 || overVolume > 0 {
		return &CapacityExceededError{OverflowWeight: overWeight, OverflowVolume: overVolume}
	}
	return nil
}
