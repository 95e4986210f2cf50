package service

import (
	"context"
	"errors"
	"testing"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitsWithinCapacity(t *testing.T) {
	tracker := NewCapacityTracker(nil)

	container := &model.Container{DeclaredWeight: 1000, DeclaredVolume: 50, UsedWeight: 600, UsedVolume: 20}
	item := &model.CargoItem{Weight: 400, Volume: 30}

	assert.NoError(t, tracker.Fits(container, item))
}

func TestFitsReportsOverflow(t *testing.T) {
	tracker := NewCapacityTracker(nil)

	container := &model.Container{DeclaredWeight: 1000, UsedWeight: 600}
	item := &model.CargoItem{Weight: 500}

	err := tracker.Fits(container, item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	var capErr *CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.InDelta(t, 100, capErr.OverflowWeight, 0.001)
	assert.Zero(t, capErr.OverflowVolume)
}

func TestFitsZeroDeclaredMeansUnlimited(t *testing.T) {
	tracker := NewCapacityTracker(nil)

	container := &model.Container{DeclaredWeight: 0, DeclaredVolume: 0, UsedWeight: 99999}
	item := &model.CargoItem{Weight: 50000, Volume: 4000}

	assert.NoError(t, tracker.Fits(container, item))
}

func TestFitsExactFill(t *testing.T) {
	tracker := NewCapacityTracker(nil)

	container := &model.Container{DeclaredWeight: 1000, UsedWeight: 600}
	item := &model.CargoItem{Weight: 400}

	assert.NoError(t, tracker.Fits(container, item))
}

func TestRecomputeDerivesFromMembership(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	tracker := NewCapacityTracker(containerRepo)

	container := &model.Container{ID: uuid.New(), DeclaredWeight: 1000, UsedWeight: 12345} // stale aggregate
	containerRepo.put(container)

	contID := container.ID
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ContainerID: &contID, Weight: 600, Volume: 10})
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ContainerID: &contID, Weight: 150, Volume: 5})

	usage, err := tracker.Recompute(context.Background(), container)
	require.NoError(t, err)
	assert.InDelta(t, 750, usage.UsedWeight, 0.001)
	assert.InDelta(t, 15, usage.UsedVolume, 0.001)
	assert.InDelta(t, 750, container.UsedWeight, 0.001)

	// Idempotent: no membership change, same result.
	usage2, err := tracker.Recompute(context.Background(), container)
	require.NoError(t, err)
	assert.Equal(t, usage, usage2)
}

func TestRecomputeVersionConflict(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	tracker := NewCapacityTracker(containerRepo)

	container := &model.Container{ID: uuid.New(), Version: 3}
	containerRepo.put(container)

	stale := *container
	stale.Version = 1 // someone else already bumped the row

	_, err := tracker.Recompute(context.Background(), &stale)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestRecomputeByIDUnknownContainer(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	tracker := NewCapacityTracker(containerRepo)

	_, err := tracker.RecomputeByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
