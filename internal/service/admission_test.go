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

func newAdmissionFixture() (*AdmissionController, *stubCargoRepo, *stubContainerRepo) {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	tracker := NewCapacityTracker(containerRepo)
	return NewAdmissionController(cargoRepo, tracker), cargoRepo, containerRepo
}

func TestAssignAdmitsAndRecomputes(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen, DeclaredWeight: 1000}
	containerRepo.put(container)
	item := &model.CargoItem{ID: uuid.New(), ClientID: uuid.New(), Status: model.CargoStatusPending, Weight: 600}
	cargoRepo.put(item)

	result, err := admission.Assign(context.Background(), item, container)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusAssigned, result.ItemStatus)
	require.NotNil(t, result.ContainerID)
	assert.Equal(t, container.ID, *result.ContainerID)
	assert.InDelta(t, 600, result.UsedWeight, 0.001)

	stored, err := cargoRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ContainerID)
	assert.Equal(t, container.ID, *stored.ContainerID)
}

func TestAssignRejectsWhenAlreadyElsewhere(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)
	other := uuid.New()
	item := &model.CargoItem{ID: uuid.New(), ContainerID: &other, Status: model.CargoStatusAssigned}
	cargoRepo.put(item)

	_, err := admission.Assign(context.Background(), item, container)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestAssignSameContainerIsNoOp(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen, UsedWeight: 600}
	containerRepo.put(container)
	contID := container.ID
	item := &model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusAssigned, Weight: 600}
	cargoRepo.put(item)

	result, err := admission.Assign(context.Background(), item, container)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusAssigned, result.ItemStatus)
	assert.InDelta(t, 600, result.UsedWeight, 0.001)
}

func TestAssignRejectsClosedContainer(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	for _, status := range []string{model.ContainerStatusInTransit, model.ContainerStatusArrived, model.ContainerStatusClosed} {
		container := &model.Container{ID: uuid.New(), Status: status}
		containerRepo.put(container)
		item := &model.CargoItem{ID: uuid.New(), Status: model.CargoStatusPending}
		cargoRepo.put(item)

		_, err := admission.Assign(context.Background(), item, container)
		assert.ErrorIs(t, err, ErrContainerClosed, "status %s should refuse admission", status)
	}
}

func TestAssignRejectsOverCapacity(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen, DeclaredWeight: 1000, UsedWeight: 600}
	containerRepo.put(container)
	item := &model.CargoItem{ID: uuid.New(), Status: model.CargoStatusPending, Weight: 500}
	cargoRepo.put(item)

	_, err := admission.Assign(context.Background(), item, container)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	var capErr *CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.InDelta(t, 100, capErr.OverflowWeight, 0.001)

	// Rejected item must remain unassigned.
	stored, findErr := cargoRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, findErr)
	assert.Nil(t, stored.ContainerID)
}

func TestAssignDoesNotDowngradeStatus(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)
	item := &model.CargoItem{ID: uuid.New(), Status: model.CargoStatusInContainer, Weight: 100}
	cargoRepo.put(item)

	result, err := admission.Assign(context.Background(), item, container)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusInContainer, result.ItemStatus)
}

func TestUnassignRevertsToPending(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen, UsedWeight: 600}
	containerRepo.put(container)
	contID := container.ID
	item := &model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusAssigned, Weight: 600}
	cargoRepo.put(item)

	result, err := admission.Unassign(context.Background(), item, container)
	require.NoError(t, err)
	assert.Nil(t, result.ContainerID)
	assert.Equal(t, model.CargoStatusPending, result.ItemStatus)
	assert.Zero(t, result.UsedWeight)
}

func TestUnassignUnassignedItem(t *testing.T) {
	admission, _, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)
	item := &model.CargoItem{ID: uuid.New(), Status: model.CargoStatusPending}

	_, err := admission.Unassign(context.Background(), item, container)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestUnassignRejectsClosedContainer(t *testing.T) {
	admission, cargoRepo, containerRepo := newAdmissionFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusClosed}
	containerRepo.put(container)
	contID := container.ID
	item := &model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusInTransit}
	cargoRepo.put(item)

	_, err := admission.Unassign(context.Background(), item, container)
	assert.ErrorIs(t, err, ErrContainerClosed)
}
