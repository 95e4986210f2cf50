package service

import (
	"context"
	"testing"
	"time"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLifecycleFixture() (*LifecycleStateMachine, *stubCargoRepo, *stubContainerRepo) {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	return NewLifecycleStateMachine(containerRepo, cargoRepo), cargoRepo, containerRepo
}

func TestCanTransitionEdgeTable(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{model.ContainerStatusOpen, model.ContainerStatusPreparing, true},
		{model.ContainerStatusPreparing, model.ContainerStatusInTransit, true},
		{model.ContainerStatusInTransit, model.ContainerStatusArrived, true},
		{model.ContainerStatusArrived, model.ContainerStatusClosed, true},
		{model.ContainerStatusClosed, model.ContainerStatusOpen, true},
		{model.ContainerStatusOpen, model.ContainerStatusInTransit, false},
		{model.ContainerStatusInTransit, model.ContainerStatusPreparing, false},
		{model.ContainerStatusArrived, model.ContainerStatusOpen, false},
		{model.ContainerStatusClosed, model.ContainerStatusInTransit, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCloseBulkTransitionsItems(t *testing.T) {
	machine, cargoRepo, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)
	contID := container.ID

	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusAssigned})
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusInContainer})
	delivered := &model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusDelivered}
	cargoRepo.put(delivered)

	result, err := machine.Close(context.Background(), container)
	require.NoError(t, err)
	assert.Equal(t, model.ContainerStatusClosed, result.Status)
	assert.NotNil(t, result.ClosedAt)
	assert.Equal(t, int64(2), result.ItemsTransitioned)

	// Terminal statuses survive the close.
	stored, err := cargoRepo.FindByID(context.Background(), delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusDelivered, stored.Status)

	items, err := cargoRepo.ListByContainer(context.Background(), contID)
	require.NoError(t, err)
	for _, item := range items {
		if item.ID == delivered.ID {
			continue
		}
		assert.Equal(t, model.CargoStatusInTransit, item.Status)
	}
}

func TestCloseEmptyContainerRejected(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)

	_, err := machine.Close(context.Background(), container)
	assert.ErrorIs(t, err, ErrEmptyContainer)
	assert.Equal(t, model.ContainerStatusOpen, container.Status)
}

func TestCloseAlreadyClosedRejected(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusClosed}
	containerRepo.put(container)

	_, err := machine.Close(context.Background(), container)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReopenClearsClosedAt(t *testing.T) {
	machine, cargoRepo, containerRepo := newLifecycleFixture()

	closedAt := time.Now()
	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusClosed, ClosedAt: &closedAt}
	containerRepo.put(container)
	contID := container.ID
	item := &model.CargoItem{ID: uuid.New(), ContainerID: &contID, Status: model.CargoStatusInTransit}
	cargoRepo.put(item)

	result, err := machine.Reopen(context.Background(), container)
	require.NoError(t, err)
	assert.Equal(t, model.ContainerStatusOpen, result.Status)
	assert.Nil(t, container.ClosedAt)

	// Reopen does not rewind item statuses.
	stored, err := cargoRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusInTransit, stored.Status)
}

func TestReopenOnlyFromClosed(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusInTransit}
	containerRepo.put(container)

	_, err := machine.Reopen(context.Background(), container)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceFollowsEdgeTable(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusPreparing}
	containerRepo.put(container)

	result, err := machine.Advance(context.Background(), container, model.ContainerStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, model.ContainerStatusPreparing, result.PreviousStatus)
	assert.Equal(t, model.ContainerStatusInTransit, result.Status)
}

func TestAdvanceRejectsSkippedStates(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusOpen}
	containerRepo.put(container)

	_, err := machine.Advance(context.Background(), container, model.ContainerStatusArrived)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceRejectsDedicatedTransitions(t *testing.T) {
	machine, _, containerRepo := newLifecycleFixture()

	container := &model.Container{ID: uuid.New(), Status: model.ContainerStatusArrived}
	containerRepo.put(container)

	// Closing and reopening have their own entry points.
	_, err := machine.Advance(context.Background(), container, model.ContainerStatusClosed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	container.Status = model.ContainerStatusClosed
	_, err = machine.Advance(context.Background(), container, model.ContainerStatusOpen)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
