package service

import (
	"context"
	"testing"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type containerFixture struct {
	svc           ContainerService
	cargoRepo     *stubCargoRepo
	containerRepo *stubContainerRepo
	auditRepo     *stubAuditRepo
}

func newContainerFixture() *containerFixture {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	auditRepo := &stubAuditRepo{}

	svc := NewContainerService(containerRepo, cargoRepo, auditRepo, stubTxManager{})
	return &containerFixture{
		svc:           svc,
		cargoRepo:     cargoRepo,
		containerRepo: containerRepo,
		auditRepo:     auditRepo,
	}
}

// TestUpdateContainerPreservesEngineFields covers the selective write: a
// detail edit must not overwrite status, usage, or the version counter.
func TestUpdateContainerPreservesEngineFields(t *testing.T) {
	f := newContainerFixture()
	ctx := context.Background()

	container := &model.Container{
		ID:             uuid.New(),
		Reference:      "CNT-ENG",
		Destination:    "Dakar",
		Status:         model.ContainerStatusPreparing,
		DeclaredWeight: 1000,
		UsedWeight:     600,
		Version:        3,
	}
	f.containerRepo.put(container)

	res, err := f.svc.UpdateContainer(ctx, uuid.NewString(), container.ID.String(), UpdateContainerRequest{
		Destination: ptrS("Conakry"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Conakry", res.Destination)

	stored, err := f.containerRepo.FindByID(ctx, container.ID)
	require.NoError(t, err)
	assert.Equal(t, "Conakry", stored.Destination)
	assert.Equal(t, model.ContainerStatusPreparing, stored.Status)
	assert.InDelta(t, 600, stored.UsedWeight, 0.001)
	assert.Equal(t, 3, stored.Version)
}

func TestUpdateContainerShrinkBelowUsageRejected(t *testing.T) {
	f := newContainerFixture()
	ctx := context.Background()

	container := &model.Container{
		ID:             uuid.New(),
		Reference:      "CNT-SHR",
		Destination:    "Dakar",
		Status:         model.ContainerStatusOpen,
		DeclaredWeight: 1000,
		UsedWeight:     600,
	}
	f.containerRepo.put(container)

	_, err := f.svc.UpdateContainer(ctx, uuid.NewString(), container.ID.String(), UpdateContainerRequest{
		DeclaredWeight: ptrF(500),
	})
	require.Error(t, err)

	stored, err := f.containerRepo.FindByID(ctx, container.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, stored.DeclaredWeight, 0.001)
}

func TestUpdateClosedContainerRejected(t *testing.T) {
	f := newContainerFixture()
	ctx := context.Background()

	container := &model.Container{
		ID:          uuid.New(),
		Reference:   "CNT-CLO",
		Destination: "Dakar",
		Status:      model.ContainerStatusClosed,
	}
	f.containerRepo.put(container)

	_, err := f.svc.UpdateContainer(ctx, uuid.NewString(), container.ID.String(), UpdateContainerRequest{
		Destination: ptrS("Bamako"),
	})
	assert.ErrorIs(t, err, ErrContainerClosed)
}
