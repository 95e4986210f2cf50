package service

import (
	"context"
	"strings"
	"testing"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconciliationFixture struct {
	svc           ReconciliationService
	cargoRepo     *stubCargoRepo
	containerRepo *stubContainerRepo
	paymentRepo   *stubPaymentRepo
	clientRepo    *stubClientRepo
	auditRepo     *stubAuditRepo
	publisher     *stubPublisher
}

func newReconciliationFixture() *reconciliationFixture {
	cargoRepo := newStubCargoRepo()
	containerRepo := newStubContainerRepo(cargoRepo)
	paymentRepo := newStubPaymentRepo()
	clientRepo := newStubClientRepo()
	auditRepo := &stubAuditRepo{}
	publisher := &stubPublisher{}

	svc := NewReconciliationService(
		cargoRepo, containerRepo, paymentRepo, clientRepo, auditRepo,
		stubTxManager{}, nil, publisher, 0,
	)
	return &reconciliationFixture{
		svc:           svc,
		cargoRepo:     cargoRepo,
		containerRepo: containerRepo,
		paymentRepo:   paymentRepo,
		clientRepo:    clientRepo,
		auditRepo:     auditRepo,
		publisher:     publisher,
	}
}

func (f *reconciliationFixture) seedClient() uuid.UUID {
	client := &model.Client{ID: uuid.New(), Code: "CLI-001", Name: "Diallo Import"}
	_ = f.clientRepo.Create(context.Background(), client)
	return client.ID
}

func (f *reconciliationFixture) seedContainer(declaredWeight float64) *model.Container {
	container := &model.Container{
		ID:             uuid.New(),
		Reference:      "CNT-" + uuid.NewString()[:8],
		Status:         model.ContainerStatusOpen,
		DeclaredWeight: declaredWeight,
	}
	f.containerRepo.put(container)
	return container
}

func (f *reconciliationFixture) seedItem(clientID uuid.UUID, weight float64) *model.CargoItem {
	item := &model.CargoItem{
		ID:        uuid.New(),
		Reference: "CRG-" + uuid.NewString()[:8],
		ClientID:  clientID,
		Status:    model.CargoStatusPending,
		Weight:    weight,
	}
	f.cargoRepo.put(item)
	return item
}

// TestContainerFillAndCloseFlow walks the standard groupage flow: fill a
// container to capacity with a rejection on the way, swap an item, close.
func TestContainerFillAndCloseFlow(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()
	userID := uuid.NewString()

	clientID := f.seedClient()
	container := f.seedContainer(1000)
	itemA := f.seedItem(clientID, 600)
	itemB := f.seedItem(clientID, 500)
	itemC := f.seedItem(clientID, 400)

	// A (600 kg) fits.
	resA, err := f.svc.AssignItem(ctx, userID, itemA.ID.String(), container.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 600, resA.UsedWeight, 0.001)

	// B (500 kg) overflows by 100.
	_, err = f.svc.AssignItem(ctx, userID, itemB.ID.String(), container.ID.String())
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// C (400 kg) fills it exactly.
	resC, err := f.svc.AssignItem(ctx, userID, itemC.ID.String(), container.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 1000, resC.UsedWeight, 0.001)

	// Pull A back out; usage drops to 400.
	resU, err := f.svc.UnassignItem(ctx, userID, itemA.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 400, resU.UsedWeight, 0.001)
	assert.Equal(t, model.CargoStatusPending, resU.ItemStatus)

	// Close moves the remaining item to en_transit.
	resClose, err := f.svc.CloseContainer(ctx, userID, container.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ContainerStatusClosed, resClose.Status)
	assert.Equal(t, int64(1), resClose.ItemsTransitioned)

	storedC, err := f.cargoRepo.FindByID(ctx, itemC.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CargoStatusInTransit, storedC.Status)

	// Each committed operation wrote an audit row and published an event.
	assert.Len(t, f.auditRepo.entries, 4)
	assert.Equal(t, 4, f.publisher.count())
}

func TestCloseEmptyContainerViaFacade(t *testing.T) {
	f := newReconciliationFixture()
	container := f.seedContainer(1000)

	_, err := f.svc.CloseContainer(context.Background(), uuid.NewString(), container.ID.String())
	assert.ErrorIs(t, err, ErrEmptyContainer)

	// Nothing committed: no audit row, no event.
	assert.Empty(t, f.auditRepo.entries)
	assert.Zero(t, f.publisher.count())
}

func TestAssignUnknownIDs(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()

	clientID := f.seedClient()
	container := f.seedContainer(1000)
	item := f.seedItem(clientID, 100)

	_, err := f.svc.AssignItem(ctx, "u", item.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AssignItem(ctx, "u", uuid.NewString(), container.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AssignItem(ctx, "u", "not-a-uuid", container.ID.String())
	assert.Error(t, err)
}

func TestReopenThenReassign(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()
	userID := uuid.NewString()

	clientID := f.seedClient()
	container := f.seedContainer(1000)
	item := f.seedItem(clientID, 300)

	_, err := f.svc.AssignItem(ctx, userID, item.ID.String(), container.ID.String())
	require.NoError(t, err)
	_, err = f.svc.CloseContainer(ctx, userID, container.ID.String())
	require.NoError(t, err)

	// Closed container refuses admission.
	late := f.seedItem(clientID, 100)
	_, err = f.svc.AssignItem(ctx, userID, late.ID.String(), container.ID.String())
	assert.ErrorIs(t, err, ErrContainerClosed)

	_, err = f.svc.ReopenContainer(ctx, userID, container.ID.String())
	require.NoError(t, err)

	_, err = f.svc.AssignItem(ctx, userID, late.ID.String(), container.ID.String())
	assert.NoError(t, err)
}

func TestAdvanceViaFacade(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()

	container := f.seedContainer(0)

	res, err := f.svc.AdvanceContainer(ctx, "u", container.ID.String(), model.ContainerStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.ContainerStatusPreparing, res.Status)

	_, err = f.svc.AdvanceContainer(ctx, "u", container.ID.String(), model.ContainerStatusArrived)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordPaymentAndBalance(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()
	userID := uuid.NewString()

	clientID := f.seedClient()
	item := f.seedItem(clientID, 100)
	item.TotalCost = dec("1000")
	f.cargoRepo.put(item)

	pay := func(amount string) (PaymentResponse, error) {
		return f.svc.RecordPayment(ctx, userID, RecordPaymentRequest{
			ClientID:   clientID.String(),
			AmountDue:  "1000",
			AmountPaid: amount,
		})
	}

	first, err := pay("300")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.PaymentNo, "PAY-"), "payment_no = %s", first.PaymentNo)
	assert.Equal(t, model.PaymentStatusValid, first.Status)
	assert.Equal(t, model.PaymentMethodCash, first.Method)

	second, err := pay("200")
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentNo, second.PaymentNo)

	balance, err := f.svc.Balance(ctx, ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, balance.Due.Equal(dec("1000")), "due = %s", balance.Due)
	assert.True(t, balance.Paid.Equal(dec("500")), "paid = %s", balance.Paid)
	assert.True(t, balance.Remaining.Equal(dec("500")), "remaining = %s", balance.Remaining)
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()
	clientID := f.seedClient()

	// Paid above due.
	_, err := f.svc.RecordPayment(ctx, "u", RecordPaymentRequest{
		ClientID: clientID.String(), AmountDue: "100", AmountPaid: "150",
	})
	assert.ErrorIs(t, err, ErrPaymentExceedsDue)

	// Negative amount.
	_, err = f.svc.RecordPayment(ctx, "u", RecordPaymentRequest{
		ClientID: clientID.String(), AmountDue: "100", AmountPaid: "-10",
	})
	assert.Error(t, err)

	// Unknown client.
	_, err = f.svc.RecordPayment(ctx, "u", RecordPaymentRequest{
		ClientID: uuid.NewString(), AmountDue: "100", AmountPaid: "100",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.auditRepo.entries)
}

func TestCancelPaymentIdempotent(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()
	userID := uuid.NewString()
	clientID := f.seedClient()

	recorded, err := f.svc.RecordPayment(ctx, userID, RecordPaymentRequest{
		ClientID: clientID.String(), AmountDue: "500", AmountPaid: "500",
	})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelPayment(ctx, userID, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCancelled, cancelled.Status)

	// Second cancel is a no-op, not an error.
	again, err := f.svc.CancelPayment(ctx, userID, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCancelled, again.Status)

	// Cancelled money no longer counts as paid.
	balance, err := f.svc.Balance(ctx, ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, balance.Paid.IsZero(), "paid = %s", balance.Paid)
}

func TestRecomputeCapacityViaFacade(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()

	container := f.seedContainer(1000)
	contID := container.ID
	f.cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: uuid.New(), ContainerID: &contID, Weight: 250, Volume: 4})

	usage, err := f.svc.RecomputeCapacity(ctx, container.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 250, usage.UsedWeight, 0.001)
	assert.InDelta(t, 4, usage.UsedVolume, 0.001)

	_, err = f.svc.RecomputeCapacity(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

// contendedContainerRepo runs a hook the first time a caller locks the row,
// standing in for a rival transaction that holds the lock first and commits
// before the caller's read completes.
type contendedContainerRepo struct {
	*stubContainerRepo
	onLock func()
}

func (r *contendedContainerRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	if r.onLock != nil {
		hook := r.onLock
		r.onLock = nil
		hook()
	}
	return r.stubContainerRepo.FindForUpdate(ctx, id)
}

// staleContainerRepo hands out a pre-captured snapshot once, as if the
// caller's read predated another writer's commit.
type staleContainerRepo struct {
	*stubContainerRepo
	stale *model.Container
}

func (r *staleContainerRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	if r.stale != nil && r.stale.ID == id {
		snapshot := *r.stale
		r.stale = nil
		return &snapshot, nil
	}
	return r.stubContainerRepo.FindForUpdate(ctx, id)
}

// TestInterleavedAssignsRespectCapacity covers two assignments that each fit
// alone but jointly overflow: the second writer observes the first writer's
// committed usage at lock time and must be rejected.
func TestInterleavedAssignsRespectCapacity(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()

	clientID := f.seedClient()
	container := f.seedContainer(1000)
	itemA := f.seedItem(clientID, 600)
	itemB := f.seedItem(clientID, 600)

	contended := &contendedContainerRepo{stubContainerRepo: f.containerRepo}
	second := NewReconciliationService(
		f.cargoRepo, contended, f.paymentRepo, f.clientRepo, f.auditRepo,
		stubTxManager{}, nil, f.publisher, 0,
	)

	// The first writer wins the row lock and commits while the second
	// writer is still waiting on FindForUpdate.
	contended.onLock = func() {
		_, err := f.svc.AssignItem(ctx, "first", itemA.ID.String(), container.ID.String())
		require.NoError(t, err)
	}

	_, err := second.AssignItem(ctx, "second", itemB.ID.String(), container.ID.String())
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// Only the first item landed and usage reflects it alone.
	usage, err := f.containerRepo.SumAssignedCapacity(ctx, container.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600, usage.UsedWeight, 0.001)

	storedA, err := f.cargoRepo.FindByID(ctx, itemA.ID)
	require.NoError(t, err)
	require.NotNil(t, storedA.ContainerID)
	assert.Equal(t, container.ID, *storedA.ContainerID)

	storedB, err := f.cargoRepo.FindByID(ctx, itemB.ID)
	require.NoError(t, err)
	assert.Nil(t, storedB.ContainerID)
	assert.Equal(t, model.CargoStatusPending, storedB.Status)
}

// TestAssignWithStaleSnapshotConflicts covers a writer whose read predates a
// concurrent version bump: the guarded save must refuse to commit.
func TestAssignWithStaleSnapshotConflicts(t *testing.T) {
	f := newReconciliationFixture()
	ctx := context.Background()

	clientID := f.seedClient()
	container := f.seedContainer(1000)
	item := f.seedItem(clientID, 100)

	snapshot := *container
	stale := &staleContainerRepo{stubContainerRepo: f.containerRepo, stale: &snapshot}
	svc := NewReconciliationService(
		f.cargoRepo, stale, f.paymentRepo, f.clientRepo, f.auditRepo,
		stubTxManager{}, nil, f.publisher, 0,
	)

	// Another writer bumps the row version after the snapshot was taken.
	_, err := f.svc.RecomputeCapacity(ctx, container.ID.String())
	require.NoError(t, err)

	_, err = svc.AssignItem(ctx, "u", item.ID.String(), container.ID.String())
	assert.ErrorIs(t, err, ErrConcurrentModification)
}
