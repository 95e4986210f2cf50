package service

import (
	"context"
	"sync"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repository stubs. They implement just enough of the repository
// interfaces for the engine components; assertions happen on their state maps.

type stubContainerRepo struct {
	mu         sync.Mutex
	containers map[uuid.UUID]*model.Container
	cargo      *stubCargoRepo // used by SumAssignedCapacity
}

func newStubContainerRepo(cargo *stubCargoRepo) *stubContainerRepo {
	return &stubContainerRepo{containers: make(map[uuid.UUID]*model.Container), cargo: cargo}
}

func (r *stubContainerRepo) put(c *model.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[c.ID] = c
}

func (r *stubContainerRepo) Create(ctx context.Context, c *model.Container) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.put(c)
	return nil
}

func (r *stubContainerRepo) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[id]
	if !ok {
		return repository.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "destination":
			c.Destination = v.(string)
		case "type":
			c.Type = v.(string)
		case "dimensions":
			c.Dimensions = v.(string)
		case "declared_weight":
			c.DeclaredWeight = v.(float64)
		case "declared_volume":
			c.DeclaredVolume = v.(float64)
		case "transport_cost":
			c.TransportCost = v.(decimal.Decimal)
		case "customs_cost":
			c.CustomsCost = v.(decimal.Decimal)
		}
	}
	return nil
}

func (r *stubContainerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.containers, id)
	return nil
}

func (r *stubContainerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *stubContainerRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Container, error) {
	return r.FindByID(ctx, id)
}

func (r *stubContainerRepo) List(ctx context.Context, status, destination string, page, limit int) ([]model.Container, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Container
	for _, c := range r.containers {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubContainerRepo) SumAssignedCapacity(ctx context.Context, id uuid.UUID) (repository.CapacityUsage, error) {
	r.cargo.mu.Lock()
	defer r.cargo.mu.Unlock()
	var usage repository.CapacityUsage
	for _, item := range r.cargo.items {
		if item.ContainerID != nil && *item.ContainerID == id {
			usage.UsedWeight += item.Weight
			usage.UsedVolume += item.Volume
		}
	}
	return usage, nil
}

func (r *stubContainerRepo) SaveGuarded(ctx context.Context, c *model.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.containers[c.ID]
	if !ok || stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	c.Version++
	copied := *c
	r.containers[c.ID] = &copied
	return nil
}

func (r *stubContainerRepo) SetClosed(ctx context.Context, c *model.Container, closedAt time.Time) error {
	c.Status = model.ContainerStatusClosed
	c.ClosedAt = &closedAt
	return r.SaveGuarded(ctx, c)
}

func (r *stubContainerRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range r.containers {
		counts[c.Status]++
	}
	return counts, nil
}

type stubCargoRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.CargoItem
}

func newStubCargoRepo() *stubCargoRepo {
	return &stubCargoRepo{items: make(map[uuid.UUID]*model.CargoItem)}
}

func (r *stubCargoRepo) put(item *model.CargoItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
}

func (r *stubCargoRepo) Create(ctx context.Context, item *model.CargoItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.put(item)
	return nil
}

func (r *stubCargoRepo) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "description":
			item.Description = v.(string)
		case "status":
			item.Status = v.(string)
		case "weight":
			item.Weight = v.(float64)
		case "volume":
			item.Volume = v.(float64)
		case "declared_value":
			item.DeclaredValue = v.(decimal.Decimal)
		case "transport_cost":
			item.TransportCost = v.(decimal.Decimal)
		case "handling_cost":
			item.HandlingCost = v.(decimal.Decimal)
		case "insurance_cost":
			item.InsuranceCost = v.(decimal.Decimal)
		case "storage_cost":
			item.StorageCost = v.(decimal.Decimal)
		case "total_cost":
			item.TotalCost = v.(decimal.Decimal)
		}
	}
	return nil
}

func (r *stubCargoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *stubCargoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CargoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *stubCargoRepo) List(ctx context.Context, filter repository.CargoFilter) ([]model.CargoItem, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CargoItem
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *stubCargoRepo) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]model.CargoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CargoItem
	for _, item := range r.items {
		if item.ContainerID != nil && *item.ContainerID == containerID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubCargoRepo) CountByContainer(ctx context.Context, containerID uuid.UUID) (int64, error) {
	items, _ := r.ListByContainer(ctx, containerID)
	return int64(len(items)), nil
}

func (r *stubCargoRepo) UpdateAssignment(ctx context.Context, itemID uuid.UUID, containerID *uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	item.ContainerID = containerID
	item.Status = status
	return nil
}

func (r *stubCargoRepo) BulkTransitionForClose(ctx context.Context, containerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.ContainerID != nil && *item.ContainerID == containerID && !model.IsTerminalStatus(item.Status) {
			item.Status = model.CargoStatusInTransit
			n++
		}
	}
	return n, nil
}

func (r *stubCargoRepo) SumCostByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, item := range r.items {
		if item.ClientID == clientID {
			total = total.Add(item.TotalCost)
		}
	}
	return total, nil
}

func (r *stubCargoRepo) SumCostByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, item := range r.items {
		if item.ContainerID != nil && *item.ContainerID == containerID {
			total = total.Add(item.TotalCost)
		}
	}
	return total, nil
}

type stubPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (r *stubPaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *stubPaymentRepo) List(ctx context.Context, filter repository.PaymentFilter) ([]model.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for _, p := range r.payments {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *stubPaymentRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.payments)), nil
}

func (r *stubPaymentRepo) sumPaid(match func(*model.Payment) bool) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.payments {
		if p.Status == model.PaymentStatusValid && match(p) {
			total = total.Add(p.AmountPaid)
		}
	}
	return total
}

func (r *stubPaymentRepo) SumPaidByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(func(p *model.Payment) bool { return p.ClientID == clientID }), nil
}

func (r *stubPaymentRepo) SumPaidByCargoItem(ctx context.Context, cargoItemID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(func(p *model.Payment) bool {
		return p.CargoItemID != nil && *p.CargoItemID == cargoItemID
	}), nil
}

func (r *stubPaymentRepo) SumPaidByContainer(ctx context.Context, containerID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPaid(func(p *model.Payment) bool {
		return p.ContainerID != nil && *p.ContainerID == containerID
	}), nil
}

type stubClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*model.Client
}

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{clients: make(map[uuid.UUID]*model.Client)}
}

func (r *stubClientRepo) Create(ctx context.Context, c *model.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

func (r *stubClientRepo) Update(ctx context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

func (r *stubClientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	return nil
}

func (r *stubClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *stubClientRepo) List(ctx context.Context, status, search string, page, limit int) ([]model.Client, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Client
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubClientRepo) DeleteAddressesByClientID(ctx context.Context, clientID uuid.UUID) error {
	return nil
}

func (r *stubClientRepo) CreateAddresses(ctx context.Context, addresses []model.ClientAddress) error {
	return nil
}

func (r *stubClientRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.clients)), nil
}

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *stubAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, int64(len(r.entries)), nil
}

// stubTxManager runs the function directly; the stubs have no transactions.
type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type stubPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *stubPublisher) Publish(message []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}
