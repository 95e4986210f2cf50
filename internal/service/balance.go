package service

import (
	"context"
	"fmt"
	"sync"

	"freightdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceScope designates exactly one of client, cargo item, or container.
type BalanceScope struct {
	ClientID    *uuid.UUID
	CargoItemID *uuid.UUID
	ContainerID *uuid.UUID
}

func (s BalanceScope) valid() bool {
	n := 0
	if s.ClientID != nil {
		n++
	}
	if s.CargoItemID != nil {
		n++
	}
	if s.ContainerID != nil {
		n++
	}
	return n == 1
}

func (s BalanceScope) key() string {
	switch {
	case s.ClientID != nil:
		return "client:" + s.ClientID.String()
	case s.CargoItemID != nil:
		return "cargo:" + s.CargoItemID.String()
	case s.ContainerID != nil:
		return "container:" + s.ContainerID.String()
	}
	return ""
}

// Balance is the due/paid/remaining view of a scope. Remaining is never
// clamped: an overpayment surfaces as a negative remaining.
type Balance struct {
	Due       decimal.Decimal `json:"due"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BalanceInvalidator is the slice of the reconciler handed to the CRUD
// services: any committed mutation that changes due amounts must drop the
// cached balances of the scopes it touched.
type BalanceInvalidator interface {
	Invalidate(scopes ...BalanceScope)
}

// FinancialReconciler computes due/paid/remaining for any scope by
// aggregating cargo costs and valid payments. Computed balances are cached
// per reconciler instance; the facade invalidates affected scopes after each
// committed mutation. No package-level state.
type FinancialReconciler struct {
	cargoRepo   repository.CargoRepository
	paymentRepo repository.PaymentRepository

	mu    sync.RWMutex
	cache map[string]Balance
}

func NewFinancialReconciler(cargoRepo repository.CargoRepository, paymentRepo repository.PaymentRepository) *FinancialReconciler {
	return &FinancialReconciler{
		cargoRepo:   cargoRepo,
		paymentRepo: paymentRepo,
		cache:       make(map[string]Balance),
	}
}

// Balance resolves the in-scope cargo cost for due, the valid payments for
// paid, and returns remaining = due - paid. Callers wanting a transactional
// snapshot run it inside RunInTx so items and payments are read at the same
// point in time.
func (r *FinancialReconciler) Balance(ctx context.Context, scope BalanceScope) (Balance, error) {
	if !scope.valid() {
		return Balance{}, fmt.Errorf("balance scope must reference exactly one of client, cargo item, or container")
	}

	key := scope.key()
	r.mu.RLock()
	if cached, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	var due, paid decimal.Decimal
	var err error

	switch {
	case scope.ClientID != nil:
		due, err = r.cargoRepo.SumCostByClient(ctx, *scope.ClientID)
		if err != nil {
			return Balance{}, fmt.Errorf("failed to sum client cargo cost: %w", err)
		}
		paid, err = r.paymentRepo.SumPaidByClient(ctx, *scope.ClientID)
	case scope.CargoItemID != nil:
		item, findErr := r.cargoRepo.FindByID(ctx, *scope.CargoItemID)
		if findErr != nil {
			if findErr == repository.ErrNotFound {
				return Balance{}, ErrNotFound
			}
			return Balance{}, fmt.Errorf("failed to load cargo item: %w", findErr)
		}
		due = item.TotalCost
		paid, err = r.paymentRepo.SumPaidByCargoItem(ctx, *scope.CargoItemID)
	case scope.ContainerID != nil:
		due, err = r.cargoRepo.SumCostByContainer(ctx, *scope.ContainerID)
		if err != nil {
			return Balance{}, fmt.Errorf("failed to sum container cargo cost: %w", err)
		}
		paid, err = r.paymentRepo.SumPaidByContainer(ctx, *scope.ContainerID)
	}
	if err != nil {
		return Balance{}, fmt.Errorf("failed to sum payments: %w", err)
	}

	balance := Balance{Due: due, Paid: paid, Remaining: due.Sub(paid)}

	r.mu.Lock()
	r.cache[key] = balance
	r.mu.Unlock()

	return balance, nil
}

// Invalidate drops the cached balance for every given scope. Nil scope
// pointers inside are skipped, so callers can pass the raw foreign keys of a
// mutated record.
func (r *FinancialReconciler) Invalidate(scopes ...BalanceScope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scope := range scopes {
		if key := scope.key(); key != "" {
			delete(r.cache, key)
		}
	}
}

// Scope constructors keep call sites terse.

func ClientScope(id uuid.UUID) BalanceScope    { return BalanceScope{ClientID: &id} }
func CargoScope(id uuid.UUID) BalanceScope     { return BalanceScope{CargoItemID: &id} }
func ContainerScope(id uuid.UUID) BalanceScope { return BalanceScope{ContainerID: &id} }
