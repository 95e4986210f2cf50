package service

import (
	"context"
	"testing"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBalanceClientScope(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	paymentRepo := newStubPaymentRepo()
	reconciler := NewFinancialReconciler(cargoRepo, paymentRepo)

	clientID := uuid.New()
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: clientID, TotalCost: dec("600")})
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: clientID, TotalCost: dec("400")})
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: uuid.New(), TotalCost: dec("9999")}) // other client

	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: clientID, AmountDue: dec("1000"), AmountPaid: dec("300"), Status: model.PaymentStatusValid,
	}))
	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: clientID, AmountDue: dec("1000"), AmountPaid: dec("200"), Status: model.PaymentStatusValid,
	}))

	balance, err := reconciler.Balance(context.Background(), ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, balance.Due.Equal(dec("1000")), "due = %s", balance.Due)
	assert.True(t, balance.Paid.Equal(dec("500")), "paid = %s", balance.Paid)
	assert.True(t, balance.Remaining.Equal(dec("500")), "remaining = %s", balance.Remaining)
}

func TestBalanceIgnoresCancelledPayments(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	paymentRepo := newStubPaymentRepo()
	reconciler := NewFinancialReconciler(cargoRepo, paymentRepo)

	clientID := uuid.New()
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: clientID, TotalCost: dec("1000")})

	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: clientID, AmountPaid: dec("300"), Status: model.PaymentStatusValid,
	}))
	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: clientID, AmountPaid: dec("400"), Status: model.PaymentStatusCancelled,
	}))

	balance, err := reconciler.Balance(context.Background(), ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, balance.Paid.Equal(dec("300")), "paid = %s", balance.Paid)
	assert.True(t, balance.Remaining.Equal(dec("700")), "remaining = %s", balance.Remaining)
}

func TestBalanceOverpaymentGoesNegative(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	paymentRepo := newStubPaymentRepo()
	reconciler := NewFinancialReconciler(cargoRepo, paymentRepo)

	itemID := uuid.New()
	cargoRepo.put(&model.CargoItem{ID: itemID, ClientID: uuid.New(), TotalCost: dec("100")})
	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: uuid.New(), CargoItemID: &itemID, AmountPaid: dec("150"), Status: model.PaymentStatusValid,
	}))

	balance, err := reconciler.Balance(context.Background(), CargoScope(itemID))
	require.NoError(t, err)
	assert.True(t, balance.Remaining.Equal(dec("-50")), "remaining = %s", balance.Remaining)
}

func TestBalanceContainerScope(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	paymentRepo := newStubPaymentRepo()
	reconciler := NewFinancialReconciler(cargoRepo, paymentRepo)

	containerID := uuid.New()
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: uuid.New(), ContainerID: &containerID, TotalCost: dec("250")})
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: uuid.New(), ContainerID: &containerID, TotalCost: dec("750")})

	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: uuid.New(), ContainerID: &containerID, AmountPaid: dec("600"), Status: model.PaymentStatusValid,
	}))

	balance, err := reconciler.Balance(context.Background(), ContainerScope(containerID))
	require.NoError(t, err)
	assert.True(t, balance.Due.Equal(dec("1000")), "due = %s", balance.Due)
	assert.True(t, balance.Remaining.Equal(dec("400")), "remaining = %s", balance.Remaining)
}

func TestBalanceScopeMustBeExclusive(t *testing.T) {
	reconciler := NewFinancialReconciler(newStubCargoRepo(), newStubPaymentRepo())

	clientID := uuid.New()
	containerID := uuid.New()

	_, err := reconciler.Balance(context.Background(), BalanceScope{ClientID: &clientID, ContainerID: &containerID})
	assert.Error(t, err)

	_, err = reconciler.Balance(context.Background(), BalanceScope{})
	assert.Error(t, err)
}

func TestBalanceCacheInvalidation(t *testing.T) {
	cargoRepo := newStubCargoRepo()
	paymentRepo := newStubPaymentRepo()
	reconciler := NewFinancialReconciler(cargoRepo, paymentRepo)

	clientID := uuid.New()
	cargoRepo.put(&model.CargoItem{ID: uuid.New(), ClientID: clientID, TotalCost: dec("1000")})

	balance, err := reconciler.Balance(context.Background(), ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, balance.Paid.IsZero())

	// New payment; the cached balance still answers until invalidated.
	require.NoError(t, paymentRepo.Create(context.Background(), &model.Payment{
		ClientID: clientID, AmountPaid: dec("300"), Status: model.PaymentStatusValid,
	}))

	cached, err := reconciler.Balance(context.Background(), ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, cached.Paid.IsZero())

	reconciler.Invalidate(ClientScope(clientID))

	fresh, err := reconciler.Balance(context.Background(), ClientScope(clientID))
	require.NoError(t, err)
	assert.True(t, fresh.Paid.Equal(dec("300")), "paid = %s", fresh.Paid)
}
