package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultOperationTimeout bounds each facade operation when no budget is
// configured. On expiry the transaction aborts without partial mutation.
const DefaultOperationTimeout = 10 * time.Second

// --- DTOs ---

type RecordPaymentRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	CargoItemID string `json:"cargo_item_id"`
	ContainerID string `json:"container_id"`
	AmountDue   string `json:"amount_due" binding:"required"`
	AmountPaid  string `json:"amount_paid" binding:"required"`
	Method      string `json:"method" binding:"omitempty,oneof=ESPECES VIREMENT CHEQUE CARTE"`
	Note        string `json:"note"`
}

type PaymentResponse struct {
	ID          string  `json:"id"`
	PaymentNo   string  `json:"payment_no"`
	ClientID    string  `json:"client_id"`
	CargoItemID *string `json:"cargo_item_id"`
	ContainerID *string `json:"container_id"`
	AmountDue   string  `json:"amount_due"`
	AmountPaid  string  `json:"amount_paid"`
	Method      string  `json:"method"`
	Status      string  `json:"status"`
	Note        string  `json:"note"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

// ReconciliationService is the single write surface over the
// container/cargo/payment graph. Every operation runs under one
// transactional boundary: either all invariants hold after the call returns,
// or no state changed. Collaborators never write container status, used
// capacity, or cargo container references directly.
type ReconciliationService interface {
	AssignItem(ctx context.Context, userID, cargoID, containerID string) (*AssignmentResult, error)
	UnassignItem(ctx context.Context, userID, cargoID string) (*AssignmentResult, error)
	CloseContainer(ctx context.Context, userID, containerID string) (*LifecycleResult, error)
	ReopenContainer(ctx context.Context, userID, containerID string) (*LifecycleResult, error)
	AdvanceContainer(ctx context.Context, userID, containerID, nextStatus string) (*LifecycleResult, error)
	RecordPayment(ctx context.Context, userID string, req RecordPaymentRequest) (PaymentResponse, error)
	CancelPayment(ctx context.Context, userID, paymentID string) (PaymentResponse, error)
	Balance(ctx context.Context, scope BalanceScope) (Balance, error)
	RecomputeCapacity(ctx context.Context, containerID string) (repository.CapacityUsage, error)
}

type reconciliationService struct {
	cargoRepo     repository.CargoRepository
	containerRepo repository.ContainerRepository
	paymentRepo   repository.PaymentRepository
	clientRepo    repository.ClientRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager

	tracker    *CapacityTracker
	admission  *AdmissionController
	lifecycle  *LifecycleStateMachine
	reconciler *FinancialReconciler

	publisher EnginePublisher
	opTimeout time.Duration
}

func NewReconciliationService(
	cargoRepo repository.CargoRepository,
	containerRepo repository.ContainerRepository,
	paymentRepo repository.PaymentRepository,
	clientRepo repository.ClientRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	reconciler *FinancialReconciler,
	publisher EnginePublisher,
	opTimeout time.Duration,
) ReconciliationService {
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}
	// The reconciler is shared with the CRUD services so cost edits can
	// invalidate the same cache the facade serves balances from.
	if reconciler == nil {
		reconciler = NewFinancialReconciler(cargoRepo, paymentRepo)
	}
	tracker := NewCapacityTracker(containerRepo)
	return &reconciliationService{
		cargoRepo:     cargoRepo,
		containerRepo: containerRepo,
		paymentRepo:   paymentRepo,
		clientRepo:    clientRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		tracker:       tracker,
		admission:     NewAdmissionController(cargoRepo, tracker),
		lifecycle:     NewLifecycleStateMachine(containerRepo, cargoRepo),
		reconciler:    reconciler,
		publisher:     publisher,
		opTimeout:     opTimeout,
	}
}

// --- Assignment operations ---

func (s *reconciliationService) AssignItem(ctx context.Context, userID, cargoID, containerID string) (*AssignmentResult, error) {
	itemID, err := uuid.Parse(cargoID)
	if err != nil {
		return nil, fmt.Errorf("invalid cargo item id: %w", err)
	}
	contID, err := uuid.Parse(containerID)
	if err != nil {
		return nil, fmt.Errorf("invalid container id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var result *AssignmentResult
	var item *model.CargoItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock the container first: the capacity check and the commit must be
		// serialized per container. Other containers proceed in parallel.
		container, txErr := s.containerRepo.FindForUpdate(txCtx, contID)
		if txErr != nil {
			return notFoundOr(txErr, "container")
		}
		item, txErr = s.cargoRepo.FindByID(txCtx, itemID)
		if txErr != nil {
			return notFoundOr(txErr, "cargo item")
		}

		result, txErr = s.admission.Assign(txCtx, item, container)
		if txErr != nil {
			return txErr
		}

		return s.audit(txCtx, userID, model.ActionAssignCargo, item.ID.String(), item.Reference, map[string]interface{}{
			"container_id": container.ID.String(),
			"used_weight":  result.UsedWeight,
			"used_volume":  result.UsedVolume,
		})
	})
	if err != nil {
		return nil, err
	}

	s.reconciler.Invalidate(ClientScope(item.ClientID), CargoScope(itemID), ContainerScope(contID))
	publishEvent(s.publisher, EventCargoAssigned, map[string]interface{}{
		"cargo_id":     cargoID,
		"container_id": containerID,
		"item_status":  result.ItemStatus,
		"used_weight":  result.UsedWeight,
		"used_volume":  result.UsedVolume,
	})
	return result, nil
}

func (s *reconciliationService) UnassignItem(ctx context.Context, userID, cargoID string) (*AssignmentResult, error) {
	itemID, err := uuid.Parse(cargoID)
	if err != nil {
		return nil, fmt.Errorf("invalid cargo item id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var result *AssignmentResult
	var item *model.CargoItem
	var contID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		item, txErr = s.cargoRepo.FindByID(txCtx, itemID)
		if txErr != nil {
			return notFoundOr(txErr, "cargo item")
		}
		if item.ContainerID == nil {
			// A retried unassign whose first commit succeeded lands here;
			// treat it as already done rather than an error only when the
			// caller observed a timeout. Without that signal we surface the
			// state as-is.
			return ErrNotAssigned
		}
		contID = *item.ContainerID

		container, txErr := s.containerRepo.FindForUpdate(txCtx, contID)
		if txErr != nil {
			return notFoundOr(txErr, "container")
		}

		result, txErr = s.admission.Unassign(txCtx, item, container)
		if txErr != nil {
			return txErr
		}

		return s.audit(txCtx, userID, model.ActionUnassignCargo, item.ID.String(), item.Reference, map[string]interface{}{
			"container_id": contID.String(),
			"used_weight":  result.UsedWeight,
			"used_volume":  result.UsedVolume,
		})
	})
	if err != nil {
		return nil, err
	}

	s.reconciler.Invalidate(ClientScope(item.ClientID), CargoScope(itemID), ContainerScope(contID))
	publishEvent(s.publisher, EventCargoUnassigned, map[string]interface{}{
		"cargo_id":     cargoID,
		"container_id": contID.String(),
		"item_status":  result.ItemStatus,
		"used_weight":  result.UsedWeight,
		"used_volume":  result.UsedVolume,
	})
	return result, nil
}

// --- Lifecycle operations ---

func (s *reconciliationService) CloseContainer(ctx context.Context, userID, containerID string) (*LifecycleResult, error) {
	return s.runLifecycle(ctx, userID, containerID, model.ActionCloseContainer, EventContainerClosed,
		func(txCtx context.Context, container *model.Container) (*LifecycleResult, error) {
			return s.lifecycle.Close(txCtx, container)
		})
}

func (s *reconciliationService) ReopenContainer(ctx context.Context, userID, containerID string) (*LifecycleResult, error) {
	return s.runLifecycle(ctx, userID, containerID, model.ActionReopenContainer, EventContainerReopened,
		func(txCtx context.Context, container *model.Container) (*LifecycleResult, error) {
			return s.lifecycle.Reopen(txCtx, container)
		})
}

func (s *reconciliationService) AdvanceContainer(ctx context.Context, userID, containerID, nextStatus string) (*LifecycleResult, error) {
	return s.runLifecycle(ctx, userID, containerID, model.ActionAdvanceContainer, EventContainerAdvanced,
		func(txCtx context.Context, container *model.Container) (*LifecycleResult, error) {
			return s.lifecycle.Advance(txCtx, container, nextStatus)
		})
}

func (s *reconciliationService) runLifecycle(
	ctx context.Context,
	userID, containerID, action, event string,
	transition func(context.Context, *model.Container) (*LifecycleResult, error),
) (*LifecycleResult, error) {
	contID, err := uuid.Parse(containerID)
	if err != nil {
		return nil, fmt.Errorf("invalid container id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var result *LifecycleResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		container, txErr := s.containerRepo.FindForUpdate(txCtx, contID)
		if txErr != nil {
			return notFoundOr(txErr, "container")
		}

		result, txErr = transition(txCtx, container)
		if txErr != nil {
			return txErr
		}

		return s.audit(txCtx, userID, action, container.ID.String(), container.Reference, map[string]interface{}{
			"previous_status": result.PreviousStatus,
			"status":          result.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.reconciler.Invalidate(ContainerScope(contID))
	publishEvent(s.publisher, event, map[string]interface{}{
		"container_id":       containerID,
		"previous_status":    result.PreviousStatus,
		"status":             result.Status,
		"items_transitioned": result.ItemsTransitioned,
	})
	return result, nil
}

// --- Payment operations ---

func (s *reconciliationService) RecordPayment(ctx context.Context, userID string, req RecordPaymentRequest) (PaymentResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	amountDue, err := decimal.NewFromString(req.AmountDue)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid amount_due: %w", err)
	}
	amountPaid, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid amount_paid: %w", err)
	}
	if amountDue.IsNegative() || amountPaid.IsNegative() {
		return PaymentResponse{}, fmt.Errorf("payment amounts cannot be negative")
	}
	if amountPaid.GreaterThan(amountDue) {
		return PaymentResponse{}, ErrPaymentExceedsDue
	}

	var cargoItemID, containerID *uuid.UUID
	if req.CargoItemID != "" {
		parsed, parseErr := uuid.Parse(req.CargoItemID)
		if parseErr != nil {
			return PaymentResponse{}, fmt.Errorf("invalid cargo_item_id: %w", parseErr)
		}
		cargoItemID = &parsed
	}
	if req.ContainerID != "" {
		parsed, parseErr := uuid.Parse(req.ContainerID)
		if parseErr != nil {
			return PaymentResponse{}, fmt.Errorf("invalid container_id: %w", parseErr)
		}
		containerID = &parsed
	}

	method := req.Method
	if method == "" {
		method = model.PaymentMethodCash
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	payment := &model.Payment{
		ClientID:    clientID,
		CargoItemID: cargoItemID,
		ContainerID: containerID,
		AmountDue:   amountDue,
		AmountPaid:  amountPaid,
		Method:      method,
		Status:      model.PaymentStatusValid,
		Note:        req.Note,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, txErr := s.clientRepo.FindByID(txCtx, clientID); txErr != nil {
			return notFoundOr(txErr, "client")
		}
		if cargoItemID != nil {
			if _, txErr := s.cargoRepo.FindByID(txCtx, *cargoItemID); txErr != nil {
				return notFoundOr(txErr, "cargo item")
			}
		}
		if containerID != nil {
			if _, txErr := s.containerRepo.FindByID(txCtx, *containerID); txErr != nil {
				return notFoundOr(txErr, "container")
			}
		}

		no, txErr := s.nextPaymentNo(txCtx)
		if txErr != nil {
			return txErr
		}
		payment.PaymentNo = no

		if txErr := s.paymentRepo.Create(txCtx, payment); txErr != nil {
			return fmt.Errorf("failed to create payment: %w", txErr)
		}

		return s.audit(txCtx, userID, model.ActionRecordPayment, payment.ID.String(), payment.PaymentNo, map[string]interface{}{
			"client_id":   req.ClientID,
			"amount_due":  amountDue.String(),
			"amount_paid": amountPaid.String(),
			"method":      method,
		})
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	scopes := []BalanceScope{ClientScope(clientID)}
	if cargoItemID != nil {
		scopes = append(scopes, CargoScope(*cargoItemID))
	}
	if containerID != nil {
		scopes = append(scopes, ContainerScope(*containerID))
	}
	s.reconciler.Invalidate(scopes...)

	publishEvent(s.publisher, EventPaymentRecorded, map[string]interface{}{
		"payment_id":  payment.ID.String(),
		"payment_no":  payment.PaymentNo,
		"client_id":   req.ClientID,
		"amount_paid": amountPaid.String(),
	})
	return toPaymentResponse(*payment), nil
}

func (s *reconciliationService) CancelPayment(ctx context.Context, userID, paymentID string) (PaymentResponse, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var payment *model.Payment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		payment, txErr = s.paymentRepo.FindByID(txCtx, id)
		if txErr != nil {
			return notFoundOr(txErr, "payment")
		}
		if payment.Status == model.PaymentStatusCancelled {
			return nil // cancelling twice is a no-op
		}

		if txErr = s.paymentRepo.UpdateStatus(txCtx, id, model.PaymentStatusCancelled); txErr != nil {
			return fmt.Errorf("failed to cancel payment: %w", txErr)
		}
		payment.Status = model.PaymentStatusCancelled

		return s.audit(txCtx, userID, model.ActionCancelPayment, payment.ID.String(), payment.PaymentNo, map[string]interface{}{
			"status": model.PaymentStatusCancelled,
		})
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	scopes := []BalanceScope{ClientScope(payment.ClientID)}
	if payment.CargoItemID != nil {
		scopes = append(scopes, CargoScope(*payment.CargoItemID))
	}
	if payment.ContainerID != nil {
		scopes = append(scopes, ContainerScope(*payment.ContainerID))
	}
	s.reconciler.Invalidate(scopes...)

	publishEvent(s.publisher, EventPaymentCancelled, map[string]interface{}{
		"payment_id": paymentID,
		"payment_no": payment.PaymentNo,
	})
	return toPaymentResponse(*payment), nil
}

// --- Read operations ---

func (s *reconciliationService) Balance(ctx context.Context, scope BalanceScope) (Balance, error) {
	var balance Balance
	// Single transaction so items and payments come from one snapshot.
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		balance, txErr = s.reconciler.Balance(txCtx, scope)
		return txErr
	})
	return balance, err
}

func (s *reconciliationService) RecomputeCapacity(ctx context.Context, containerID string) (repository.CapacityUsage, error) {
	contID, err := uuid.Parse(containerID)
	if err != nil {
		return repository.CapacityUsage{}, fmt.Errorf("invalid container id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var usage repository.CapacityUsage
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		usage, txErr = s.tracker.RecomputeByID(txCtx, contID)
		return txErr
	})
	if err != nil {
		return repository.CapacityUsage{}, err
	}

	publishEvent(s.publisher, EventCapacityRecomputed, map[string]interface{}{
		"container_id": containerID,
		"used_weight":  usage.UsedWeight,
		"used_volume":  usage.UsedVolume,
	})
	return usage, nil
}

// --- Helpers ---

func (s *reconciliationService) audit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *reconciliationService) nextPaymentNo(ctx context.Context) (string, error) {
	prefix := "PAY-" + time.Now().Format("200601")
	count, err := s.paymentRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to number payment: %w", err)
	}
	return fmt.Sprintf("%s-%05d", prefix, count+1), nil
}

// notFoundOr maps the repository's missing-row sentinel to the engine's
// ErrNotFound, keeping provenance for other failures.
func notFoundOr(err error, entity string) error {
	if err == repository.ErrNotFound {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return err
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:         p.ID.String(),
		PaymentNo:  p.PaymentNo,
		ClientID:   p.ClientID.String(),
		AmountDue:  p.AmountDue.String(),
		AmountPaid: p.AmountPaid.String(),
		Method:     p.Method,
		Status:     p.Status,
		Note:       p.Note,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
	if p.CargoItemID != nil {
		id := p.CargoItemID.String()
		resp.CargoItemID = &id
	}
	if p.ContainerID != nil {
		id := p.ContainerID.String()
		resp.ContainerID = &id
	}
	return resp
}
