package service

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Guard violations are returned as typed errors and
// never silently coerced: an over-capacity assignment is rejected, not
// truncated.
var (
	// ErrAlreadyAssigned indicates the cargo item already sits in a container;
	// assignment is not a silent move.
	ErrAlreadyAssigned = errors.New("cargo item is already assigned to a container")
	// ErrNotAssigned indicates an unassign on an item with no container.
	ErrNotAssigned = errors.New("cargo item is not assigned to any container")
	// ErrContainerClosed indicates the container no longer accepts membership changes.
	ErrContainerClosed = errors.New("container is closed")
	// ErrCapacityExceeded indicates the item does not fit; match with
	// errors.Is, then errors.As to *CapacityExceededError for the overflow.
	ErrCapacityExceeded = errors.New("container capacity exceeded")
	// ErrEmptyContainer indicates a close on a container holding no cargo.
	ErrEmptyContainer = errors.New("container holds no cargo items")
	// ErrInvalidTransition indicates a lifecycle edge outside the fixed table.
	ErrInvalidTransition = errors.New("invalid container status transition")
	// ErrPaymentExceedsDue indicates amount_paid > amount_due at creation.
	ErrPaymentExceedsDue = errors.New("amount paid exceeds amount due")
	// ErrNotFound indicates a referenced entity is missing.
	ErrNotFound = errors.New("entity not found")
	// ErrConcurrentModification indicates an optimistic-lock conflict; the
	// caller must re-read state before retrying.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// CapacityExceededError carries the overflow magnitude so callers can render
// messages like "exceeds capacity by 120 kg".
type CapacityExceededError struct {
	OverflowWeight float64 // kg over declared weight; 0 if weight fits
	OverflowVolume float64 // m3 over declared volume; 0 if volume fits
}

func (e *CapacityExceededError) Error() string {
	switch {
	case e.OverflowWeight > 0 && e.OverflowVolume > 0:
		return fmt.Sprintf("container capacity exceeded by %.3f kg and %.3f m3", e.OverflowWeight, e.OverflowVolume)
	case e.OverflowVolume > 0:
		return fmt.Sprintf("container capacity exceeded by %.3f m3", e.OverflowVolume)
	default:
		return fmt.Sprintf("container capacity exceeded by %.3f kg", e.OverflowWeight)
	}
}

// Is lets errors.Is(err, ErrCapacityExceeded) match regardless of magnitude.
func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// InvalidTransitionError reports the rejected edge.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid container status transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
