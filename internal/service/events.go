package service

import (
	"encoding/json"
	"log"
)

// Event kinds pushed to the notification layer after a successful facade
// operation.
const (
	EventCargoAssigned      = "cargo.assigned"
	EventCargoUnassigned    = "cargo.unassigned"
	EventContainerClosed    = "container.closed"
	EventContainerReopened  = "container.reopened"
	EventContainerAdvanced  = "container.advanced"
	EventPaymentRecorded    = "payment.recorded"
	EventPaymentCancelled   = "payment.cancelled"
	EventCapacityRecomputed = "capacity.recomputed"
)

// EnginePublisher delivers post-commit events to connected observers.
// Delivery is fire-and-forget; implementations must never block the caller.
type EnginePublisher interface {
	Publish(message []byte)
}

// EngineEvent is the payload broadcast for every successful facade
// operation: operation kind, affected entity ids, and the resulting
// capacity/status/balance snapshot.
type EngineEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// publishEvent marshals and hands the event to the publisher. A nil
// publisher (tests, workers without websocket) is a no-op; marshal failures
// are logged and dropped — notification must never roll back the
// originating transaction.
func publishEvent(pub EnginePublisher, event string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	payload, err := json.Marshal(EngineEvent{Event: event, Data: data})
	if err != nil {
		log.Printf("failed to marshal %s event: %v", event, err)
		return
	}
	pub.Publish(payload)
}
