package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateClient    = "CREATE_CLIENT"
	ActionUpdateClient    = "UPDATE_CLIENT"
	ActionDeleteClient    = "DELETE_CLIENT"
	ActionCreateCargo     = "CREATE_CARGO"
	ActionUpdateCargo     = "UPDATE_CARGO"
	ActionDeleteCargo     = "DELETE_CARGO"
	ActionCreateContainer = "CREATE_CONTAINER"
	ActionUpdateContainer = "UPDATE_CONTAINER"

	// Reconciliation engine actions
	ActionAssignCargo      = "ASSIGN_CARGO"
	ActionUnassignCargo    = "UNASSIGN_CARGO"
	ActionCloseContainer   = "CLOSE_CONTAINER"
	ActionReopenContainer  = "REOPEN_CONTAINER"
	ActionAdvanceContainer = "ADVANCE_CONTAINER"
	ActionRecordPayment    = "RECORD_PAYMENT"
	ActionCancelPayment    = "CANCEL_PAYMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
