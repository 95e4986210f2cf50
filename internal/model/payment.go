package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enum constants
const (
	PaymentStatusPending   = "en_attente"
	PaymentStatusValid     = "valide"
	PaymentStatusCancelled = "annule"
	PaymentStatusRefunded  = "rembourse"
)

// PaymentMethod enum constants
const (
	PaymentMethodCash     = "ESPECES"
	PaymentMethodTransfer = "VIREMENT"
	PaymentMethodCheque   = "CHEQUE"
	PaymentMethodCard     = "CARTE"
)

// Payment (paiement) records a collection against a client, optionally tied
// to one cargo item and/or one container. Cancellation is a status flip,
// never a physical delete — the financial audit trail stays intact.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"payment_no"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CargoItemID *uuid.UUID      `gorm:"type:uuid;index" json:"cargo_item_id"`
	CargoItem   *CargoItem      `gorm:"foreignKey:CargoItemID" json:"cargo_item,omitempty"`
	ContainerID *uuid.UUID      `gorm:"type:uuid;index" json:"container_id"`
	Container   *Container      `gorm:"foreignKey:ContainerID" json:"container,omitempty"`
	AmountDue   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_due"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_paid"` // Must satisfy amount_paid <= amount_due at creation
	Method      string          `gorm:"type:varchar(20);not null;default:'ESPECES'" json:"method"`
	Status      string          `gorm:"type:varchar(20);not null;default:'valide';index" json:"status"`
	Note        string          `gorm:"type:text" json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
