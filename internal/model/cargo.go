package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CargoStatus enum constants (marchandise lifecycle)
const (
	CargoStatusReceived    = "recu"
	CargoStatusPending     = "en_attente"
	CargoStatusAssigned    = "affecte"
	CargoStatusInContainer = "en_conteneur"
	CargoStatusInTransit   = "en_transit"
	CargoStatusArrived     = "arrive"
	CargoStatusDelivered   = "livre"
	CargoStatusProblem     = "probleme"
	CargoStatusLost        = "perdu"
	CargoStatusDamaged     = "endommage"
)

// CargoTerminalStatuses are statuses a container close must not overwrite.
var CargoTerminalStatuses = []string{CargoStatusDelivered, CargoStatusProblem, CargoStatusLost}

// CargoItem represents a unit of freight (marchandise) owned by a client and
// optionally assigned to a single container. Cost components are fixed at
// intake; corrections go through an explicit update, never a side effect of
// assignment.
type CargoItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reference     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference"`
	Description   string          `gorm:"type:text" json:"description"`
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ContainerID   *uuid.UUID      `gorm:"type:uuid;index" json:"container_id"` // Nullable until admitted
	Status        string          `gorm:"type:varchar(20);not null;default:'recu';index" json:"status"`
	Weight        float64         `gorm:"type:decimal(12,3);not null;default:0" json:"weight"` // kg
	Volume        float64         `gorm:"type:decimal(12,3);not null;default:0" json:"volume"` // m3
	DeclaredValue decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"declared_value"`
	TransportCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"transport_cost"`
	HandlingCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"handling_cost"`
	InsuranceCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"insurance_cost"`
	StorageCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"storage_cost"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_cost"` // Sum of the four cost components
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ComputeTotalCost returns transport + handling + insurance + storage.
func (c *CargoItem) ComputeTotalCost() decimal.Decimal {
	return c.TransportCost.Add(c.HandlingCost).Add(c.InsuranceCost).Add(c.StorageCost)
}

// IsTerminalStatus reports whether the status must survive a container close.
func IsTerminalStatus(status string) bool {
	for _, s := range CargoTerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}
