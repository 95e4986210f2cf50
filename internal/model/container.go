package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContainerStatus enum constants (conteneur lifecycle)
const (
	ContainerStatusOpen      = "ouvert"
	ContainerStatusPreparing = "en_preparation"
	ContainerStatusInTransit = "en_transit"
	ContainerStatusArrived   = "arrive"
	ContainerStatusClosed    = "cloture"
)

// Container represents a shipping container (conteneur) with declared
// capacity and a derived used-capacity aggregate. UsedWeight/UsedVolume are a
// materialized view over currently assigned cargo items: they are only ever
// recomputed from membership, never incremented in place.
type Container struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reference      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference"`
	Destination    string          `gorm:"type:varchar(255);not null" json:"destination"`
	Type           string          `gorm:"type:varchar(50)" json:"type"` // 20ft, 40ft, 40ft_hc...
	Dimensions     string          `gorm:"type:varchar(100)" json:"dimensions"`
	Status         string          `gorm:"type:varchar(20);not null;default:'ouvert';index" json:"status"`
	DeclaredWeight float64         `gorm:"type:decimal(12,3);not null;default:0" json:"declared_weight"` // kg; 0 = unlimited (not yet configured)
	DeclaredVolume float64         `gorm:"type:decimal(12,3);not null;default:0" json:"declared_volume"` // m3; 0 = unlimited
	UsedWeight     float64         `gorm:"type:decimal(12,3);not null;default:0" json:"used_weight"`
	UsedVolume     float64         `gorm:"type:decimal(12,3);not null;default:0" json:"used_volume"`
	TransportCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"transport_cost"`
	CustomsCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"customs_cost"`
	Version        int             `gorm:"not null;default:0" json:"version"` // Optimistic lock counter
	ClosedAt       *time.Time      `json:"closed_at"`
	Items          []CargoItem     `gorm:"foreignKey:ContainerID" json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// HasUnlimitedWeight reports whether the weight capacity was never configured.
func (c *Container) HasUnlimitedWeight() bool { return c.DeclaredWeight == 0 }

// HasUnlimitedVolume reports whether the volume capacity was never configured.
func (c *Container) HasUnlimitedVolume() bool { return c.DeclaredVolume == 0 }
