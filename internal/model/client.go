package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientStatus enum constants
const (
	ClientStatusActive    = "actif"
	ClientStatusInactive  = "inactif"
	ClientStatusSuspended = "suspendu"
)

// AddressType enum constants
const (
	AddressTypeBilling  = "BILLING"
	AddressTypeDelivery = "DELIVERY"
)

// Client represents a freight-forwarding customer owning cargo items and payments
type Client struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code          string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Status        string          `gorm:"type:varchar(20);not null;default:'actif';index" json:"status"` // actif, inactif, suspendu
	TaxCode       string          `gorm:"type:varchar(50)" json:"tax_code"`
	CompanyName   string          `gorm:"type:varchar(255)" json:"company_name"`
	ContactPerson string          `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string          `gorm:"type:varchar(50)" json:"phone"`
	Email         string          `gorm:"type:varchar(255)" json:"email"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	Addresses     []ClientAddress `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"addresses"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ClientAddress represents a client's address (Billing, Delivery)
type ClientAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	AddressType string    `gorm:"type:varchar(20);not null" json:"address_type"` // BILLING, DELIVERY
	FullAddress string    `gorm:"type:text;not null" json:"full_address"`
	IsDefault   bool      `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
