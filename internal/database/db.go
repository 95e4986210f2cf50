package database

import (
	"log"

	"freightdesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.ClientAddress{},
		&model.Container{},
		&model.CargoItem{},
		&model.Payment{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.Role{},
		&model.Permission{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
