package infra

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fotolio/internal/models/db_models"
)

func InitPostgresql(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.Wallet{},
		&db_models.LedgerEntry{},
		&db_models.Transaction{},
		&db_models.Gallery{},
		&db_models.GalleryImage{},
		&db_models.Order{},
		&db_models.Plan{},
		&db_models.PaymentAudit{},
		&db_models.ReferralState{},
		&db_models.ReferralMark{},
		&db_models.EarnedDiscountCode{},
		&db_models.ScheduledJob{},
	)
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}
}
