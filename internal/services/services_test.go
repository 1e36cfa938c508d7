package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fotolio/internal/infra"
	"fotolio/internal/models/db_models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/fotolio.db"), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	if err := infra.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func seedWallet(t *testing.T, db *gorm.DB, userID uuid.UUID, balanceMinor int64) {
	t.Helper()
	wallet := db_models.Wallet{UserID: userID, BalanceMinor: balanceMinor}
	if err := db.Create(&wallet).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
}

func seedPlan(t *testing.T, db *gorm.DB, code string, priceMinor int64) *db_models.Plan {
	t.Helper()
	plan := &db_models.Plan{
		Code:              code,
		Name:              code,
		PriceMinor:        priceMinor,
		Currency:          "usd",
		DurationDays:      30,
		StorageLimitBytes: 5 << 30,
		IsActive:          true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func seedGallery(t *testing.T, db *gorm.DB, ownerID uuid.UUID, planCode string) *db_models.Gallery {
	t.Helper()
	gallery := &db_models.Gallery{
		OwnerID:  ownerID,
		Title:    "Summer Wedding",
		State:    db_models.GalleryStateDraft,
		PlanCode: planCode,
	}
	if err := db.Create(gallery).Error; err != nil {
		t.Fatalf("seed gallery: %v", err)
	}
	return gallery
}
