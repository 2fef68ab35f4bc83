package stock

import (
	"fmt"
	"os"
	"testing"
	"time"

	"imalat-backend/internal/database"
	"imalat-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("IMALAT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("IMALAT_TEST_DATABASE_DSN tanımlı değil, entegrasyon testi atlandı")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	p := models.Product{
		Name:      fmt.Sprintf("Test Ürün %d", time.Now().UnixNano()),
		StockCode: fmt.Sprintf("TST-%d", time.Now().UnixNano()),
		Unit:      "adet",
	}
	require.NoError(t, db.Create(&p).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM stock_movements WHERE product_id = ?", p.ID)
		db.Exec("DELETE FROM products WHERE id = ?", p.ID)
	})
	return &p
}

func shelfQuantity(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", productID).Error)
	return p.StockQuantity
}

func TestApplyMovementValidation(t *testing.T) {
	db := testDB(t)
	p := createTestProduct(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, 0, models.MovementAdjustment, nil, 1, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidStockQuantity)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, 5, models.MovementIn, &MovementRef{Type: "delivery"}, 1, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidReference)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, 0, 5, models.MovementIn, nil, 1, "")
		return err
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestApplyMovementUpdatesShelfAndLedger(t *testing.T) {
	db := testDB(t)
	p := createTestProduct(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, 10, models.MovementIn, nil, 1, "giriş")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 10, shelfQuantity(t, db, p.ID))

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, -4, models.MovementOut, nil, 1, "çıkış")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 6, shelfQuantity(t, db, p.ID))

	var ledgerSum int
	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("product_id = ?", p.ID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&ledgerSum).Error)
	assert.Equal(t, 6, ledgerSum, "raf sayacı defter toplamına eşit olmalı")
}

func TestApplyMovementRejectsNegativeShelf(t *testing.T) {
	db := testDB(t)
	p := createTestProduct(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, 3, models.MovementIn, nil, 1, "")
		return err
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, -4, models.MovementOut, nil, 1, "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, shelfQuantity(t, db, p.ID), "reddedilen hareket hiçbir şey yazmamalı")

	var count int64
	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("product_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCompensateIsIdempotent(t *testing.T) {
	db := testDB(t)
	p := createTestProduct(t, db)

	refID := uint(time.Now().UnixNano() % 1_000_000_000)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if _, err := ApplyMovement(tx, p.ID, 20, models.MovementIn, nil, 1, ""); err != nil {
			return err
		}
		ref := &MovementRef{Type: models.ReferenceDelivery, ID: refID}
		if _, err := ApplyMovement(tx, p.ID, -8, models.MovementOut, ref, 1, ""); err != nil {
			return err
		}
		_, err := ApplyMovement(tx, p.ID, -2, models.MovementOut, ref, 1, "")
		return err
	}))
	assert.Equal(t, 10, shelfQuantity(t, db, p.ID))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Compensate(tx, models.ReferenceDelivery, refID, 1)
	}))
	assert.Equal(t, 20, shelfQuantity(t, db, p.ID), "düzeltme sonrası raf eski haline dönmeli")

	var linked int64
	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("reference_type = ? AND reference_id = ?", models.ReferenceDelivery, refID).
		Count(&linked).Error)
	assert.Zero(t, linked, "referans çifti tüketilmiş olmalı")

	var before int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", p.ID).Count(&before).Error)

	// İkinci çağrı no-op
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Compensate(tx, models.ReferenceDelivery, refID, 1)
	}))
	var after int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", p.ID).Count(&after).Error)
	assert.Equal(t, before, after)
	assert.Equal(t, 20, shelfQuantity(t, db, p.ID))
}

func TestReconcileFixesCorruptedShelf(t *testing.T) {
	db := testDB(t)
	p := createTestProduct(t, db)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyMovement(tx, p.ID, 12, models.MovementIn, nil, 1, "")
		return err
	}))

	// Sayaç defter dışı bir yoldan bozuluyor
	require.NoError(t, db.Exec("UPDATE products SET stock_quantity = 99 WHERE id = ?", p.ID).Error)

	report, err := IntegrityReport(db)
	require.NoError(t, err)
	found := false
	for _, row := range report {
		if row.ProductID == p.ID {
			found = true
			assert.Equal(t, 99, row.Shelf)
			assert.Equal(t, 12, row.Ledger)
			assert.Equal(t, -87, row.Diff)
		}
	}
	assert.True(t, found, "bozuk ürün raporda görünmeli")

	fixed, err := ReconcileProduct(db, p.ID)
	require.NoError(t, err)
	assert.True(t, fixed)
	assert.Equal(t, 12, shelfQuantity(t, db, p.ID))

	// Tutarlı stokta ikinci çalıştırma no-op
	fixed, err = ReconcileProduct(db, p.ID)
	require.NoError(t, err)
	assert.False(t, fixed)
}
