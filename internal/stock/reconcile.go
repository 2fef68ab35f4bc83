package stock

import (
	"errors"

	"imalat-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IntegrityRow: Raf sayacı ile defter toplamı uyuşmayan bir ürün
type IntegrityRow struct {
	ProductID uint   `json:"product_id"`
	StockCode string `json:"code"`
	Name      string `json:"name"`
	Shelf     int    `json:"shelf"`
	Ledger    int    `json:"ledger"`
	Diff      int    `json:"diff"`
}

// IntegrityReport: Aktif ürünler için defter toplamını hesaplar, raf sayacından
// sapanları döner. Belge transaction'larından bağımsız, salt okunur bir kontrol.
func IntegrityReport(db *gorm.DB) ([]IntegrityRow, error) {
	rows := make([]IntegrityRow, 0)
	err := db.Raw(`
		SELECT p.id AS product_id, p.stock_code, p.name,
		       p.stock_quantity AS shelf,
		       COALESCE(SUM(m.quantity), 0) AS ledger,
		       COALESCE(SUM(m.quantity), 0) - p.stock_quantity AS diff
		FROM products p
		LEFT JOIN stock_movements m ON m.product_id = p.id
		WHERE p.deleted_at IS NULL
		GROUP BY p.id, p.stock_code, p.name, p.stock_quantity
		HAVING COALESCE(SUM(m.quantity), 0) <> p.stock_quantity
		ORDER BY p.id`).Scan(&rows).Error
	return rows, err
}

// ReconcileProduct: Tek ürünün raf sayacını defter toplamına eşitler.
// Defter her zaman doğruluk kaynağıdır; sayaç ondan türetilen bir cache'tir.
// Kendi transaction'ında, ApplyMovement ile aynı kilit disiplinini uygular.
func ReconcileProduct(db *gorm.DB, productID uint) (bool, error) {
	fixed := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("deleted_at IS NULL").
			First(&product, "id = ?", productID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var ledgerSum int
		if err := tx.Model(&models.StockMovement{}).
			Where("product_id = ?", productID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&ledgerSum).Error; err != nil {
			return err
		}

		if ledgerSum == product.StockQuantity {
			return nil
		}

		fixed = true
		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("stock_quantity", ledgerSum).Error
	})
	return fixed, err
}

// ReconcileAll: Tüm aktif ürünleri tek tek mutabık kılar, düzeltilen ürün
// sayısını döner. Zaten tutarlı bir stokta tekrar çalıştırmak no-op'tur.
func ReconcileAll(db *gorm.DB) (int, error) {
	var ids []uint
	if err := db.Model(&models.Product{}).
		Where("deleted_at IS NULL").
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	fixedCount := 0
	for _, id := range ids {
		fixed, err := ReconcileProduct(db, id)
		if err != nil {
			return fixedCount, err
		}
		if fixed {
			fixedCount++
		}
	}
	return fixedCount, nil
}
