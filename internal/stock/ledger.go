package stock

import (
	"errors"

	"imalat-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementRef: Hareketi doğuran iş belgesi (ör: irsaliye #42)
type MovementRef struct {
	Type string
	ID   uint
}

// ApplyMovement: Ürüne işaretli bir stok hareketi uygular ve eklenen defter
// kaydını döner. Ürün satırı FOR UPDATE ile kilitlendikten sonra raf miktarı
// okunur; hareket kaydı ve sayaç güncellemesi aynı transaction içinde her
// zaman birlikte yazılır. Negatif hareket rafı sıfırın altına düşürecekse
// hiçbir şey yazılmaz.
func ApplyMovement(tx *gorm.DB, productID uint, quantity int, movementType models.MovementType, ref *MovementRef, actorID uint, notes string) (*models.StockMovement, error) {
	if quantity == 0 {
		return nil, ErrInvalidStockQuantity
	}
	if ref != nil && (ref.Type == "" || ref.ID == 0) {
		return nil, ErrInvalidReference
	}

	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("deleted_at IS NULL").
		First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if quantity < 0 && product.StockQuantity+quantity < 0 {
		return nil, ErrInsufficientStock
	}

	movement := models.StockMovement{
		ProductID:    productID,
		Quantity:     quantity,
		MovementType: movementType,
		CreatedBy:    actorID,
		Notes:        notes,
	}
	if ref != nil {
		movement.ReferenceType = &ref.Type
		movement.ReferenceID = &ref.ID
	}

	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}

	err = tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", product.StockQuantity+quantity).Error
	if err != nil {
		return nil, err
	}

	return &movement, nil
}
