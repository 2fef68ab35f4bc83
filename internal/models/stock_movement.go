package models

import "time"

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReserve    MovementType = "RESERVE"
	MovementRelease    MovementType = "RELEASE"
)

// Hareketi doğuran belge türleri (reference_type değerleri)
const (
	ReferenceDelivery   = "delivery"
	ReferenceOrder      = "order"
	ReferenceAdjustment = "adjustment"
)

// StockMovement: Ürün başına işaretli miktar değişimi. Defter kaydı olarak
// eklenir, iş mantığı tarafından asla silinmez; bir belgeye bağlı kayıtlar
// düzeltme (ADJUSTMENT) hareketiyle etkisizleştirilir.
type StockMovement struct {
	ID           uint `gorm:"primaryKey"`
	ProductID    uint `gorm:"index;not null"`
	Product      Product
	Quantity     int          `gorm:"not null"` // işaretli; asla 0
	MovementType MovementType `gorm:"size:20;index;not null"`

	// Hareketi doğuran belge; ikisi birlikte dolu ya da birlikte boş.
	// Düzeltme sırasında temizlenir ("tüketilir"), satır silinmez.
	ReferenceType *string `gorm:"size:30;index:idx_stock_movements_ref"`
	ReferenceID   *uint   `gorm:"index:idx_stock_movements_ref"`

	CreatedBy uint   `gorm:"not null"`
	Notes     string `gorm:"size:255"`
	CreatedAt time.Time
}
