package models

import "time"

type Product struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:150;not null"`
	StockCode string `gorm:"size:50;uniqueIndex"`
	Unit      string `gorm:"size:20;not null"` // kg, adet, koli vs.

	// Denormalize raf sayacı. Hareket defterinin toplamından her zaman yeniden
	// türetilebilir; sadece stok defteri ve mutabakat servisi günceller.
	StockQuantity int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}
