package models

import "time"

// Customer: Sipariş ve irsaliyelerin bağlandığı cari hesap
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:150;not null"`
	Phone     string `gorm:"size:30"`
	Email     string `gorm:"size:100"`
	Address   string `gorm:"size:255"`
	TaxNo     string `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"` // tombstone; okuma yolları deleted_at IS NULL filtreler
}
