package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusKayit  OrderStatus = "KAYIT"
	OrderStatusUretim OrderStatus = "ÜRETİM"
	OrderStatusHazir  OrderStatus = "HAZIR"
	OrderStatusBitti  OrderStatus = "BİTTİ"
	OrderStatusIptal  OrderStatus = "İPTAL"
)

// Order: Müşteri siparişi. KAYIT/ÜRETİM/BİTTİ geçişleri sevkiyat hareketlerinden
// türetilir; HAZIR ve İPTAL dışarıdan set edilir.
type Order struct {
	ID         uint `gorm:"primaryKey"`
	CustomerID uint `gorm:"index;not null"`
	Customer   Customer
	Status     OrderStatus `gorm:"size:20;not null"`
	Currency   string      `gorm:"size:3;not null"`
	Notes      string      `gorm:"size:255"`

	Items       []OrderItem       `gorm:"foreignKey:OrderID"`
	CustomItems []CustomOrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}

// OrderItem: Teslimat takibinin yapıldığı sipariş satırı
type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int             `gorm:"not null"` // sipariş edilen miktar
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}

// CustomOrderItem: Katalogda olmayan, siparişe özel üretilen kalem.
// Ürün kaydı yoktur; teslimatı izlenir ama stok hareketi üretmez.
type CustomOrderItem struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"index;not null"`
	Description string `gorm:"size:255;not null"`
	Quantity    int    `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time `gorm:"index"`
}
