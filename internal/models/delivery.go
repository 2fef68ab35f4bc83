package models

import "time"

type DeliveryKind string

const (
	DeliveryKindDelivery DeliveryKind = "DELIVERY"
	DeliveryKindReturn   DeliveryKind = "RETURN"
)

// Delivery: İrsaliye (sevk veya iade). Kind, kalemlerin net teslim katkısının
// işaretini belirler ve oluşturulduktan sonra değiştirilemez. Silme işlemi
// satırı kaldırmaz, tombstone koyar.
type Delivery struct {
	ID             uint `gorm:"primaryKey"`
	CustomerID     uint `gorm:"index;not null"`
	Customer       Customer
	Kind           DeliveryKind `gorm:"size:10;not null"`
	// Belge numarası aktif irsaliyeler arasında tekil; tombstone'lanmış bir
	// irsaliyenin numarası yeniden kullanılabilir.
	DeliveryNumber string       `gorm:"size:50;not null;uniqueIndex:idx_deliveries_number,where:deleted_at IS NULL"`
	DeliveryDate   time.Time    `gorm:"index;not null"`
	Notes          string       `gorm:"size:255"`

	Items []DeliveryItem `gorm:"foreignKey:DeliveryID"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}

// DeliveryItem: İrsaliye kalemi. order_item_id ile custom_order_item_id
// alanlarından tam olarak biri dolu olmalı.
type DeliveryItem struct {
	ID         uint `gorm:"primaryKey"`
	DeliveryID uint `gorm:"index;not null"`

	OrderItemID       *uint `gorm:"index"`
	OrderItem         *OrderItem
	CustomOrderItemID *uint `gorm:"index"`
	CustomOrderItem   *CustomOrderItem

	DeliveredQuantity int `gorm:"not null"` // her zaman > 0; işaret irsaliyenin kind'ından türetilir

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}
