package fulfillment

import (
	"imalat-backend/internal/models"

	"gorm.io/gorm"
)

// LineRef: Bir sevkiyat satırının bağlandığı sipariş kalemi. İki alandan
// tam olarak biri dolu olur.
type LineRef struct {
	OrderItemID       *uint
	CustomOrderItemID *uint
}

// SignedQuantity: Sevkiyat satırının net teslimata katkısı. DELIVERY pozitif,
// RETURN negatif sayılır.
func SignedQuantity(kind models.DeliveryKind, quantity int) int {
	if kind == models.DeliveryKindReturn {
		return -quantity
	}
	return quantity
}

// NetDelivered: Kalemin silinmemiş sevkiyat belgeleri üzerinden net teslim
// edilen miktarı. İade satırları düşülür.
func NetDelivered(tx *gorm.DB, ref LineRef) (int, error) {
	q := tx.Model(&models.DeliveryItem{}).
		Joins("JOIN deliveries ON deliveries.id = delivery_items.delivery_id").
		Where("delivery_items.deleted_at IS NULL").
		Where("deliveries.deleted_at IS NULL")

	if ref.OrderItemID != nil {
		q = q.Where("delivery_items.order_item_id = ?", *ref.OrderItemID)
	} else if ref.CustomOrderItemID != nil {
		q = q.Where("delivery_items.custom_order_item_id = ?", *ref.CustomOrderItemID)
	} else {
		return 0, nil
	}

	var net int
	err := q.Select(`COALESCE(SUM(CASE WHEN deliveries.kind = ?
		THEN -delivery_items.delivered_quantity
		ELSE delivery_items.delivered_quantity END), 0)`, models.DeliveryKindReturn).
		Scan(&net).Error
	return net, err
}

// Remaining: Belgenin türüne göre kalemde hâlâ hareket ettirilebilecek miktar.
// Sevkte sipariş miktarının teslim edilmemiş kısmı, iadede net teslim edilmiş
// miktar kadar kapasite vardır. Güncelleme akışında belgenin kendi mevcut
// satırı excludingOwnQty ile toplamdan düşülür ki belge kendi eski katkısıyla
// yarışmasın. Fazla iade net toplamı negatife çekebilir; kalan miktar sıfırın
// altına inmez.
func Remaining(orderedQty, netDelivered int, kind models.DeliveryKind, excludingOwnQty int) int {
	netExcludingSelf := netDelivered - SignedQuantity(kind, excludingOwnQty)

	var remaining int
	if kind == models.DeliveryKindReturn {
		remaining = netExcludingSelf
	} else {
		remaining = orderedQty - netExcludingSelf
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}
