package fulfillment

import (
	"errors"

	"imalat-backend/internal/models"

	"gorm.io/gorm"
)

// Line: Durum hesabı için bir sipariş kaleminin özeti
type Line struct {
	Ordered      int
	NetDelivered int
}

// AllFulfilled: Tüm kalemlerin net teslimatı sipariş miktarına ulaştı mı?
// Kalemsiz sipariş tamamlanmış sayılmaz.
func AllFulfilled(lines []Line) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		if l.NetDelivered < l.Ordered {
			return false
		}
	}
	return true
}

// RecomputeOrderStatus: Siparişin türetilmiş durumunu teslimat defterinden
// yeniden hesaplar. Tüm kalemler karşılandıysa BİTTİ, değilse ÜRETİM yazılır.
// İPTAL edilmiş siparişlere dokunulmaz; HAZIR dahil diğer durumlar türetilmiş
// sonuçla ezilir. Silinmiş ya da bulunamayan sipariş sessizce atlanır.
func RecomputeOrderStatus(tx *gorm.DB, orderID uint) error {
	var order models.Order
	err := tx.Where("deleted_at IS NULL").First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if order.Status == models.OrderStatusIptal {
		return nil
	}

	var items []models.OrderItem
	if err := tx.Where("order_id = ? AND deleted_at IS NULL", orderID).Find(&items).Error; err != nil {
		return err
	}
	var customItems []models.CustomOrderItem
	if err := tx.Where("order_id = ? AND deleted_at IS NULL", orderID).Find(&customItems).Error; err != nil {
		return err
	}

	lines := make([]Line, 0, len(items)+len(customItems))
	for i := range items {
		id := items[i].ID
		net, err := NetDelivered(tx, LineRef{OrderItemID: &id})
		if err != nil {
			return err
		}
		lines = append(lines, Line{Ordered: items[i].Quantity, NetDelivered: net})
	}
	for i := range customItems {
		id := customItems[i].ID
		net, err := NetDelivered(tx, LineRef{CustomOrderItemID: &id})
		if err != nil {
			return err
		}
		lines = append(lines, Line{Ordered: customItems[i].Quantity, NetDelivered: net})
	}

	next := models.OrderStatusUretim
	if AllFulfilled(lines) {
		next = models.OrderStatusBitti
	}
	if next == order.Status {
		return nil
	}

	return tx.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", next).Error
}
