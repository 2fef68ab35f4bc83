package delivery

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"imalat-backend/internal/fulfillment"
	"imalat-backend/internal/models"
	"imalat-backend/internal/stock"

	"gorm.io/gorm"
)

// Service: İrsaliye yaşam döngüsünü yönetir. Her işlem tek transaction içinde
// belge satırlarını, stok defterini ve etkilenen sipariş durumlarını birlikte
// günceller; hata durumunda hiçbiri yazılmaz.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ItemInput struct {
	OrderItemID       *uint `json:"order_item_id"`
	CustomOrderItemID *uint `json:"custom_order_item_id"`
	DeliveredQuantity int   `json:"delivered_quantity"`
}

type CreateInput struct {
	CustomerID     uint
	Kind           models.DeliveryKind
	DeliveryNumber string
	DeliveryDate   time.Time
	Notes          string
	Items          []ItemInput
	ActorID        uint
}

type UpdateInput struct {
	DeliveryID     uint
	CustomerID     uint
	DeliveryNumber string
	DeliveryDate   time.Time
	Notes          string
	Items          []ItemInput
	ActorID        uint
}

// resolvedItem: Doğrulanmış irsaliye satırı. productID katalog kalemlerinde
// dolu, özel imalat kalemlerinde nil'dir (stok hareketi üretmezler).
type resolvedItem struct {
	input     ItemInput
	orderID   uint
	productID *uint
	ordered   int
	currency  string
}

func lineKey(it ItemInput) string {
	if it.OrderItemID != nil {
		return fmt.Sprintf("o:%d", *it.OrderItemID)
	}
	if it.CustomOrderItemID != nil {
		return fmt.Sprintf("c:%d", *it.CustomOrderItemID)
	}
	return ""
}

// itemSignature: Satır kümesinin sıra bağımsız özeti. Güncellemede imza
// değişmemişse stok defterine hiç dokunulmaz.
func itemSignature(items []ItemInput) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s=%d", lineKey(it), it.DeliveredQuantity))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// resolveItems: Satırları doğrular ve sipariş kalemleriyle eşler. XOR kuralı,
// pozitif miktar, tekrar eden kalem ve para birimi tutarlılığı burada denetlenir.
// ownQty, güncellenen irsaliyenin mevcut satırlarının kalem bazında katkısıdır;
// kapasite hesabında belge kendi eski katkısıyla yarışmasın diye düşülür.
func (s *Service) resolveItems(tx *gorm.DB, kind models.DeliveryKind, items []ItemInput, ownQty map[string]int) ([]resolvedItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyDelivery
	}

	seen := make(map[string]bool, len(items))
	resolved := make([]resolvedItem, 0, len(items))
	currency := ""

	for _, it := range items {
		if (it.OrderItemID == nil) == (it.CustomOrderItemID == nil) {
			return nil, ErrInvalidDeliveryItem
		}
		if it.DeliveredQuantity <= 0 {
			return nil, ErrInvalidDeliveredQuantity
		}
		key := lineKey(it)
		if seen[key] {
			return nil, ErrDuplicateDeliveryLine
		}
		seen[key] = true

		r := resolvedItem{input: it}
		if it.OrderItemID != nil {
			var oi models.OrderItem
			err := tx.Where("deleted_at IS NULL").First(&oi, "id = ?", *it.OrderItemID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrOrderItemNotFound
				}
				return nil, err
			}
			pid := oi.ProductID
			r.orderID = oi.OrderID
			r.productID = &pid
			r.ordered = oi.Quantity
			r.currency = oi.Currency
		} else {
			var ci models.CustomOrderItem
			err := tx.Where("deleted_at IS NULL").First(&ci, "id = ?", *it.CustomOrderItemID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrOrderItemNotFound
				}
				return nil, err
			}
			r.orderID = ci.OrderID
			r.ordered = ci.Quantity
			r.currency = ci.Currency
		}

		if currency == "" {
			currency = r.currency
		} else if r.currency != currency {
			return nil, ErrDeliveryCurrencyMismatch
		}

		net, err := fulfillment.NetDelivered(tx, fulfillment.LineRef{
			OrderItemID:       it.OrderItemID,
			CustomOrderItemID: it.CustomOrderItemID,
		})
		if err != nil {
			return nil, err
		}
		own := ownQty[key]

		remaining := fulfillment.Remaining(r.ordered, net, kind, own)
		if it.DeliveredQuantity > remaining {
			if kind == models.DeliveryKindReturn {
				return nil, ErrReturnQuantityExceedsDelivered
			}
			return nil, ErrDeliveredQuantityExceedsOrdered
		}

		resolved = append(resolved, r)
	}

	return resolved, nil
}

// movementFor: İrsaliye satırının stok defterine yazacağı hareket.
// Sevk stoktan düşer, iade stoka geri koyar.
func movementFor(kind models.DeliveryKind, qty int) (int, models.MovementType) {
	if kind == models.DeliveryKindReturn {
		return qty, models.MovementIn
	}
	return -qty, models.MovementOut
}

func (s *Service) applyItemMovements(tx *gorm.DB, deliveryID uint, kind models.DeliveryKind, items []resolvedItem, actorID uint) error {
	ref := &stock.MovementRef{Type: models.ReferenceDelivery, ID: deliveryID}
	for _, r := range items {
		if r.productID == nil {
			continue // özel imalat kalemi, stok takibi yok
		}
		qty, mt := movementFor(kind, r.input.DeliveredQuantity)
		notes := fmt.Sprintf("İrsaliye #%d", deliveryID)
		if _, err := stock.ApplyMovement(tx, *r.productID, qty, mt, ref, actorID, notes); err != nil {
			return err
		}
	}
	return nil
}

func recomputeOrders(tx *gorm.DB, orderIDs map[uint]bool) error {
	ids := make([]uint, 0, len(orderIDs))
	for id := range orderIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := fulfillment.RecomputeOrderStatus(tx, id); err != nil {
			return err
		}
	}
	return nil
}

// wrapUnexpected: İş kuralı hataları olduğu gibi yukarı taşınır; beklenmeyen
// hatalar loglanıp genel bir hata koduna çevrilir.
func wrapUnexpected(err error, fallback *stock.DomainError, op string) error {
	if err == nil {
		return nil
	}
	var de *stock.DomainError
	if errors.As(err, &de) {
		return err
	}
	log.Printf("irsaliye %s hatası: %v", op, err)
	return fallback
}

func (s *Service) Create(in CreateInput) (*models.Delivery, error) {
	if in.Kind != models.DeliveryKindDelivery && in.Kind != models.DeliveryKindReturn {
		return nil, ErrInvalidDeliveryKind
	}

	var created models.Delivery
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := tx.Where("deleted_at IS NULL").First(&customer, "id = ?", in.CustomerID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		var dup int64
		if err := tx.Model(&models.Delivery{}).
			Where("delivery_number = ? AND deleted_at IS NULL", in.DeliveryNumber).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateDeliveryNumber
		}

		resolved, err := s.resolveItems(tx, in.Kind, in.Items, nil)
		if err != nil {
			return err
		}

		created = models.Delivery{
			CustomerID:     in.CustomerID,
			Kind:           in.Kind,
			DeliveryNumber: in.DeliveryNumber,
			DeliveryDate:   in.DeliveryDate,
			Notes:          in.Notes,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		affected := make(map[uint]bool)
		for _, r := range resolved {
			item := models.DeliveryItem{
				DeliveryID:        created.ID,
				OrderItemID:       r.input.OrderItemID,
				CustomOrderItemID: r.input.CustomOrderItemID,
				DeliveredQuantity: r.input.DeliveredQuantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			affected[r.orderID] = true
		}

		if err := s.applyItemMovements(tx, created.ID, in.Kind, resolved, in.ActorID); err != nil {
			return err
		}

		return recomputeOrders(tx, affected)
	})
	if err != nil {
		return nil, wrapUnexpected(err, ErrDeliveryCreationFailed, "oluşturma")
	}
	return &created, nil
}

func (s *Service) Update(in UpdateInput) (*models.Delivery, error) {
	var updated models.Delivery
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Delivery
		err := tx.Where("deleted_at IS NULL").First(&existing, "id = ?", in.DeliveryID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeliveryNotFound
			}
			return err
		}

		var customer models.Customer
		err = tx.Where("deleted_at IS NULL").First(&customer, "id = ?", in.CustomerID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		var dup int64
		if err := tx.Model(&models.Delivery{}).
			Where("delivery_number = ? AND deleted_at IS NULL AND id <> ?", in.DeliveryNumber, existing.ID).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateDeliveryNumber
		}

		var currentItems []models.DeliveryItem
		if err := tx.Where("delivery_id = ? AND deleted_at IS NULL", existing.ID).Find(&currentItems).Error; err != nil {
			return err
		}

		currentInputs := make([]ItemInput, 0, len(currentItems))
		ownQty := make(map[string]int, len(currentItems))
		for _, it := range currentItems {
			inp := ItemInput{
				OrderItemID:       it.OrderItemID,
				CustomOrderItemID: it.CustomOrderItemID,
				DeliveredQuantity: it.DeliveredQuantity,
			}
			currentInputs = append(currentInputs, inp)
			ownQty[lineKey(inp)] = it.DeliveredQuantity
		}

		resolved, err := s.resolveItems(tx, existing.Kind, in.Items, ownQty)
		if err != nil {
			return err
		}

		headerUpdates := map[string]interface{}{
			"customer_id":     in.CustomerID,
			"delivery_number": in.DeliveryNumber,
			"delivery_date":   in.DeliveryDate,
			"notes":           in.Notes,
		}

		// Satır kümesi değişmediyse stok defterine dokunmadan sadece başlık
		// alanları güncellenir.
		if itemSignature(currentInputs) == itemSignature(in.Items) {
			if err := tx.Model(&models.Delivery{}).Where("id = ?", existing.ID).Updates(headerUpdates).Error; err != nil {
				return err
			}
			return tx.Where("deleted_at IS NULL").First(&updated, "id = ?", existing.ID).Error
		}

		// Eski hareketler geri alınır, yeni satır kümesi baştan uygulanır.
		if err := stock.Compensate(tx, models.ReferenceDelivery, existing.ID, in.ActorID); err != nil {
			return err
		}

		affected := make(map[uint]bool)
		for _, r := range resolved {
			affected[r.orderID] = true
		}

		newKeys := make(map[string]resolvedItem, len(resolved))
		for _, r := range resolved {
			newKeys[lineKey(r.input)] = r
		}

		now := time.Now()
		keptKeys := make(map[string]bool)
		for _, it := range currentItems {
			inp := ItemInput{OrderItemID: it.OrderItemID, CustomOrderItemID: it.CustomOrderItemID}
			key := lineKey(inp)

			// Kaldırılan satırın bağlı olduğu sipariş de yeniden hesaplanmalı
			if r, ok := orderIDOfItem(tx, it); ok {
				affected[r] = true
			}

			if nr, ok := newKeys[key]; ok {
				keptKeys[key] = true
				if nr.input.DeliveredQuantity != it.DeliveredQuantity {
					err := tx.Model(&models.DeliveryItem{}).
						Where("id = ?", it.ID).
						Update("delivered_quantity", nr.input.DeliveredQuantity).Error
					if err != nil {
						return err
					}
				}
			} else {
				err := tx.Model(&models.DeliveryItem{}).
					Where("id = ?", it.ID).
					Update("deleted_at", now).Error
				if err != nil {
					return err
				}
			}
		}

		for _, r := range resolved {
			if keptKeys[lineKey(r.input)] {
				continue
			}
			item := models.DeliveryItem{
				DeliveryID:        existing.ID,
				OrderItemID:       r.input.OrderItemID,
				CustomOrderItemID: r.input.CustomOrderItemID,
				DeliveredQuantity: r.input.DeliveredQuantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Delivery{}).Where("id = ?", existing.ID).Updates(headerUpdates).Error; err != nil {
			return err
		}

		if err := s.applyItemMovements(tx, existing.ID, existing.Kind, resolved, in.ActorID); err != nil {
			return err
		}

		if err := recomputeOrders(tx, affected); err != nil {
			return err
		}

		return tx.Where("deleted_at IS NULL").First(&updated, "id = ?", existing.ID).Error
	})
	if err != nil {
		return nil, wrapUnexpected(err, ErrDeliveryUpdateFailed, "güncelleme")
	}
	return &updated, nil
}

// Remove: İrsaliyeyi tombstone'lar, hareketlerini düzeltme kayıtlarıyla geri
// alır ve etkilenen sipariş durumlarını yeniden türetir. Defter geçmişi kalır.
func (s *Service) Remove(deliveryID uint, actorID uint) (*models.Delivery, error) {
	var removed models.Delivery
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("deleted_at IS NULL").First(&removed, "id = ?", deliveryID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeliveryNotFound
			}
			return err
		}

		var items []models.DeliveryItem
		if err := tx.Where("delivery_id = ? AND deleted_at IS NULL", removed.ID).Find(&items).Error; err != nil {
			return err
		}

		affected := make(map[uint]bool)
		for _, it := range items {
			if oid, ok := orderIDOfItem(tx, it); ok {
				affected[oid] = true
			}
		}

		if err := stock.Compensate(tx, models.ReferenceDelivery, removed.ID, actorID); err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.DeliveryItem{}).
			Where("delivery_id = ? AND deleted_at IS NULL", removed.ID).
			Update("deleted_at", now).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.Delivery{}).
			Where("id = ?", removed.ID).
			Update("deleted_at", now).Error
		if err != nil {
			return err
		}

		return recomputeOrders(tx, affected)
	})
	if err != nil {
		return nil, wrapUnexpected(err, ErrDeliveryRemovalFailed, "silme")
	}
	return &removed, nil
}

func orderIDOfItem(tx *gorm.DB, it models.DeliveryItem) (uint, bool) {
	if it.OrderItemID != nil {
		var oi models.OrderItem
		if err := tx.First(&oi, "id = ?", *it.OrderItemID).Error; err == nil {
			return oi.OrderID, true
		}
		return 0, false
	}
	if it.CustomOrderItemID != nil {
		var ci models.CustomOrderItem
		if err := tx.First(&ci, "id = ?", *it.CustomOrderItemID).Error; err == nil {
			return ci.OrderID, true
		}
	}
	return 0, false
}
