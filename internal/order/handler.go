package order

import (
	"errors"
	"fmt"
	"time"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/database"
	"imalat-backend/internal/fulfillment"
	"imalat-backend/internal/models"
	"imalat-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	errOrderNotFound = &stock.DomainError{
		Code:    "ORDER_NOT_FOUND",
		Message: "Sipariş bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	errInvalidOrderStatus = &stock.DomainError{
		Code:    "INVALID_ORDER_STATUS",
		Message: "Bu uçtan sadece HAZIR ve İPTAL durumları atanabilir",
		Status:  fiber.StatusBadRequest,
	}
	errOrderHasDeliveries = &stock.DomainError{
		Code:    "ORDER_HAS_DELIVERIES",
		Message: "Siparişe bağlı aktif irsaliye kalemleri var; önce irsaliyeleri silin",
		Status:  fiber.StatusConflict,
	}
	errOrderCurrencyMismatch = &stock.DomainError{
		Code:    "ORDER_CURRENCY_MISMATCH",
		Message: "Sipariş kalemleri tek para biriminde olmalı",
		Status:  fiber.StatusBadRequest,
	}
)

type ItemRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
}

type CustomItemRequest struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Currency    string `json:"currency"`
}

type CreateOrderRequest struct {
	CustomerID  uint                `json:"customer_id"`
	Currency    string              `json:"currency"`
	Notes       string              `json:"notes"`
	Items       []ItemRequest       `json:"items"`
	CustomItems []CustomItemRequest `json:"custom_items"`
}

type ItemResponse struct {
	ID           uint   `json:"id"`
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Currency     string `json:"currency"`
	NetDelivered int    `json:"net_delivered"`
	Remaining    int    `json:"remaining"`
}

type CustomItemResponse struct {
	ID           uint   `json:"id"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Currency     string `json:"currency"`
	NetDelivered int    `json:"net_delivered"`
	Remaining    int    `json:"remaining"`
}

type OrderResponse struct {
	ID           uint                 `json:"id"`
	CustomerID   uint                 `json:"customer_id"`
	CustomerName string               `json:"customer_name"`
	Status       string               `json:"status"`
	Currency     string               `json:"currency"`
	Notes        string               `json:"notes"`
	Items        []ItemResponse       `json:"items,omitempty"`
	CustomItems  []CustomItemResponse `json:"custom_items,omitempty"`
	CreatedAt    string               `json:"created_at"`
}

func parsePrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// POST /api/orders
// Yeni sipariş KAYIT durumunda açılır; ÜRETİM/BİTTİ geçişleri irsaliye
// akışından türetilir.
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if body.CustomerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "customer_id zorunlu")
		}
		if len(body.Items) == 0 && len(body.CustomItems) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Sipariş en az bir kalem içermeli")
		}
		if body.Currency == "" {
			body.Currency = "TRY"
		}

		for _, it := range body.Items {
			if it.ProductID == 0 || it.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Kalemde product_id ve pozitif quantity zorunlu")
			}
			if it.Currency != "" && it.Currency != body.Currency {
				return errOrderCurrencyMismatch
			}
		}
		for _, it := range body.CustomItems {
			if it.Description == "" || it.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Özel kalemde description ve pozitif quantity zorunlu")
			}
			if it.Currency != "" && it.Currency != body.Currency {
				return errOrderCurrencyMismatch
			}
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		var order models.Order
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var customer models.Customer
			if err := tx.Where("deleted_at IS NULL").First(&customer, "id = ?", body.CustomerID).Error; err != nil {
				return &stock.DomainError{Code: "CUSTOMER_NOT_FOUND", Message: "Müşteri bulunamadı", Status: fiber.StatusNotFound}
			}

			order = models.Order{
				CustomerID: body.CustomerID,
				Status:     models.OrderStatusKayit,
				Currency:   body.Currency,
				Notes:      body.Notes,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}

			for _, it := range body.Items {
				var p models.Product
				if err := tx.Where("deleted_at IS NULL").First(&p, "id = ?", it.ProductID).Error; err != nil {
					return stock.ErrProductNotFound
				}
				price, err := parsePrice(it.UnitPrice)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "unit_price geçersiz")
				}
				item := models.OrderItem{
					OrderID:   order.ID,
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
					UnitPrice: price,
					Currency:  body.Currency,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			for _, it := range body.CustomItems {
				price, err := parsePrice(it.UnitPrice)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "unit_price geçersiz")
				}
				item := models.CustomOrderItem{
					OrderID:     order.ID,
					Description: it.Description,
					Quantity:    it.Quantity,
					UnitPrice:   price,
					Currency:    body.Currency,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			var de *stock.DomainError
			var fe *fiber.Error
			if errors.As(err, &de) || errors.As(err, &fe) {
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş oluşturulamadı")
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sipariş oluşturuldu: #%d", order.ID),
			After:       order,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": order.ID})
	}
}

// GET /api/orders?customer_id=&status=&page=&limit=
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		dbq := database.DB.Model(&models.Order{}).Where("orders.deleted_at IS NULL")
		if cid := c.QueryInt("customer_id", 0); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}
		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler sayılamadı")
		}

		var orders []models.Order
		err := dbq.
			Preload("Customer").
			Order("id DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&orders).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler listelenemedi")
		}

		data := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			data = append(data, OrderResponse{
				ID:           o.ID,
				CustomerID:   o.CustomerID,
				CustomerName: o.Customer.Name,
				Status:       string(o.Status),
				Currency:     o.Currency,
				Notes:        o.Notes,
				CreatedAt:    o.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{"data": data, "total": total})
	}
}

// GET /api/orders/:id
// Kalem bazında net teslim edilen ve kalan miktarlar teslimat defterinden
// hesaplanıp yanıta eklenir.
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş ID")
		}

		var o models.Order
		err = database.DB.
			Where("orders.deleted_at IS NULL").
			Preload("Customer").
			Preload("Items", "deleted_at IS NULL").
			Preload("Items.Product").
			Preload("CustomItems", "deleted_at IS NULL").
			First(&o, "orders.id = ?", id).Error
		if err != nil {
			return errOrderNotFound
		}

		resp := OrderResponse{
			ID:           o.ID,
			CustomerID:   o.CustomerID,
			CustomerName: o.Customer.Name,
			Status:       string(o.Status),
			Currency:     o.Currency,
			Notes:        o.Notes,
			CreatedAt:    o.CreatedAt.Format("2006-01-02 15:04:05"),
		}

		for i := range o.Items {
			itemID := o.Items[i].ID
			net, err := fulfillment.NetDelivered(database.DB, fulfillment.LineRef{OrderItemID: &itemID})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Teslimat durumu hesaplanamadı")
			}
			remaining := o.Items[i].Quantity - net
			if remaining < 0 {
				remaining = 0
			}
			resp.Items = append(resp.Items, ItemResponse{
				ID:           itemID,
				ProductID:    o.Items[i].ProductID,
				ProductName:  o.Items[i].Product.Name,
				Quantity:     o.Items[i].Quantity,
				UnitPrice:    o.Items[i].UnitPrice.StringFixed(2),
				Currency:     o.Items[i].Currency,
				NetDelivered: net,
				Remaining:    remaining,
			})
		}
		for i := range o.CustomItems {
			itemID := o.CustomItems[i].ID
			net, err := fulfillment.NetDelivered(database.DB, fulfillment.LineRef{CustomOrderItemID: &itemID})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Teslimat durumu hesaplanamadı")
			}
			remaining := o.CustomItems[i].Quantity - net
			if remaining < 0 {
				remaining = 0
			}
			resp.CustomItems = append(resp.CustomItems, CustomItemResponse{
				ID:           itemID,
				Description:  o.CustomItems[i].Description,
				Quantity:     o.CustomItems[i].Quantity,
				UnitPrice:    o.CustomItems[i].UnitPrice.StringFixed(2),
				Currency:     o.CustomItems[i].Currency,
				NetDelivered: net,
				Remaining:    remaining,
			})
		}

		return c.JSON(resp)
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// PUT /api/orders/:id/status
// Sadece dışarıdan atanan durumlar kabul edilir: HAZIR ve İPTAL.
// KAYIT/ÜRETİM/BİTTİ teslimat defterinden türetilir, elle set edilemez.
func UpdateOrderStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş ID")
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		next := models.OrderStatus(body.Status)
		if next != models.OrderStatusHazir && next != models.OrderStatusIptal {
			return errInvalidOrderStatus
		}

		var o models.Order
		if err := database.DB.Where("deleted_at IS NULL").First(&o, "id = ?", id).Error; err != nil {
			return errOrderNotFound
		}
		before := o

		err = database.DB.Model(&models.Order{}).
			Where("id = ?", o.ID).
			Update("status", next).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş durumu güncellenemedi")
		}
		o.Status = next

		if userID, userName, err := audit.ActorInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "order",
				EntityID:    o.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Sipariş durumu değişti: #%d → %s", o.ID, next),
				Before:      before,
				After:       o,
			})
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// DELETE /api/orders/:id
// Kalemlerine bağlı aktif irsaliye satırı varken sipariş silinemez; önce
// irsaliyeler kaldırılmalı ki defter ve türetilmiş durumlar tutarlı kalsın.
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş ID")
		}

		var o models.Order
		if err := database.DB.Where("deleted_at IS NULL").First(&o, "id = ?", id).Error; err != nil {
			return errOrderNotFound
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var linked int64
			err := tx.Model(&models.DeliveryItem{}).
				Joins("JOIN deliveries ON deliveries.id = delivery_items.delivery_id").
				Where("delivery_items.deleted_at IS NULL AND deliveries.deleted_at IS NULL").
				Where(`delivery_items.order_item_id IN (SELECT id FROM order_items WHERE order_id = ?)
					OR delivery_items.custom_order_item_id IN (SELECT id FROM custom_order_items WHERE order_id = ?)`,
					o.ID, o.ID).
				Count(&linked).Error
			if err != nil {
				return err
			}
			if linked > 0 {
				return errOrderHasDeliveries
			}

			now := time.Now()
			if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", o.ID).Update("deleted_at", now).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.CustomOrderItem{}).Where("order_id = ?", o.ID).Update("deleted_at", now).Error; err != nil {
				return err
			}
			return tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("deleted_at", now).Error
		})
		if err != nil {
			var de *stock.DomainError
			if errors.As(err, &de) {
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş silinemedi")
		}

		if userID, userName, err := audit.ActorInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "order",
				EntityID:    o.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Sipariş silindi: #%d", o.ID),
				Before:      o,
			})
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
