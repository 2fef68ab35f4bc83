package delivery

import (
	"fmt"
	"time"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/database"
	"imalat-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ItemResponse struct {
	ID                uint   `json:"id"`
	OrderItemID       *uint  `json:"order_item_id"`
	CustomOrderItemID *uint  `json:"custom_order_item_id"`
	ProductName       string `json:"product_name,omitempty"`
	Description       string `json:"description,omitempty"`
	DeliveredQuantity int    `json:"delivered_quantity"`
}

type DeliveryResponse struct {
	ID             uint           `json:"id"`
	CustomerID     uint           `json:"customer_id"`
	CustomerName   string         `json:"customer_name"`
	Kind           string         `json:"kind"`
	DeliveryNumber string         `json:"delivery_number"`
	DeliveryDate   string         `json:"delivery_date"`
	Notes          string         `json:"notes"`
	Items          []ItemResponse `json:"items"`
	CreatedAt      string         `json:"created_at"`
}

func toDeliveryResponse(d models.Delivery) DeliveryResponse {
	items := make([]ItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		if it.DeletedAt != nil {
			continue
		}
		resp := ItemResponse{
			ID:                it.ID,
			OrderItemID:       it.OrderItemID,
			CustomOrderItemID: it.CustomOrderItemID,
			DeliveredQuantity: it.DeliveredQuantity,
		}
		if it.OrderItem != nil {
			resp.ProductName = it.OrderItem.Product.Name
		}
		if it.CustomOrderItem != nil {
			resp.Description = it.CustomOrderItem.Description
		}
		items = append(items, resp)
	}
	return DeliveryResponse{
		ID:             d.ID,
		CustomerID:     d.CustomerID,
		CustomerName:   d.Customer.Name,
		Kind:           string(d.Kind),
		DeliveryNumber: d.DeliveryNumber,
		DeliveryDate:   d.DeliveryDate.Format("2006-01-02"),
		Notes:          d.Notes,
		Items:          items,
		CreatedAt:      d.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type createDeliveryRequest struct {
	CustomerID     uint        `json:"customer_id"`
	Kind           string      `json:"kind"`
	DeliveryNumber string      `json:"delivery_number"`
	DeliveryDate   string      `json:"delivery_date"`
	Notes          string      `json:"notes"`
	Items          []ItemInput `json:"items"`
}

func parseDeliveryDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

// POST /api/deliveries
func CreateDeliveryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createDeliveryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.CustomerID == 0 || body.DeliveryNumber == "" {
			return fiber.NewError(fiber.StatusBadRequest, "customer_id ve delivery_number zorunlu")
		}
		date, err := parseDeliveryDate(body.DeliveryDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "delivery_date formatı YYYY-AA-GG olmalı")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		created, err := svc.Create(CreateInput{
			CustomerID:     body.CustomerID,
			Kind:           models.DeliveryKind(body.Kind),
			DeliveryNumber: body.DeliveryNumber,
			DeliveryDate:   date,
			Notes:          body.Notes,
			Items:          body.Items,
			ActorID:        userID,
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "delivery",
			EntityID:    created.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("İrsaliye oluşturuldu: %s (%s)", created.DeliveryNumber, created.Kind),
			After:       created,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": created.ID})
	}
}

type updateDeliveryRequest struct {
	CustomerID     uint        `json:"customer_id"`
	Kind           string      `json:"kind"`
	DeliveryNumber string      `json:"delivery_number"`
	DeliveryDate   string      `json:"delivery_date"`
	Notes          string      `json:"notes"`
	Items          []ItemInput `json:"items"`
}

// PUT /api/deliveries/:id
func UpdateDeliveryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz irsaliye ID")
		}

		var body updateDeliveryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.CustomerID == 0 || body.DeliveryNumber == "" {
			return fiber.NewError(fiber.StatusBadRequest, "customer_id ve delivery_number zorunlu")
		}
		date, err := parseDeliveryDate(body.DeliveryDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "delivery_date formatı YYYY-AA-GG olmalı")
		}

		// Tür gövdede gönderildiyse mevcut türle aynı olmalı
		if body.Kind != "" {
			var existing models.Delivery
			if err := database.DB.Where("deleted_at IS NULL").First(&existing, "id = ?", id).Error; err != nil {
				return ErrDeliveryNotFound
			}
			if models.DeliveryKind(body.Kind) != existing.Kind {
				return ErrDeliveryKindChangeNotAllowed
			}
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		updated, err := svc.Update(UpdateInput{
			DeliveryID:     uint(id),
			CustomerID:     body.CustomerID,
			DeliveryNumber: body.DeliveryNumber,
			DeliveryDate:   date,
			Notes:          body.Notes,
			Items:          body.Items,
			ActorID:        userID,
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "delivery",
			EntityID:    updated.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("İrsaliye güncellendi: %s", updated.DeliveryNumber),
			After:       updated,
		})

		return c.JSON(fiber.Map{"success": true})
	}
}

// DELETE /api/deliveries/:id
func RemoveDeliveryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz irsaliye ID")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		removed, err := svc.Remove(uint(id), userID)
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "delivery",
			EntityID:    removed.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("İrsaliye silindi: %s", removed.DeliveryNumber),
			Before:      removed,
		})

		return c.JSON(fiber.Map{"success": true})
	}
}

// GET /api/deliveries?customer_id=&kind=&page=&limit=
func ListDeliveriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		dbq := database.DB.Model(&models.Delivery{}).Where("deliveries.deleted_at IS NULL")
		if cid := c.QueryInt("customer_id", 0); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}
		if kind := c.Query("kind"); kind != "" {
			dbq = dbq.Where("kind = ?", kind)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İrsaliyeler sayılamadı")
		}

		var deliveries []models.Delivery
		err := dbq.
			Preload("Customer").
			Preload("Items", "deleted_at IS NULL").
			Preload("Items.OrderItem.Product").
			Preload("Items.CustomOrderItem").
			Order("id DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&deliveries).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İrsaliyeler listelenemedi")
		}

		data := make([]DeliveryResponse, 0, len(deliveries))
		for _, d := range deliveries {
			data = append(data, toDeliveryResponse(d))
		}

		return c.JSON(fiber.Map{"data": data, "total": total})
	}
}

// GET /api/deliveries/:id
func GetDeliveryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz irsaliye ID")
		}

		var d models.Delivery
		err = database.DB.
			Where("deliveries.deleted_at IS NULL").
			Preload("Customer").
			Preload("Items", "deleted_at IS NULL").
			Preload("Items.OrderItem.Product").
			Preload("Items.CustomOrderItem").
			First(&d, "deliveries.id = ?", id).Error
		if err != nil {
			return ErrDeliveryNotFound
		}

		return c.JSON(toDeliveryResponse(d))
	}
}
