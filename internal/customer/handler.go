package customer

import (
	"fmt"
	"strings"
	"time"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/database"
	"imalat-backend/internal/models"
	"imalat-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

var errCustomerNotFound = &stock.DomainError{
	Code:    "CUSTOMER_NOT_FOUND",
	Message: "Müşteri bulunamadı",
	Status:  fiber.StatusNotFound,
}

type CustomerResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxNo   string `json:"tax_no"`
}

func toCustomerResponse(c models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
		TaxNo:   c.TaxNo,
	}
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxNo   string `json:"tax_no"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	TaxNo   *string `json:"tax_no"`
}

// GET /api/customers?q=
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Customer{}).Where("deleted_at IS NULL")

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("name ILIKE ?", "%"+q+"%")
		}

		var customers []models.Customer
		if err := dbq.Order("name asc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}

		res := make([]CustomerResponse, 0, len(customers))
		for _, m := range customers {
			res = append(res, toCustomerResponse(m))
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id
func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var m models.Customer
		if err := database.DB.Where("deleted_at IS NULL").First(&m, "id = ?", id).Error; err != nil {
			return errCustomerNotFound
		}
		return c.JSON(toCustomerResponse(m))
	}
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name zorunlu")
		}

		m := models.Customer{
			Name:    body.Name,
			Phone:   strings.TrimSpace(body.Phone),
			Email:   strings.TrimSpace(body.Email),
			Address: strings.TrimSpace(body.Address),
			TaxNo:   strings.TrimSpace(body.TaxNo),
		}
		if err := database.DB.Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri oluşturulamadı")
		}

		if userID, userName, err := audit.ActorInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    m.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Müşteri oluşturuldu: %s", m.Name),
				After:       m,
			})
		}

		return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(m))
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var m models.Customer
		if err := database.DB.Where("deleted_at IS NULL").First(&m, "id = ?", id).Error; err != nil {
			return errCustomerNotFound
		}
		before := m

		var body UpdateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name boş olamaz")
			}
			m.Name = name
		}
		if body.Phone != nil {
			m.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Email != nil {
			m.Email = strings.TrimSpace(*body.Email)
		}
		if body.Address != nil {
			m.Address = strings.TrimSpace(*body.Address)
		}
		if body.TaxNo != nil {
			m.TaxNo = strings.TrimSpace(*body.TaxNo)
		}

		err := database.DB.Model(&models.Customer{}).
			Where("id = ?", m.ID).
			Updates(map[string]interface{}{
				"name":    m.Name,
				"phone":   m.Phone,
				"email":   m.Email,
				"address": m.Address,
				"tax_no":  m.TaxNo,
			}).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri güncellenemedi")
		}

		if userID, userName, err := audit.ActorInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    m.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Müşteri güncellendi: %s", m.Name),
				Before:      before,
				After:       m,
			})
		}

		return c.JSON(toCustomerResponse(m))
	}
}

// DELETE /api/customers/:id
func DeleteCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var m models.Customer
		if err := database.DB.Where("deleted_at IS NULL").First(&m, "id = ?", id).Error; err != nil {
			return errCustomerNotFound
		}

		err := database.DB.Model(&models.Customer{}).
			Where("id = ?", m.ID).
			Update("deleted_at", time.Now()).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri silinemedi")
		}

		if userID, userName, err := audit.ActorInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    m.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Müşteri silindi: %s", m.Name),
				Before:      m,
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
