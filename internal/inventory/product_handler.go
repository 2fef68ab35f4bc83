package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/database"
	"imalat-backend/internal/models"
	"imalat-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	StockCode     string `json:"stock_code"`
	StockQuantity int    `json:"stock_quantity"`
}

func toProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Unit:          p.Unit,
		StockCode:     p.StockCode,
		StockQuantity: p.StockQuantity,
	}
}

type CreateProductRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	StockCode    string `json:"stock_code"`
	OpeningStock int    `json:"opening_stock"` // Opsiyonel; açılış stoğu deftere IN olarak yazılır
}

type UpdateProductRequest struct {
	Name      *string `json:"name"`
	Unit      *string `json:"unit"`
	StockCode *string `json:"stock_code"`
}

// GET /api/products?q=
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{}).Where("deleted_at IS NULL")

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("name ILIKE ? OR stock_code ILIKE ?", like, like)
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(res)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, "id = ?", id).Error; err != nil {
			return stock.ErrProductNotFound
		}
		return c.JSON(toProductResponse(p))
	}
}

// POST /api/products
// Açılış stoğu verildiyse ürün kaydı ve ilk defter hareketi aynı transaction
// içinde yazılır; raf sayacına asla elle değer basılmaz.
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Unit = strings.TrimSpace(body.Unit)
		body.StockCode = strings.TrimSpace(body.StockCode)

		if body.Name == "" || body.Unit == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name ve unit zorunlu")
		}
		if body.OpeningStock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Açılış stoğu negatif olamaz")
		}

		if body.StockCode != "" {
			var existing models.Product
			if err := database.DB.Where("stock_code = ? AND deleted_at IS NULL", body.StockCode).First(&existing).Error; err == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Bu stok kodu zaten kullanılıyor")
			}
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		p := models.Product{
			Name:      body.Name,
			Unit:      body.Unit,
			StockCode: body.StockCode,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			if body.OpeningStock > 0 {
				_, err := stock.ApplyMovement(tx, p.ID, body.OpeningStock, models.MovementIn, nil, userID, "Açılış stoğu")
				if err != nil {
					return err
				}
				p.StockQuantity = body.OpeningStock
			}
			return nil
		})
		if err != nil {
			var de *stock.DomainError
			if errors.As(err, &de) {
				return err
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Ürün oluşturuldu: %s", p.Name),
			After:       p,
		})

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(p))
	}
}

// PUT /api/products/:id
// stock_quantity bu uçtan güncellenmez; raf sayacı sadece defter ve
// mutabakat üzerinden değişir.
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, "id = ?", id).Error; err != nil {
			return stock.ErrProductNotFound
		}
		before := p

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name boş olamaz")
			}
			p.Name = name
		}
		if body.Unit != nil {
			unit := strings.TrimSpace(*body.Unit)
			if unit == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Unit boş olamaz")
			}
			p.Unit = unit
		}
		if body.StockCode != nil {
			code := strings.TrimSpace(*body.StockCode)
			if code != "" && code != p.StockCode {
				var existing models.Product
				if err := database.DB.Where("stock_code = ? AND deleted_at IS NULL AND id <> ?", code, p.ID).First(&existing).Error; err == nil {
					return fiber.NewError(fiber.StatusBadRequest, "Bu stok kodu zaten kullanılıyor")
				}
			}
			p.StockCode = code
		}

		err := database.DB.Model(&models.Product{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"name":       p.Name,
				"unit":       p.Unit,
				"stock_code": p.StockCode,
			}).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Ürün güncellendi: %s", p.Name),
				Before:      before,
				After:       p,
			})
		}

		return c.JSON(toProductResponse(p))
	}
}

// DELETE /api/products/:id
// Tombstone: hareket geçmişi ürünle birlikte yaşamaya devam eder.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, "id = ?", id).Error; err != nil {
			return stock.ErrProductNotFound
		}

		now := time.Now()
		err := database.DB.Model(&models.Product{}).
			Where("id = ?", p.ID).
			Update("deleted_at", now).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Ürün silindi: %s", p.Name),
				Before:      p,
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
