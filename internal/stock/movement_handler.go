package stock

import (
	"fmt"
	"time"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/database"
	"imalat-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MovementResponse struct {
	ID            uint    `json:"id"`
	ProductID     uint    `json:"product_id"`
	ProductName   string  `json:"product_name"`
	StockCode     string  `json:"stock_code"`
	Quantity      int     `json:"quantity"`
	MovementType  string  `json:"movement_type"`
	ReferenceType *string `json:"reference_type"`
	ReferenceID   *uint   `json:"reference_id"`
	CreatedBy     uint    `json:"created_by"`
	Notes         string  `json:"notes"`
	CreatedAt     string  `json:"created_at"`
}

func toMovementResponse(m models.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		ProductName:   m.Product.Name,
		StockCode:     m.Product.StockCode,
		Quantity:      m.Quantity,
		MovementType:  string(m.MovementType),
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		CreatedBy:     m.CreatedBy,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/stock-movements?product_id=&movement_type=&reference_type=&start_date=&end_date=&page=&limit=
func ListStockMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		dbq := database.DB.Model(&models.StockMovement{})

		if pidStr := c.Query("product_id"); pidStr != "" {
			var pid uint
			if _, err := fmt.Sscan(pidStr, &pid); err == nil && pid > 0 {
				dbq = dbq.Where("product_id = ?", pid)
			}
		}
		if mt := c.Query("movement_type"); mt != "" {
			dbq = dbq.Where("movement_type = ?", mt)
		}
		if rt := c.Query("reference_type"); rt != "" {
			dbq = dbq.Where("reference_type = ?", rt)
		}
		if sd := c.Query("start_date"); sd != "" {
			if d, err := time.Parse("2006-01-02", sd); err == nil {
				dbq = dbq.Where("created_at >= ?", d)
			}
		}
		if ed := c.Query("end_date"); ed != "" {
			if d, err := time.Parse("2006-01-02", ed); err == nil {
				dbq = dbq.Where("created_at < ?", d.AddDate(0, 0, 1))
			}
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok hareketleri sayılamadı")
		}

		var movements []models.StockMovement
		if err := dbq.
			Preload("Product").
			Order("id DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok hareketleri listelenemedi")
		}

		data := make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			data = append(data, toMovementResponse(m))
		}

		return c.JSON(fiber.Map{
			"data":  data,
			"total": total,
		})
	}
}

type CreateMovementRequest struct {
	ProductID    uint   `json:"product_id"`
	Quantity     int    `json:"quantity"`
	MovementType string `json:"movement_type"` // boşsa ADJUSTMENT
	Notes        string `json:"notes"`
}

// POST /api/stock-movements
// Elle stok düzeltmesi. Belge referansı taşıyan hareketler sadece ilgili
// belgenin kendi akışından yazılır; buradan referans verilemez.
func CreateStockMovementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		movementType := models.MovementType(body.MovementType)
		if movementType == "" {
			movementType = models.MovementAdjustment
		}
		switch movementType {
		case models.MovementIn, models.MovementOut, models.MovementAdjustment,
			models.MovementReserve, models.MovementRelease:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz movement_type")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		var created *models.StockMovement
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			m, err := ApplyMovement(tx, body.ProductID, body.Quantity, movementType, nil, userID, body.Notes)
			if err != nil {
				return err
			}
			created = m
			return nil
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "stock_movement",
			EntityID:    created.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Elle stok hareketi: ürün #%d, miktar %d (%s)", body.ProductID, body.Quantity, movementType),
			After:       created,
		})

		return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*created))
	}
}

// DELETE /api/stock-movements/:id
// Defter kaydı fiziksel olarak silinmez: bağlı olmayan hareket, ters işaretli
// bir düzeltme kaydıyla etkisizleştirilir ve düzeltmesine bağlanarak tüketilir.
// Belgeye bağlı hareketler buradan düzeltilemez.
func DeleteStockMovementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idStr := c.Params("id")
		var id uint
		if _, err := fmt.Sscan(idStr, &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz hareket ID")
		}

		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		var movement models.StockMovement
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&movement, "id = ?", id).Error; err != nil {
				return ErrStockMovementNotFound
			}
			if movement.ReferenceType != nil || movement.ReferenceID != nil {
				return ErrRestrictedStockMovement
			}

			comp, err := ApplyMovement(tx, movement.ProductID, -movement.Quantity, models.MovementAdjustment,
				nil, userID, fmt.Sprintf("Hareket #%d iptali", movement.ID))
			if err != nil {
				return err
			}

			// Orijinali düzeltmesine bağla; ikinci silme denemesi artık
			// RESTRICTED_STOCK_MOVEMENT ile reddedilir.
			return tx.Model(&models.StockMovement{}).
				Where("id = ?", movement.ID).
				Updates(map[string]interface{}{
					"reference_type": models.ReferenceAdjustment,
					"reference_id":   comp.ID,
				}).Error
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "stock_movement",
			EntityID:    movement.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Stok hareketi iptal edildi: #%d (miktar %d)", movement.ID, movement.Quantity),
			Before:      movement,
		})

		return c.JSON(fiber.Map{"success": true})
	}
}

// GET /api/stock-integrity
func StockIntegrityReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := IntegrityReport(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bütünlük raporu oluşturulamadı")
		}
		return c.JSON(rows)
	}
}

// POST /api/stock-reconcile
func ReconcileStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := audit.ActorInfo(c)
		if err != nil {
			return err
		}

		fixedCount, err := ReconcileAll(database.DB)
		if err != nil {
			return err
		}

		_ = audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "stock",
			Action:      models.AuditActionReconcile,
			Description: fmt.Sprintf("Stok mutabakatı çalıştırıldı: %d ürün düzeltildi", fixedCount),
		})

		return c.JSON(fiber.Map{"fixed_count": fixedCount})
	}
}
