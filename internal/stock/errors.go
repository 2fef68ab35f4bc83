package stock

import "github.com/gofiber/fiber/v2"

// DomainError: İş kuralı ihlali. Transaction'ı geri aldırır, HTTP katmanında
// kod + mesaj çifti olarak döner.
type DomainError struct {
	Code    string
	Message string
	Status  int
}

func (e *DomainError) Error() string { return e.Message }

var (
	ErrInvalidStockQuantity = &DomainError{
		Code:    "INVALID_STOCK_QUANTITY",
		Message: "Stok hareketi miktarı sıfır olamaz",
		Status:  fiber.StatusBadRequest,
	}
	ErrInvalidReference = &DomainError{
		Code:    "INVALID_REFERENCE",
		Message: "reference_type ve reference_id birlikte dolu ya da birlikte boş olmalı",
		Status:  fiber.StatusBadRequest,
	}
	ErrInsufficientStock = &DomainError{
		Code:    "INSUFFICIENT_STOCK",
		Message: "Yetersiz stok: hareket raf miktarını sıfırın altına düşürür",
		Status:  fiber.StatusUnprocessableEntity,
	}
	ErrProductNotFound = &DomainError{
		Code:    "PRODUCT_NOT_FOUND",
		Message: "Ürün bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	ErrStockMovementNotFound = &DomainError{
		Code:    "STOCK_MOVEMENT_NOT_FOUND",
		Message: "Stok hareketi bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	ErrRestrictedStockMovement = &DomainError{
		Code:    "RESTRICTED_STOCK_MOVEMENT",
		Message: "Bu hareket bir belgeye bağlı; düzeltme belgenin kendi güncelleme/silme akışından yapılmalı",
		Status:  fiber.StatusConflict,
	}
)
