package delivery

import (
	"imalat-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrDeliveryNotFound = &stock.DomainError{
		Code:    "DELIVERY_NOT_FOUND",
		Message: "İrsaliye bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	ErrInvalidDeliveryKind = &stock.DomainError{
		Code:    "INVALID_DELIVERY_KIND",
		Message: "İrsaliye türü DELIVERY veya RETURN olmalı",
		Status:  fiber.StatusBadRequest,
	}
	ErrDeliveryKindChangeNotAllowed = &stock.DomainError{
		Code:    "DELIVERY_KIND_CHANGE_NOT_ALLOWED",
		Message: "İrsaliye türü sonradan değiştirilemez; irsaliyeyi silip yenisini oluşturun",
		Status:  fiber.StatusConflict,
	}
	ErrDuplicateDeliveryNumber = &stock.DomainError{
		Code:    "DUPLICATE_DELIVERY_NUMBER",
		Message: "Bu irsaliye numarası aktif bir irsaliyede zaten kullanılıyor",
		Status:  fiber.StatusConflict,
	}
	ErrEmptyDelivery = &stock.DomainError{
		Code:    "EMPTY_DELIVERY",
		Message: "İrsaliye en az bir kalem içermeli",
		Status:  fiber.StatusBadRequest,
	}
	ErrInvalidDeliveryItem = &stock.DomainError{
		Code:    "INVALID_DELIVERY_ITEM",
		Message: "İrsaliye kaleminde order_item_id veya custom_order_item_id alanlarından tam olarak biri dolu olmalı",
		Status:  fiber.StatusBadRequest,
	}
	ErrInvalidDeliveredQuantity = &stock.DomainError{
		Code:    "INVALID_DELIVERED_QUANTITY",
		Message: "Teslim miktarı sıfırdan büyük olmalı",
		Status:  fiber.StatusBadRequest,
	}
	ErrDuplicateDeliveryLine = &stock.DomainError{
		Code:    "DUPLICATE_DELIVERY_LINE",
		Message: "Aynı sipariş kalemi irsaliyede birden fazla satırda yer alamaz",
		Status:  fiber.StatusBadRequest,
	}
	ErrOrderItemNotFound = &stock.DomainError{
		Code:    "ORDER_ITEM_NOT_FOUND",
		Message: "Sipariş kalemi bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	ErrCustomerNotFound = &stock.DomainError{
		Code:    "CUSTOMER_NOT_FOUND",
		Message: "Müşteri bulunamadı",
		Status:  fiber.StatusNotFound,
	}
	ErrDeliveryCurrencyMismatch = &stock.DomainError{
		Code:    "DELIVERY_CURRENCY_MISMATCH",
		Message: "İrsaliyedeki kalemler farklı para birimlerine ait siparişlerden geliyor",
		Status:  fiber.StatusUnprocessableEntity,
	}
	ErrDeliveredQuantityExceedsOrdered = &stock.DomainError{
		Code:    "DELIVERED_QUANTITY_EXCEEDS_ORDERED",
		Message: "Teslim miktarı kalemin kalan sipariş miktarını aşıyor",
		Status:  fiber.StatusUnprocessableEntity,
	}
	ErrReturnQuantityExceedsDelivered = &stock.DomainError{
		Code:    "RETURN_QUANTITY_EXCEEDS_DELIVERED",
		Message: "İade miktarı kaleme net teslim edilmiş miktarı aşıyor",
		Status:  fiber.StatusUnprocessableEntity,
	}
	ErrDeliveryCreationFailed = &stock.DomainError{
		Code:    "DELIVERY_CREATION_FAILED",
		Message: "İrsaliye oluşturulamadı",
		Status:  fiber.StatusInternalServerError,
	}
	ErrDeliveryUpdateFailed = &stock.DomainError{
		Code:    "DELIVERY_UPDATE_FAILED",
		Message: "İrsaliye güncellenemedi",
		Status:  fiber.StatusInternalServerError,
	}
	ErrDeliveryRemovalFailed = &stock.DomainError{
		Code:    "DELIVERY_REMOVAL_FAILED",
		Message: "İrsaliye silinemedi",
		Status:  fiber.StatusInternalServerError,
	}
)
