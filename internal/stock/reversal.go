package stock

import (
	"fmt"

	"imalat-backend/internal/models"

	"gorm.io/gorm"
)

// Compensate: Bir iş belgesine hâlâ bağlı tüm hareketleri ters işaretli
// ADJUSTMENT kayıtlarıyla etkisizleştirir. Geçmiş silinmez; her orijinal
// hareket için raf sayacını aynı kilit disiplini ile güncelleyen yeni bir
// düzeltme kaydı eklenir.
//
// Kayıtlar eklendikten sonra referans çiftini taşıyan tüm satırlar
// (orijinaller ve az önce yazılan düzeltmeler dahil) tüketilir: referans
// alanları temizlenir. Bu sayede ikinci Compensate çağrısı hiçbir bağlı
// hareket bulamaz ve no-op olur; aynı belge için sonradan yazılan yeni
// hareketler de eski düzeltmelerle karıştırılamaz.
func Compensate(tx *gorm.DB, referenceType string, referenceID uint, actorID uint) error {
	var linked []models.StockMovement
	if err := tx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("id").
		Find(&linked).Error; err != nil {
		return err
	}
	if len(linked) == 0 {
		return nil
	}

	for _, m := range linked {
		notes := fmt.Sprintf("%s #%d düzeltme kaydı (hareket #%d)", referenceType, referenceID, m.ID)
		ref := &MovementRef{Type: referenceType, ID: referenceID}
		if _, err := ApplyMovement(tx, m.ProductID, -m.Quantity, models.MovementAdjustment, ref, actorID, notes); err != nil {
			return err
		}
	}

	return tx.Model(&models.StockMovement{}).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Updates(map[string]interface{}{"reference_type": nil, "reference_id": nil}).Error
}
