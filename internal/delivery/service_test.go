package delivery

import (
	"fmt"
	"os"
	"testing"
	"time"

	"imalat-backend/internal/database"
	"imalat-backend/internal/models"
	"imalat-backend/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("IMALAT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("IMALAT_TEST_DATABASE_DSN tanımlı değil, entegrasyon testi atlandı")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fixture: müşteri + stoklu ürün + tek kalemli sipariş
type fixture struct {
	customer models.Customer
	product  models.Product
	order    models.Order
	item     models.OrderItem
}

func setupFixture(t *testing.T, db *gorm.DB, orderedQty, openingStock int) *fixture {
	t.Helper()
	suffix := time.Now().UnixNano()

	f := &fixture{}
	f.customer = models.Customer{Name: fmt.Sprintf("Test Müşteri %d", suffix)}
	require.NoError(t, db.Create(&f.customer).Error)

	f.product = models.Product{
		Name:      fmt.Sprintf("Test Ürün %d", suffix),
		StockCode: fmt.Sprintf("TST-%d", suffix),
		Unit:      "adet",
	}
	require.NoError(t, db.Create(&f.product).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := stock.ApplyMovement(tx, f.product.ID, openingStock, models.MovementIn, nil, 1, "açılış")
		return err
	}))

	f.order = models.Order{
		CustomerID: f.customer.ID,
		Status:     models.OrderStatusKayit,
		Currency:   "TRY",
	}
	require.NoError(t, db.Create(&f.order).Error)

	f.item = models.OrderItem{
		OrderID:   f.order.ID,
		ProductID: f.product.ID,
		Quantity:  orderedQty,
		UnitPrice: decimal.NewFromInt(100),
		Currency:  "TRY",
	}
	require.NoError(t, db.Create(&f.item).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM delivery_items WHERE order_item_id = ?", f.item.ID)
		db.Exec("DELETE FROM deliveries WHERE customer_id = ?", f.customer.ID)
		db.Exec("DELETE FROM stock_movements WHERE product_id = ?", f.product.ID)
		db.Exec("DELETE FROM order_items WHERE id = ?", f.item.ID)
		db.Exec("DELETE FROM orders WHERE id = ?", f.order.ID)
		db.Exec("DELETE FROM products WHERE id = ?", f.product.ID)
		db.Exec("DELETE FROM customers WHERE id = ?", f.customer.ID)
	})
	return f
}

func (f *fixture) createInput(kind models.DeliveryKind, qty int) CreateInput {
	itemID := f.item.ID
	return CreateInput{
		CustomerID:     f.customer.ID,
		Kind:           kind,
		DeliveryNumber: fmt.Sprintf("IRS-%d", time.Now().UnixNano()),
		DeliveryDate:   time.Now(),
		Items:          []ItemInput{{OrderItemID: &itemID, DeliveredQuantity: qty}},
		ActorID:        1,
	}
}

func shelf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", productID).Error)
	return p.StockQuantity
}

func orderStatus(t *testing.T, db *gorm.DB, orderID uint) models.OrderStatus {
	t.Helper()
	var o models.Order
	require.NoError(t, db.First(&o, "id = ?", orderID).Error)
	return o.Status
}

// customFixture: müşteri + stok takibi olmayan tek özel kalemli sipariş
type customFixture struct {
	customer models.Customer
	order    models.Order
	item     models.CustomOrderItem
}

func setupCustomFixture(t *testing.T, db *gorm.DB, orderedQty int) *customFixture {
	t.Helper()
	suffix := time.Now().UnixNano()

	f := &customFixture{}
	f.customer = models.Customer{Name: fmt.Sprintf("Test Müşteri %d", suffix)}
	require.NoError(t, db.Create(&f.customer).Error)

	f.order = models.Order{
		CustomerID: f.customer.ID,
		Status:     models.OrderStatusKayit,
		Currency:   "TRY",
	}
	require.NoError(t, db.Create(&f.order).Error)

	f.item = models.CustomOrderItem{
		OrderID:     f.order.ID,
		Description: fmt.Sprintf("Özel imalat %d", suffix),
		Quantity:    orderedQty,
		UnitPrice:   decimal.NewFromInt(250),
		Currency:    "TRY",
	}
	require.NoError(t, db.Create(&f.item).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM delivery_items WHERE custom_order_item_id = ?", f.item.ID)
		db.Exec("DELETE FROM deliveries WHERE customer_id = ?", f.customer.ID)
		db.Exec("DELETE FROM custom_order_items WHERE id = ?", f.item.ID)
		db.Exec("DELETE FROM orders WHERE id = ?", f.order.ID)
		db.Exec("DELETE FROM customers WHERE id = ?", f.customer.ID)
	})
	return f
}

func (f *customFixture) createInput(kind models.DeliveryKind, qty int) CreateInput {
	itemID := f.item.ID
	return CreateInput{
		CustomerID:     f.customer.ID,
		Kind:           kind,
		DeliveryNumber: fmt.Sprintf("IRS-%d", time.Now().UnixNano()),
		DeliveryDate:   time.Now(),
		Items:          []ItemInput{{CustomOrderItemID: &itemID, DeliveredQuantity: qty}},
		ActorID:        1,
	}
}

func TestCustomOrderItemDeliveryFlow(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupCustomFixture(t, db, 10)

	// Kısmi teslimat durumu ÜRETİM'e taşır, stok defterine hiçbir şey yazılmaz
	d1, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 4))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))

	var movements int64
	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("reference_type = ? AND reference_id = ?", models.ReferenceDelivery, d1.ID).
		Count(&movements).Error)
	assert.Zero(t, movements, "özel kalem stok hareketi üretmemeli")

	// Kalan miktar teslim edilince sipariş BİTTİ
	d2, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 6))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusBitti, orderStatus(t, db, f.order.ID))

	// Özel kaleme de teslim edilmemiş miktar sevk edilemez
	_, err = svc.Create(f.createInput(models.DeliveryKindDelivery, 1))
	assert.ErrorIs(t, err, ErrDeliveredQuantityExceedsOrdered)

	// İade kapasitesi net teslimatla sınırlı
	_, err = svc.Create(f.createInput(models.DeliveryKindReturn, 11))
	assert.ErrorIs(t, err, ErrReturnQuantityExceedsDelivered)

	// Silme defter düzeltmesi gerektirmez, durum yeniden türetilir
	_, err = svc.Remove(d2.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))

	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("reference_type = ? AND reference_id IN ?", models.ReferenceDelivery, []uint{d1.ID, d2.ID}).
		Count(&movements).Error)
	assert.Zero(t, movements)
}

func TestDeliveryNumberReusableAfterRemove(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	in := f.createInput(models.DeliveryKindDelivery, 2)
	d, err := svc.Create(in)
	require.NoError(t, err)

	// Aktif irsaliye numarası ikinci kez kullanılamaz
	dup := f.createInput(models.DeliveryKindDelivery, 2)
	dup.DeliveryNumber = in.DeliveryNumber
	_, err = svc.Create(dup)
	assert.ErrorIs(t, err, ErrDuplicateDeliveryNumber)

	// Tombstone sonrası aynı numara yeniden açılabilir
	_, err = svc.Remove(d.ID, 1)
	require.NoError(t, err)

	_, err = svc.Create(dup)
	require.NoError(t, err)
}

func TestCreateDeliveryFlow(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	// Kısmi sevk: stok düşer, sipariş ÜRETİM'e geçer
	d1, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 4))
	require.NoError(t, err)
	assert.Equal(t, 46, shelf(t, db, f.product.ID))
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))

	var m models.StockMovement
	require.NoError(t, db.Where("reference_type = ? AND reference_id = ?", models.ReferenceDelivery, d1.ID).First(&m).Error)
	assert.Equal(t, -4, m.Quantity)
	assert.Equal(t, models.MovementOut, m.MovementType)

	// Kalan miktar sevk edilince BİTTİ
	_, err = svc.Create(f.createInput(models.DeliveryKindDelivery, 6))
	require.NoError(t, err)
	assert.Equal(t, 40, shelf(t, db, f.product.ID))
	assert.Equal(t, models.OrderStatusBitti, orderStatus(t, db, f.order.ID))

	// İade stoku geri koyar, sipariş ÜRETİM'e geri döner
	_, err = svc.Create(f.createInput(models.DeliveryKindReturn, 2))
	require.NoError(t, err)
	assert.Equal(t, 42, shelf(t, db, f.product.ID))
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))
}

func TestCreateDeliveryRejectsOverCap(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 5, 50)

	_, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 6))
	assert.ErrorIs(t, err, ErrDeliveredQuantityExceedsOrdered)
	assert.Equal(t, 50, shelf(t, db, f.product.ID), "reddedilen irsaliye stok yazmamalı")

	_, err = svc.Create(f.createInput(models.DeliveryKindDelivery, 3))
	require.NoError(t, err)

	// Kalan 2'yi aşan ikinci sevk de reddedilir
	_, err = svc.Create(f.createInput(models.DeliveryKindDelivery, 3))
	assert.ErrorIs(t, err, ErrDeliveredQuantityExceedsOrdered)
}

func TestCreateReturnRejectsExceedingDelivered(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	_, err := svc.Create(f.createInput(models.DeliveryKindReturn, 1))
	assert.ErrorIs(t, err, ErrReturnQuantityExceedsDelivered, "teslimatsız kaleme iade yazılamaz")

	_, err = svc.Create(f.createInput(models.DeliveryKindDelivery, 4))
	require.NoError(t, err)

	_, err = svc.Create(f.createInput(models.DeliveryKindReturn, 5))
	assert.ErrorIs(t, err, ErrReturnQuantityExceedsDelivered)

	_, err = svc.Create(f.createInput(models.DeliveryKindReturn, 4))
	require.NoError(t, err)
}

func TestCreateDeliveryValidation(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	in := f.createInput(models.DeliveryKindDelivery, 4)
	in.Items = nil
	_, err := svc.Create(in)
	assert.ErrorIs(t, err, ErrEmptyDelivery)

	in = f.createInput(models.DeliveryKindDelivery, 0)
	_, err = svc.Create(in)
	assert.ErrorIs(t, err, ErrInvalidDeliveredQuantity)

	in = f.createInput(models.DeliveryKindDelivery, 2)
	in.Items = append(in.Items, in.Items[0])
	_, err = svc.Create(in)
	assert.ErrorIs(t, err, ErrDuplicateDeliveryLine)

	in = f.createInput("KARGO", 2)
	_, err = svc.Create(in)
	assert.ErrorIs(t, err, ErrInvalidDeliveryKind)

	in = f.createInput(models.DeliveryKindDelivery, 2)
	in.Items[0].CustomOrderItemID = in.Items[0].OrderItemID
	_, err = svc.Create(in)
	assert.ErrorIs(t, err, ErrInvalidDeliveryItem)
}

func TestUpdateDelivery(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	d, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 4))
	require.NoError(t, err)
	assert.Equal(t, 46, shelf(t, db, f.product.ID))

	itemID := f.item.ID
	update := UpdateInput{
		DeliveryID:     d.ID,
		CustomerID:     f.customer.ID,
		DeliveryNumber: d.DeliveryNumber,
		DeliveryDate:   d.DeliveryDate,
		Items:          []ItemInput{{OrderItemID: &itemID, DeliveredQuantity: 4}},
		ActorID:        1,
	}

	// Satır kümesi aynı: deftere dokunulmaz
	var before int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", f.product.ID).Count(&before).Error)
	update.Notes = "başlık güncellemesi"
	_, err = svc.Update(update)
	require.NoError(t, err)
	var after int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", f.product.ID).Count(&after).Error)
	assert.Equal(t, before, after)
	assert.Equal(t, 46, shelf(t, db, f.product.ID))

	// Miktar değişikliği: eski hareketler düzeltilir, yenisi yazılır
	update.Items[0].DeliveredQuantity = 7
	_, err = svc.Update(update)
	require.NoError(t, err)
	assert.Equal(t, 43, shelf(t, db, f.product.ID))
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))

	// Güncel harekette yeni miktar, referans irsaliyeye bağlı
	var m models.StockMovement
	require.NoError(t, db.Where("reference_type = ? AND reference_id = ?", models.ReferenceDelivery, d.ID).First(&m).Error)
	assert.Equal(t, -7, m.Quantity)

	// Sipariş miktarını aşan güncelleme reddedilir, stok değişmez
	update.Items[0].DeliveredQuantity = 11
	_, err = svc.Update(update)
	assert.ErrorIs(t, err, ErrDeliveredQuantityExceedsOrdered)
	assert.Equal(t, 43, shelf(t, db, f.product.ID))
}

func TestRemoveDeliveryRoundTrip(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	f := setupFixture(t, db, 10, 50)

	d, err := svc.Create(f.createInput(models.DeliveryKindDelivery, 10))
	require.NoError(t, err)
	assert.Equal(t, 40, shelf(t, db, f.product.ID))
	assert.Equal(t, models.OrderStatusBitti, orderStatus(t, db, f.order.ID))

	_, err = svc.Remove(d.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, shelf(t, db, f.product.ID), "silme stok etkisini geri almalı")
	assert.Equal(t, models.OrderStatusUretim, orderStatus(t, db, f.order.ID))

	var tombstoned models.Delivery
	require.NoError(t, db.First(&tombstoned, "id = ?", d.ID).Error)
	assert.NotNil(t, tombstoned.DeletedAt, "irsaliye tombstone'lanmalı, silinmemeli")

	// İkinci silme bulunamadı ile döner
	_, err = svc.Remove(d.ID, 1)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)

	// Defter geçmişi yerinde: sevk + düzeltme kayıtları
	var count int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", f.product.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count, "açılış + sevk + düzeltme")
}
