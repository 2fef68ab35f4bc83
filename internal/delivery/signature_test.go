package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uptr(v uint) *uint { return &v }

func TestItemSignature(t *testing.T) {
	a := []ItemInput{
		{OrderItemID: uptr(12), DeliveredQuantity: 5},
		{CustomOrderItemID: uptr(3), DeliveredQuantity: 2},
	}
	b := []ItemInput{
		{CustomOrderItemID: uptr(3), DeliveredQuantity: 2},
		{OrderItemID: uptr(12), DeliveredQuantity: 5},
	}

	// Sıra bağımsız
	assert.Equal(t, itemSignature(a), itemSignature(b))

	// Miktar değişimi imzayı değiştirir
	c := []ItemInput{
		{OrderItemID: uptr(12), DeliveredQuantity: 6},
		{CustomOrderItemID: uptr(3), DeliveredQuantity: 2},
	}
	assert.NotEqual(t, itemSignature(a), itemSignature(c))

	// Katalog kalemi ile özel kalem aynı ID'de çakışmaz
	d := []ItemInput{{OrderItemID: uptr(3), DeliveredQuantity: 2}}
	e := []ItemInput{{CustomOrderItemID: uptr(3), DeliveredQuantity: 2}}
	assert.NotEqual(t, itemSignature(d), itemSignature(e))
}

func TestLineKey(t *testing.T) {
	assert.Equal(t, "o:7", lineKey(ItemInput{OrderItemID: uptr(7)}))
	assert.Equal(t, "c:7", lineKey(ItemInput{CustomOrderItemID: uptr(7)}))
	assert.Equal(t, "", lineKey(ItemInput{}))
}

func TestMovementFor(t *testing.T) {
	qty, mt := movementFor("DELIVERY", 4)
	assert.Equal(t, -4, qty)
	assert.Equal(t, "OUT", string(mt))

	qty, mt = movementFor("RETURN", 4)
	assert.Equal(t, 4, qty)
	assert.Equal(t, "IN", string(mt))
}
