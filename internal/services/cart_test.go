// internal/services/cart_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

func cartProduct(name string, price int64, stock int) models.Product {
	p := product(name, "Top", "Preto", price, price/2, stock, 0)
	p.ID = uuid.New()
	return p
}

func TestCartAddCapsAtStock(t *testing.T) {
	top := cartProduct("Top Preto M", 30, 2)
	cart := NewCart()

	require.NoError(t, cart.Add(top))
	require.NoError(t, cart.Add(top))
	require.NoError(t, cart.Add(top))

	assert.Equal(t, 2, cart.Count())
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(60)))
}

func TestCartRejectsOutOfStock(t *testing.T) {
	cart := NewCart()
	err := cart.Add(cartProduct("Calça Azul G", 80, 0))
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 0, cart.Count())
}

func TestCartSetQuantity(t *testing.T) {
	top := cartProduct("Top Preto M", 30, 5)
	legging := cartProduct("Legging Preta P", 60, 3)
	cart := NewCart()
	require.NoError(t, cart.Add(top))
	require.NoError(t, cart.Add(legging))

	require.NoError(t, cart.SetQuantity(top.ID, 4))
	assert.Equal(t, 5, cart.Count())

	// more than in stock is refused, not trimmed
	var stockErr *InsufficientStockError
	require.ErrorAs(t, cart.SetQuantity(top.ID, 9), &stockErr)
	assert.Equal(t, 9, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 5, cart.Count())

	assert.ErrorIs(t, cart.SetQuantity(legging.ID, 0), ErrInvalidQuantity)
	assert.Len(t, cart.Lines(), 2)
	assert.Equal(t, 5, cart.Count())

	require.NoError(t, cart.SetQuantity(top.ID, 5))
	assert.Equal(t, 6, cart.Count())

	assert.ErrorIs(t, cart.SetQuantity(uuid.New(), 1), ErrProductNotFound)
}

func TestCartCheckout(t *testing.T) {
	top := cartProduct("Top Preto M", 30, 5)
	legging := cartProduct("Legging Preta P", 60, 3)
	cart := NewCart()
	require.NoError(t, cart.Add(top))
	require.NoError(t, cart.Add(legging))
	require.NoError(t, cart.Add(legging))

	req := cart.Checkout("Maria", "11 99999-0000", "Pix")
	assert.Equal(t, "Maria", req.CustomerName)
	assert.Equal(t, "Pix", req.PaymentMethod)
	require.Len(t, req.Items, 2)
	assert.Equal(t, top.ID, req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[1].Quantity)
	require.NotNil(t, req.Items[1].Price)
	assert.True(t, req.Items[1].Price.Equal(decimal.NewFromInt(60)))
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(150)))

	cart.Remove(top.ID)
	assert.Equal(t, 2, cart.Count())
	cart.Clear()
	assert.Empty(t, cart.Lines())
	assert.True(t, cart.Total().IsZero())
}
