// internal/services/cart.go
package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

type cartLine struct {
	product  models.Product
	quantity int
}

// Cart collects sale lines before checkout. Quantities never exceed the
// stock of the product as it was when added.
type Cart struct {
	lines []cartLine
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) find(id uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].product.ID == id {
			return i
		}
	}
	return -1
}

// Add puts one unit of product in the cart, or one more if it is already
// there. Products without stock are refused; a line already at the stock
// limit stays as it is.
func (c *Cart) Add(product models.Product) error {
	if product.Stock <= 0 {
		return ErrOutOfStock
	}
	if i := c.find(product.ID); i >= 0 {
		c.lines[i].product = product
		if c.lines[i].quantity < product.Stock {
			c.lines[i].quantity++
		}
		return nil
	}
	c.lines = append(c.lines, cartLine{product: product, quantity: 1})
	return nil
}

// SetQuantity changes a line's quantity. Quantities below one or above the
// product's stock are refused and leave the line as it was; use Remove to
// drop a line.
func (c *Cart) SetQuantity(id uuid.UUID, quantity int) error {
	i := c.find(id)
	if i < 0 {
		return ErrProductNotFound
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if p := c.lines[i].product; quantity > p.Stock {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.Stock,
		}
	}
	c.lines[i].quantity = quantity
	return nil
}

func (c *Cart) Remove(id uuid.UUID) {
	if i := c.find(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of price times quantity at each product's current price.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return total
}

// Count is the number of pieces in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.quantity
	}
	return n
}

// Lines returns the cart as sale lines with the current price captured.
func (c *Cart) Lines() []SaleLine {
	out := make([]SaleLine, 0, len(c.lines))
	for _, l := range c.lines {
		price := l.product.Price
		out = append(out, SaleLine{
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			Quantity:    l.quantity,
			Price:       &price,
		})
	}
	return out
}

// Checkout builds a sale request for the cart.
func (c *Cart) Checkout(customerName, customerPhone, paymentMethod string) *SaleRequest {
	return &SaleRequest{
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		PaymentMethod: paymentMethod,
		Items:         c.Lines(),
	}
}
