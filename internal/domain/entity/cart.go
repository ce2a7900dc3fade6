package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
}

// LineTotal is quantity × unit price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is addressed by a client generated code. Only one unpaid cart may
// exist per code; paid carts with the same code are kept as history.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	CartCode  string     `json:"cart_code"`
	Paid      bool       `json:"paid"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
