package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
)

// Subtotal sums quantity × unit price over the cart items.
func Subtotal(items []entity.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// CalculateTotal is the amount a cart is charged: the subtotal plus the
// fixed tax. An empty cart costs exactly the tax.
func CalculateTotal(items []entity.CartItem, tax decimal.Decimal) decimal.Decimal {
	return Subtotal(items).Add(tax)
}
