package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
)

// Lookups return (nil, nil) when the row does not exist.

type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
}

type CartRepository interface {
	// GetCart finds the cart with the given code and paid flag, with items.
	GetCart(ctx context.Context, code string, paid bool) (*entity.Cart, error)

	// GetOrCreateCart returns the unpaid cart for code, creating it if needed.
	GetOrCreateCart(ctx context.Context, code string) (*entity.Cart, error)

	// AddItem inserts the product or increments the existing line quantity.
	AddItem(ctx context.Context, cartID uuid.UUID, productID int64, quantity int) (*entity.CartItem, error)

	UpdateCart(ctx context.Context, cartID uuid.UUID, update CartUpdate) error
}

type CartUpdate struct {
	Paid   *bool
	UserID *uuid.UUID
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *entity.Transaction) error
	GetTransactionByRef(ctx context.Context, ref string) (*entity.Transaction, error)
	UpdateTransaction(ctx context.Context, ref string, update TransactionUpdate) error

	// ListPending returns pending transactions created before olderThan,
	// oldest first.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error)
}

type TransactionUpdate struct {
	ProviderPaymentID *string
}

// SettlementResult reports what ApplySettlement did.
type SettlementResult struct {
	Transaction      *entity.Transaction
	AlreadyCompleted bool
}

type SettlementRepository interface {
	// ApplySettlement moves the transaction from pending to completed and
	// marks its cart paid by userID, in one database transaction. A
	// transaction that is already completed is returned unchanged with
	// AlreadyCompleted set. A missing ref yields (nil, nil).
	ApplySettlement(ctx context.Context, ref string, cartID uuid.UUID, userID uuid.UUID) (*SettlementResult, error)
}

type CallbackEventRepository interface {
	Record(ctx context.Context, event *entity.CallbackEvent) error
}

type OutboxRepository interface {
	GetUnprocessed(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
}
