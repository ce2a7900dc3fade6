package repository

import (
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
)

func toProductEntity(m *model.Product) *entity.Product {
	return &entity.Product{
		ID:       m.ID,
		Name:     m.Name,
		Slug:     m.Slug,
		Price:    m.Price,
		Category: m.Category,
	}
}

func toCartItemEntity(m *model.CartItem) entity.CartItem {
	return entity.CartItem{
		ID:        m.ID,
		CartID:    m.CartID,
		ProductID: m.ProductID,
		Product:   *toProductEntity(&m.Product),
		Quantity:  m.Quantity,
	}
}

func toCartEntity(m *model.Cart) *entity.Cart {
	cart := &entity.Cart{
		ID:        m.ID,
		CartCode:  m.CartCode,
		Paid:      m.Paid,
		UserID:    m.UserID,
		Items:     make([]entity.CartItem, 0, len(m.Items)),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for i := range m.Items {
		cart.Items = append(cart.Items, toCartItemEntity(&m.Items[i]))
	}
	return cart
}

func toTransactionEntity(m *model.Transaction) *entity.Transaction {
	tx := &entity.Transaction{
		ID:                m.ID,
		Ref:               m.Ref,
		CartID:            m.CartID,
		Amount:            m.Amount,
		Currency:          m.Currency,
		UserID:            m.UserID,
		Status:            entity.TransactionStatus(m.Status),
		Provider:          m.Provider,
		ProviderPaymentID: m.ProviderPaymentID,
		CompletedAt:       m.CompletedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.Cart != nil {
		tx.CartCode = m.Cart.CartCode
	}
	return tx
}

func toTransactionModel(e *entity.Transaction) *model.Transaction {
	status := string(e.Status)
	if status == "" {
		status = model.TransactionStatusPending
	}
	return &model.Transaction{
		Ref:               e.Ref,
		CartID:            e.CartID,
		Amount:            e.Amount,
		Currency:          e.Currency,
		UserID:            e.UserID,
		Status:            status,
		Provider:          e.Provider,
		ProviderPaymentID: e.ProviderPaymentID,
	}
}
