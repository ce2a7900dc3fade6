package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
)

// MockPaymentProvider is a mock implementation of provider.PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name provider.ProviderType) *MockPaymentProvider {
	return &MockPaymentProvider{name: string(name)}
}

func (m *MockPaymentProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentProvider) Verify(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.VerifyResponse), args.Error(1)
}

func (m *MockPaymentProvider) GetProviderName() string {
	return m.name
}

// MockExecutingProvider adds provider.Executor to MockPaymentProvider
type MockExecutingProvider struct {
	MockPaymentProvider
}

func newMockExecutingProvider(name provider.ProviderType) *MockExecutingProvider {
	return &MockExecutingProvider{MockPaymentProvider{name: string(name)}}
}

func (m *MockExecutingProvider) Execute(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.VerifyResponse), args.Error(1)
}

// MockProductRepository is a mock implementation of repository.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockCallbackEventRepository is a mock implementation of repository.CallbackEventRepository
type MockCallbackEventRepository struct {
	mock.Mock
}

func (m *MockCallbackEventRepository) Record(ctx context.Context, event *entity.CallbackEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memoryLedger keeps carts and transactions in memory and applies
// settlements under one mutex, the way the database row lock does.
type memoryLedger struct {
	mu           sync.Mutex
	carts        map[uuid.UUID]*entity.Cart
	transactions map[string]*entity.Transaction
	transitions  int
	createErr    error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		carts:        make(map[uuid.UUID]*entity.Cart),
		transactions: make(map[string]*entity.Transaction),
	}
}

func (l *memoryLedger) addCart(cart *entity.Cart) *entity.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	l.carts[cart.ID] = cart
	return cart
}

func (l *memoryLedger) cart(id uuid.UUID) entity.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.carts[id]
}

func (l *memoryLedger) transaction(ref string) *entity.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[ref]
	if !ok {
		return nil
	}
	copied := *tx
	return &copied
}

func (l *memoryLedger) GetCart(ctx context.Context, code string, paid bool) (*entity.Cart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cart := range l.carts {
		if cart.CartCode == code && cart.Paid == paid {
			copied := *cart
			return &copied, nil
		}
	}
	return nil, nil
}

func (l *memoryLedger) GetOrCreateCart(ctx context.Context, code string) (*entity.Cart, error) {
	cart, _ := l.GetCart(ctx, code, false)
	if cart != nil {
		return cart, nil
	}
	return l.addCart(&entity.Cart{CartCode: code}), nil
}

func (l *memoryLedger) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, quantity int) (*entity.CartItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cart := l.carts[cartID]
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			item := cart.Items[i]
			return &item, nil
		}
	}
	item := entity.CartItem{ID: int64(len(cart.Items) + 1), CartID: cartID, ProductID: productID, Quantity: quantity}
	cart.Items = append(cart.Items, item)
	return &item, nil
}

func (l *memoryLedger) UpdateCart(ctx context.Context, cartID uuid.UUID, update repository.CartUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cart := l.carts[cartID]
	if update.Paid != nil {
		cart.Paid = *update.Paid
	}
	if update.UserID != nil {
		cart.UserID = update.UserID
	}
	return nil
}

func (l *memoryLedger) CreateTransaction(ctx context.Context, tx *entity.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if tx.Status == "" {
		tx.Status = entity.TransactionStatusPending
	}
	tx.ID = int64(len(l.transactions) + 1)
	tx.CreatedAt = time.Now()
	copied := *tx
	l.transactions[tx.Ref] = &copied
	return nil
}

func (l *memoryLedger) GetTransactionByRef(ctx context.Context, ref string) (*entity.Transaction, error) {
	return l.transaction(ref), nil
}

func (l *memoryLedger) UpdateTransaction(ctx context.Context, ref string, update repository.TransactionUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tx, ok := l.transactions[ref]; ok && update.ProviderPaymentID != nil {
		id := *update.ProviderPaymentID
		tx.ProviderPaymentID = &id
	}
	return nil
}

func (l *memoryLedger) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.Transaction
	for _, tx := range l.transactions {
		if tx.Status == entity.TransactionStatusPending && tx.CreatedAt.Before(olderThan) {
			copied := *tx
			out = append(out, &copied)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *memoryLedger) ApplySettlement(ctx context.Context, ref string, cartID uuid.UUID, userID uuid.UUID) (*repository.SettlementResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[ref]
	if !ok {
		return nil, nil
	}
	if tx.Status == entity.TransactionStatusCompleted {
		copied := *tx
		return &repository.SettlementResult{Transaction: &copied, AlreadyCompleted: true}, nil
	}
	now := time.Now()
	tx.Status = entity.TransactionStatusCompleted
	tx.CompletedAt = &now
	cart := l.carts[cartID]
	cart.Paid = true
	user := userID
	cart.UserID = &user
	l.transitions++
	copied := *tx
	return &repository.SettlementResult{Transaction: &copied}, nil
}
