package database

import (
	"github.com/wekeepgrowing/shop-settlement/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Product     domainRepo.ProductRepository
	Cart        domainRepo.CartRepository
	Transaction domainRepo.TransactionRepository
	Settlement  domainRepo.SettlementRepository
	Callback    domainRepo.CallbackEventRepository
	Outbox      domainRepo.OutboxRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Product:     repository.NewProductRepository(db, logger),
		Cart:        repository.NewCartRepository(db, logger),
		Transaction: repository.NewTransactionRepository(db, logger),
		Settlement:  repository.NewSettlementRepository(db, logger),
		Callback:    repository.NewCallbackEventRepository(db, logger),
		Outbox:      repository.NewOutboxRepository(db, logger),
	}
}
