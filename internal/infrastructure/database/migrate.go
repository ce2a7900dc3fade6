package database

import (
	"fmt"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Transaction{},
		&model.CallbackEvent{},
		&model.OutboxEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}
	logger.Info("Custom indexes created successfully")

	return nil
}

// createCustomIndexes creates the constraints gorm tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// At most one unpaid cart per code; paid carts keep their code as history
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_unpaid_code ON carts(cart_code) WHERE paid = false`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_pending_created ON transactions(created_at) WHERE status = 'pending'`,

		`CREATE INDEX IF NOT EXISTS idx_outbox_events_unprocessed ON outbox_events(id) WHERE processed_at IS NULL`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
