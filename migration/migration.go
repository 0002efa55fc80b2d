package migration

import (
	"github.com/jinzhu/gorm"
	gormigrate "gopkg.in/gormigrate.v1"

	"github.com/templestuart/lotkeeper/models"
)

// Migration contains all of the incremental migrations that the database
// requires to keep its schema and models up to date with current lotkeeper
// source code.
func Migration(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// initial migration
		{
			ID: "202601121030",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.StockLot{}).Error; err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.CorporateAction{}).Error; err != nil {
					return err
				}
				return tx.AutoMigrate(&models.LotAdjustment{}).Error
			},
		},
		// lot selection for adjustment filters on user/symbol/status;
		// partial index keeps it small for large closed histories
		{
			ID: "202601191415",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(
					`CREATE INDEX IF NOT EXISTS idx_lot_adjustable
					 ON stock_lots (user_id, symbol, acquired_date)
					 WHERE status IN ('open', 'partial')`).Error
			},
		},
		// one audit row per (lot, action) pair
		{
			ID: "202602021100",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_adjustment_once
					 ON lot_adjustments (lot_id, corporate_action_id)`).Error
			},
		},
	})
}
