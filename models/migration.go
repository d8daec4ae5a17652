package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates or updates every ledger table.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&StockMovement{},
		&Assembly{}, &AssemblyComponent{},
		&AllocatableDocument{},
		&Payment{}, &PaymentAllocation{},
		&CreditNote{},
		&History{},
		&LedgerSequence{},
	)
}
