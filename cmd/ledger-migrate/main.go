package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/models"
)

// ledger-migrate runs AutoMigrate for the ledger tables. Deployments that
// start the API with SKIP_MIGRATIONS=true run this as a separate job.
func main() {
	db := config.ConnectDatabaseWithRetry()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ledger tables migrated")
}
