package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/google/uuid"
)

// stock-reconcile recomputes item balances from the movement ledger and
// overwrites the cached balances in Redis, reporting every key that drifted.
func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	itemID := flag.Int("item-id", 0, "Optional: reconcile a single item")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing items and continue with the others")
	flag.Parse()

	if _, err := uuid.Parse(strings.TrimSpace(*businessID)); err != nil {
		fmt.Fprintln(os.Stderr, "--business-id is required (uuid)")
		os.Exit(1)
	}

	db := config.ConnectDatabaseWithRetry()
	redisCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	rdb := config.ConnectRedisWithRetry(redisCtx)
	cancel()
	if rdb == nil {
		fmt.Fprintln(os.Stderr, "redis not available; nothing to reconcile against")
		os.Exit(1)
	}

	settings := config.LoadLedgerSettings()
	ttl := settings.BalanceCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := config.GetLogger()
	engine := models.NewEngine(models.EngineOptions{
		Store:    models.NewGormStore(db),
		Settings: settings,
		Locker:   utils.NewRedisLocker(config.GetRedisLock()),
		Cache:    models.NewRedisBalanceCache(rdb, ttl, logger),
		Logger:   logger,
	})

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)
	ctx = utils.SetUserNameInContext(ctx, "stock-reconcile")

	itemIDs := []int{*itemID}
	if *itemID <= 0 {
		itemIDs = nil
		if err := db.WithContext(ctx).Model(&models.StockMovement{}).
			Where("business_id = ?", *businessID).
			Distinct().Order("item_id").
			Pluck("item_id", &itemIDs).Error; err != nil {
			fmt.Fprintf(os.Stderr, "discover items: %v\n", err)
			os.Exit(1)
		}
	}

	drifted := 0
	for _, id := range itemIDs {
		mismatches, err := engine.Stock.ReconcileBalances(ctx, id)
		if err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "reconcile item %d failed (skipping): %v\n", id, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "reconcile item %d failed: %v\n", id, err)
			os.Exit(1)
		}
		for _, m := range mismatches {
			drifted++
			fmt.Printf("item=%d warehouse=%d cached=%s derived=%s\n",
				m.ItemId, m.WarehouseId, m.Cached.String(), m.Derived.String())
		}
	}
	fmt.Printf("reconciled %d item(s), %d drifted balance(s) repaired\n", len(itemIDs), drifted)
}
