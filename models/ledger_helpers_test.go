package models_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const testBusinessId = "11111111-2222-3333-4444-555555555555"

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Events() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, models.AuditEvent) error {
	return errors.New("audit sink unavailable")
}

// mapCache is an in-process BalanceCache for exercising the cache paths.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string]decimal.Decimal
	generations map[string]int64
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]decimal.Decimal), generations: make(map[string]int64)}
}

func cacheKey(businessId string, itemId int, warehouseId *int) string {
	if warehouseId == nil {
		return fmt.Sprintf("%s:%d:all", businessId, itemId)
	}
	return fmt.Sprintf("%s:%d:%d", businessId, itemId, *warehouseId)
}

func generationKey(businessId string, itemId int) string {
	return fmt.Sprintf("%s:%d", businessId, itemId)
}

func (c *mapCache) Get(_ context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey(businessId, itemId, warehouseId)]
	return v, ok
}

func (c *mapCache) Generation(_ context.Context, businessId string, itemId int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[generationKey(businessId, itemId)]
}

func (c *mapCache) Set(_ context.Context, businessId string, itemId int, warehouseId *int, generation int64, balance decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation < 0 || c.generations[generationKey(businessId, itemId)] != generation {
		return
	}
	c.entries[cacheKey(businessId, itemId, warehouseId)] = balance
}

// plant overwrites an entry regardless of generation, standing in for drift.
func (c *mapCache) plant(businessId string, itemId int, warehouseId *int, balance decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(businessId, itemId, warehouseId)] = balance
}

func (c *mapCache) Invalidate(_ context.Context, businessId string, keys ...models.StockKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bumped := make(map[int]bool)
	for _, k := range keys {
		if !bumped[k.ItemId] {
			bumped[k.ItemId] = true
			c.generations[generationKey(businessId, k.ItemId)]++
		}
		wh := k.WarehouseId
		delete(c.entries, cacheKey(businessId, k.ItemId, &wh))
		delete(c.entries, cacheKey(businessId, k.ItemId, nil))
	}
}

// pausingStore stalls the first plain SumStock after it has read the ledger,
// so a test can commit a write between a cache miss and the cache fill.
type pausingStore struct {
	*models.MemoryStore
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		MemoryStore: models.NewMemoryStore(),
		read:        make(chan struct{}),
		resume:      make(chan struct{}),
	}
}

func (s *pausingStore) SumStock(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, error) {
	balance, err := s.MemoryStore.SumStock(ctx, businessId, itemId, warehouseId)
	s.once.Do(func() {
		close(s.read)
		<-s.resume
	})
	return balance, err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(t *testing.T) (*models.Engine, *recordingNotifier) {
	t.Helper()
	audit := &recordingNotifier{}
	engine := models.NewEngine(models.EngineOptions{
		Store:    models.NewMemoryStore(),
		Settings: config.DefaultLedgerSettings(),
		Audit:    audit,
		Logger:   quietLogger(),
	})
	return engine, audit
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = utils.SetBusinessIdInContext(ctx, testBusinessId)
	ctx = utils.SetUserNameInContext(ctx, "tester")
	return ctx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func day(d int) *time.Time {
	t := time.Date(2024, time.January, d, 9, 0, 0, 0, time.UTC)
	return &t
}

func collect(t *testing.T, seq iter.Seq2[models.StockMovement, error]) []models.StockMovement {
	t.Helper()
	var out []models.StockMovement
	for m, err := range seq {
		if err != nil {
			t.Fatalf("iterating movements: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func mustRecord(t *testing.T, ctx context.Context, engine *models.Engine, input *models.NewStockMovement) *models.StockMovement {
	t.Helper()
	m, err := engine.Stock.RecordMovement(ctx, input)
	if err != nil {
		t.Fatalf("RecordMovement(%+v): %v", input, err)
	}
	return m
}

func stockIn(itemId, warehouseId int, qty string) *models.NewStockMovement {
	return &models.NewStockMovement{
		ItemId:        itemId,
		WarehouseId:   warehouseId,
		ReferenceType: models.StockReferenceTypeOpening,
		ReferenceNo:   "OPEN",
		InQty:         dec(qty),
	}
}

func stockOut(itemId, warehouseId int, qty string) *models.NewStockMovement {
	return &models.NewStockMovement{
		ItemId:        itemId,
		WarehouseId:   warehouseId,
		ReferenceType: models.StockReferenceTypeSales,
		ReferenceNo:   "INV",
		OutQty:        dec(qty),
	}
}

func mustBalance(t *testing.T, ctx context.Context, engine *models.Engine, itemId int, warehouseId *int) decimal.Decimal {
	t.Helper()
	b, err := engine.Stock.GetBalance(ctx, itemId, warehouseId)
	if err != nil {
		t.Fatalf("GetBalance(%d): %v", itemId, err)
	}
	return b
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got.String(), want)
	}
}

func mustDocument(t *testing.T, ctx context.Context, engine *models.Engine, docType models.DocumentType, partyId int, number string, date *time.Time, total string) *models.AllocatableDocument {
	t.Helper()
	doc, err := engine.Documents.CreateDocument(ctx, &models.NewDocument{
		DocumentType:   docType,
		PartyId:        partyId,
		DocumentNumber: number,
		DocumentDate:   date,
		Total:          dec(total),
	})
	if err != nil {
		t.Fatalf("CreateDocument(%s): %v", number, err)
	}
	return doc
}

func mustGetDocument(t *testing.T, ctx context.Context, engine *models.Engine, id int) *models.AllocatableDocument {
	t.Helper()
	doc, err := engine.Documents.GetDocument(ctx, id)
	if err != nil {
		t.Fatalf("GetDocument(%d): %v", id, err)
	}
	return doc
}
