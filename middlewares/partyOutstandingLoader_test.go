package middlewares_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/middlewares"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func TestPartyOutstandingLoaderBatchesAcrossPartyTypes(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	engine := models.NewEngine(models.EngineOptions{
		Store:    models.NewMemoryStore(),
		Settings: config.DefaultLedgerSettings(),
		Logger:   logger,
	})
	ctx := utils.SetBusinessIdInContext(context.Background(), "11111111-2222-3333-4444-555555555555")

	for _, doc := range []models.NewDocument{
		{DocumentType: models.DocumentTypeInvoice, PartyId: 1, Total: decimal.NewFromInt(100)},
		{DocumentType: models.DocumentTypeInvoice, PartyId: 1, Total: decimal.NewFromInt(20)},
		{DocumentType: models.DocumentTypeInvoice, PartyId: 2, Total: decimal.NewFromInt(5)},
		{DocumentType: models.DocumentTypeBill, PartyId: 1, Total: decimal.NewFromInt(70)},
	} {
		if _, err := engine.Documents.CreateDocument(ctx, &doc); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
	}

	ctx = middlewares.WithLoaders(ctx, middlewares.NewLoaders(engine))

	var (
		wg       sync.WaitGroup
		supplier decimal.Decimal
		errSup   error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		supplier, errSup = middlewares.GetPartyOutstanding(ctx, models.PartyTypeSupplier, 1)
	}()
	customers, errs := middlewares.GetPartiesOutstanding(ctx, models.PartyTypeCustomer, []int{1, 2, 3})
	wg.Wait()

	for _, err := range append(errs, errSup) {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	want := []int64{120, 5, 0}
	for i, w := range want {
		if !customers[i].Equal(decimal.NewFromInt(w)) {
			t.Fatalf("customer %d outstanding = %s, want %d", i+1, customers[i], w)
		}
	}
	if !supplier.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("supplier outstanding = %s, want 70", supplier)
	}
}
