package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/books_ledger/models"
)

func TestGetDocumentStatus(t *testing.T) {
	tests := []struct {
		balanceDue string
		total      string
		want       models.DocumentStatus
	}{
		{"100", "100", models.DocumentStatusOpen},
		{"40", "100", models.DocumentStatusPartialPaid},
		{"0.01", "100", models.DocumentStatusPartialPaid},
		{"0", "100", models.DocumentStatusPaid},
		{"0", "0", models.DocumentStatusPaid},
	}
	for _, tt := range tests {
		if got := models.GetDocumentStatus(dec(tt.balanceDue), dec(tt.total)); got != tt.want {
			t.Errorf("GetDocumentStatus(%s, %s) = %q, want %q", tt.balanceDue, tt.total, got, tt.want)
		}
	}
}

func TestCreateDocument(t *testing.T) {
	engine, audit := newTestEngine(t)
	ctx := testContext()

	doc := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 7, "INV-1", day(1), "150")
	if doc.Status != models.DocumentStatusOpen || !doc.BalanceDue.Equal(doc.Total) {
		t.Fatalf("new document = %+v", doc)
	}
	if doc.BusinessId != testBusinessId {
		t.Fatalf("BusinessId = %q", doc.BusinessId)
	}
	if len(audit.Events()) != 1 || audit.Events()[0].EntityType != "Invoice" {
		t.Fatalf("unexpected audit events %+v", audit.Events())
	}

	zero := mustDocument(t, ctx, engine, models.DocumentTypeBill, 7, "BILL-0", day(1), "0")
	if zero.Status != models.DocumentStatusPaid {
		t.Fatalf("zero-total document status = %q, want Paid", zero.Status)
	}

	_, err := engine.Documents.CreateDocument(ctx, &models.NewDocument{
		DocumentType: models.DocumentTypeInvoice,
		PartyId:      7,
		Total:        dec("-1"),
	})
	if !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("negative total: expected ErrInvalidAmount, got %v", err)
	}

	_, err = engine.Documents.CreateDocument(ctx, &models.NewDocument{
		DocumentType: "Quote",
		PartyId:      7,
		Total:        dec("1"),
	})
	if err == nil {
		t.Fatalf("unknown document type accepted")
	}
}

func TestDocumentNumbersAreUniquePerType(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	blank := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "", day(1), "10")
	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 2, "  ", day(1), "10")
	if blank.DocumentNumber != nil {
		t.Fatalf("blank number stored as %q", *blank.DocumentNumber)
	}

	// Numbers are unique per document type, not across types.
	mustDocument(t, ctx, engine, models.DocumentTypeBill, 1, "X-1", day(1), "10")
	invoice := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, " X-1 ", day(1), "10")
	if invoice.Number() != "X-1" {
		t.Fatalf("number = %q, want trimmed X-1", invoice.Number())
	}

	_, err := engine.Documents.CreateDocument(ctx, &models.NewDocument{
		DocumentType:   models.DocumentTypeInvoice,
		PartyId:        3,
		DocumentNumber: "X-1",
		Total:          dec("5"),
	})
	var dup *models.DuplicateDocumentNumberError
	if !errors.As(err, &dup) || !errors.Is(err, models.ErrDuplicateDocument) || dup.DocumentNumber != "X-1" {
		t.Fatalf("expected DuplicateDocumentNumberError, got %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	_, err := engine.Documents.GetDocument(ctx, 404)
	var notFound *models.DocumentNotFoundError
	if !errors.As(err, &notFound) || notFound.DocumentId != 404 {
		t.Fatalf("expected DocumentNotFoundError, got %v", err)
	}
}

func TestListOpenDocumentsIsFIFO(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	c := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "C", day(5), "10")
	a := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "A", day(1), "10")
	b := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "B", day(5), "10")
	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 2, "other party", day(1), "10")
	mustDocument(t, ctx, engine, models.DocumentTypeBill, 1, "a bill", day(1), "10")
	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "paid", day(1), "0")

	docs, err := engine.Documents.ListOpenDocuments(ctx, models.DocumentTypeInvoice, 1)
	if err != nil {
		t.Fatalf("ListOpenDocuments: %v", err)
	}
	want := []int{a.ID, c.ID, b.ID}
	if len(docs) != len(want) {
		t.Fatalf("open documents = %d, want %d", len(docs), len(want))
	}
	for i, id := range want {
		if docs[i].ID != id {
			t.Fatalf("position %d: got document %d, want %d", i, docs[i].ID, id)
		}
	}
}

func TestVoidDocument(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	untouched := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "INV-1", day(1), "100")
	paid := mustDocument(t, ctx, engine, models.DocumentTypeInvoice, 1, "INV-2", day(2), "50")
	if _, err := engine.Receivables.Allocate(ctx, 1, dec("10"), ptr(paid.ID)); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	voided, err := engine.Documents.VoidDocument(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("VoidDocument: %v", err)
	}
	if voided.Status != models.DocumentStatusVoid {
		t.Fatalf("status = %q", voided.Status)
	}
	if _, err := engine.Documents.VoidDocument(ctx, untouched.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("double void: expected ErrInvalidState, got %v", err)
	}
	if _, err := engine.Documents.VoidDocument(ctx, paid.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("void with payments: expected ErrInvalidState, got %v", err)
	}
	if _, err := engine.Documents.VoidDocument(ctx, 999); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Fatalf("void unknown: expected ErrDocumentNotFound, got %v", err)
	}

	outstanding, err := engine.Parties.GetOutstanding(ctx, models.PartyTypeCustomer, 1)
	if err != nil {
		t.Fatalf("GetOutstanding: %v", err)
	}
	assertDecimal(t, "outstanding without the void invoice", outstanding, "40")

	// Void documents absorb nothing.
	result, err := engine.Receivables.Allocate(ctx, 1, dec("100"), nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	assertDecimal(t, "allocated", result.Allocated, "40")
	assertDecimal(t, "unapplied", result.Unapplied, "60")
	if doc := mustGetDocument(t, ctx, engine, untouched.ID); !doc.BalanceDue.Equal(dec("100")) {
		t.Fatalf("void document balance changed to %s", doc.BalanceDue)
	}
}
