package models

import (
	"context"

	"github.com/shopspring/decimal"
)

type MovementFilter struct {
	ItemId int
	// WarehouseId narrows to one warehouse; nil means every warehouse.
	WarehouseId *int
}

type DocumentFilter struct {
	DocumentType DocumentType
	PartyIds     []int
	// OpenOnly keeps non-void documents with a positive balance due.
	OpenOnly bool
	// IncludeVoid keeps voided documents; ignored when OpenOnly is set.
	IncludeVoid bool
}

// StoreReader is the read side shared by a Store and its transactions.
// Every method is scoped to one business.
type StoreReader interface {
	SumStock(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, error)
	// ScanMovements calls fn for each matching movement ordered by
	// (MovementDate, ID) until fn returns false.
	ScanMovements(ctx context.Context, businessId string, filter MovementFilter, fn func(StockMovement) bool) error
	GetAssembly(ctx context.Context, businessId string, id int) (*Assembly, error)
	GetDocument(ctx context.Context, businessId string, id int) (*AllocatableDocument, error)
	// ListDocuments returns documents oldest first: (DocumentDate, ID).
	ListDocuments(ctx context.Context, businessId string, filter DocumentFilter) ([]AllocatableDocument, error)
	GetCreditNote(ctx context.Context, businessId string, id int) (*CreditNote, error)
	ListCreditNotes(ctx context.Context, businessId string, partyType PartyType, partyIds []int) ([]CreditNote, error)
	GetPayment(ctx context.Context, businessId string, id int) (*Payment, error)
	ListPayments(ctx context.Context, businessId string, paymentType PaymentType, partyIds []int) ([]Payment, error)
}

// StoreTx is a unit of work. Writes become visible to other readers only
// when the surrounding WithinTx returns nil.
type StoreTx interface {
	StoreReader
	AppendMovements(ctx context.Context, movements []*StockMovement) error
	NextSequence(ctx context.Context, businessId string, name string) (int, error)
	CreateAssembly(ctx context.Context, assembly *Assembly) error
	CreateDocument(ctx context.Context, document *AllocatableDocument) error
	// UpdateDocumentBalance persists BalanceDue and Status only.
	UpdateDocumentBalance(ctx context.Context, document *AllocatableDocument) error
	CreatePayment(ctx context.Context, payment *Payment) error
	CreateCreditNote(ctx context.Context, creditNote *CreditNote) error
	UpdateCreditNoteStatus(ctx context.Context, creditNote *CreditNote) error
}

type Store interface {
	StoreReader
	// WithinTx runs fn atomically: either every write it made commits or none does.
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error
}
