package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// DocumentBalanceTracker owns the balance-due side of invoices and bills.
type DocumentBalanceTracker struct {
	ledgerDeps
}

func partyLockKey(businessId string, partyType PartyType, partyId int) string {
	return fmt.Sprintf("party:%s:%s:%d", businessId, partyType, partyId)
}

func partyTypeOf(documentType DocumentType) PartyType {
	if documentType == DocumentTypeBill {
		return PartyTypeSupplier
	}
	return PartyTypeCustomer
}

// CreateDocument opens an invoice or bill with its full total due.
// Document numbers, when given, are unique per business and document type.
func (t *DocumentBalanceTracker) CreateDocument(ctx context.Context, input *NewDocument) (document *AllocatableDocument, err error) {
	ctx, end := t.start(ctx, "DocumentBalanceTracker.CreateDocument")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Total.IsNegative() {
		return nil, &InvalidAmountError{Field: "total", Amount: input.Total, Reason: "must not be negative"}
	}

	document = &AllocatableDocument{
		BusinessId:     businessId,
		DocumentType:   input.DocumentType,
		PartyId:        input.PartyId,
		DocumentDate:   dateOrNow(input.DocumentDate, t.clock),
		Total:          input.Total,
		BalanceDue:     input.Total,
		Status:         GetDocumentStatus(input.Total, input.Total),
	}
	if number := strings.TrimSpace(input.DocumentNumber); number != "" {
		document.DocumentNumber = &number
	}
	err = t.store.WithinTx(ctx, func(tx StoreTx) error {
		return tx.CreateDocument(ctx, document)
	})
	if err != nil {
		return nil, err
	}
	t.notify(ctx, businessId, AuditActionCreate, string(document.DocumentType), document.ID,
		fmt.Sprintf("%s %s created for party %d, total %s",
			document.DocumentType, document.Number(), document.PartyId, document.Total.String()))
	return document, nil
}

func (t *DocumentBalanceTracker) GetDocument(ctx context.Context, documentId int) (document *AllocatableDocument, err error) {
	ctx, end := t.start(ctx, "DocumentBalanceTracker.GetDocument")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	document, err = t.store.GetDocument(ctx, businessId, documentId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, &DocumentNotFoundError{DocumentId: documentId}
	}
	return document, err
}

// ListOpenDocuments returns a party's unpaid documents oldest first.
func (t *DocumentBalanceTracker) ListOpenDocuments(ctx context.Context, documentType DocumentType, partyId int) (documents []AllocatableDocument, err error) {
	ctx, end := t.start(ctx, "DocumentBalanceTracker.ListOpenDocuments")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	return t.store.ListDocuments(ctx, businessId, DocumentFilter{
		DocumentType: documentType,
		PartyIds:     []int{partyId},
		OpenOnly:     true,
	})
}

// VoidDocument withdraws a document nothing has been paid against yet.
func (t *DocumentBalanceTracker) VoidDocument(ctx context.Context, documentId int) (document *AllocatableDocument, err error) {
	ctx, end := t.start(ctx, "DocumentBalanceTracker.VoidDocument")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	current, err := t.store.GetDocument(ctx, businessId, documentId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, &DocumentNotFoundError{DocumentId: documentId}
	} else if err != nil {
		return nil, err
	}

	release, err := t.lock(ctx, partyLockKey(businessId, partyTypeOf(current.DocumentType), current.PartyId))
	if err != nil {
		return nil, err
	}
	defer release()

	err = t.store.WithinTx(ctx, func(tx StoreTx) error {
		doc, err := tx.GetDocument(ctx, businessId, documentId)
		if err != nil {
			return err
		}
		if doc.Status == DocumentStatusVoid {
			return fmt.Errorf("%w: document %d is already void", ErrInvalidState, documentId)
		}
		if !doc.BalanceDue.Equal(doc.Total) {
			return fmt.Errorf("%w: document %d has payments applied", ErrInvalidState, documentId)
		}
		doc.Status = DocumentStatusVoid
		if err := tx.UpdateDocumentBalance(ctx, doc); err != nil {
			return err
		}
		document = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.notify(ctx, businessId, AuditActionVoid, string(document.DocumentType), document.ID,
		fmt.Sprintf("%s %s voided", document.DocumentType, document.Number()))
	return document, nil
}

// ReduceBalance applies up to amount to one document inside the caller's
// transaction and returns what the document absorbed. Balances never go
// below zero; a void document absorbs nothing.
func (t *DocumentBalanceTracker) ReduceBalance(ctx context.Context, tx StoreTx, businessId string, documentId int, amount decimal.Decimal) (absorbed decimal.Decimal, document *AllocatableDocument, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil, &InvalidAmountError{Field: "amount", Amount: amount, Reason: "must be positive"}
	}
	document, err = tx.GetDocument(ctx, businessId, documentId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return decimal.Zero, nil, &DocumentNotFoundError{DocumentId: documentId}
	} else if err != nil {
		return decimal.Zero, nil, err
	}
	if !document.isOpen() {
		return decimal.Zero, document, nil
	}

	absorbed = utils.MinDecimal(amount, document.BalanceDue)
	document.BalanceDue = document.BalanceDue.Sub(absorbed)
	document.Status = GetDocumentStatus(document.BalanceDue, document.Total)
	if err := tx.UpdateDocumentBalance(ctx, document); err != nil {
		return decimal.Zero, nil, err
	}
	return absorbed, document, nil
}
