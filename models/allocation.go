package models

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// AllocationEngine applies payments to a party's open documents: first to
// an explicit target, then oldest document first. Receivables and payables
// are two instances of the same engine.
type AllocationEngine struct {
	ledgerDeps
	tracker      *DocumentBalanceTracker
	partyType    PartyType
	documentType DocumentType
	paymentType  PaymentType
}

func newAllocationEngine(deps ledgerDeps, tracker *DocumentBalanceTracker, partyType PartyType) *AllocationEngine {
	paymentType := PaymentTypeCustomerPayment
	if partyType == PartyTypeSupplier {
		paymentType = PaymentTypeSupplierPayment
	}
	return &AllocationEngine{
		ledgerDeps:   deps,
		tracker:      tracker,
		partyType:    partyType,
		documentType: partyType.DocumentType(),
		paymentType:  paymentType,
	}
}

type AllocationResult struct {
	Payment     *Payment              `json:"payment"`
	Allocations []PaymentAllocation   `json:"allocations"`
	Documents   []AllocatableDocument `json:"documents"`
	Allocated   decimal.Decimal       `json:"allocated"`
	Unapplied   decimal.Decimal       `json:"unapplied"`
}

func (a *AllocationEngine) PartyType() PartyType {
	return a.partyType
}

// Allocate records a payment of amount from partyId with no further detail.
func (a *AllocationEngine) Allocate(ctx context.Context, partyId int, amount decimal.Decimal, targetDocumentId *int) (*AllocationResult, error) {
	return a.RecordPayment(ctx, &NewPayment{
		PartyId:          partyId,
		Amount:           amount,
		TargetDocumentId: targetDocumentId,
	})
}

// RecordPayment stores an immutable payment and reduces the balances it
// pays off. Whatever no open document can absorb stays unapplied on the
// payment; overpaying is not an error.
func (a *AllocationEngine) RecordPayment(ctx context.Context, input *NewPayment) (result *AllocationResult, err error) {
	ctx, end := a.start(ctx, "AllocationEngine.RecordPayment")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, &InvalidAmountError{Field: "amount", Amount: input.Amount, Reason: "must be positive"}
	}

	release, err := a.lock(ctx, partyLockKey(businessId, a.partyType, input.PartyId))
	if err != nil {
		return nil, err
	}
	defer release()

	actor, correlationId := actorAndCorrelation(ctx)
	payment := &Payment{
		BusinessId:       businessId,
		PaymentType:      a.paymentType,
		PartyId:          input.PartyId,
		TargetDocumentId: input.TargetDocumentId,
		PaymentDate:      dateOrNow(input.PaymentDate, a.clock),
		Amount:           input.Amount,
		PaymentMode:      input.PaymentMode,
		ReferenceNumber:  input.ReferenceNumber,
		Notes:            input.Notes,
		CreatedBy:        actor,
		CorrelationId:    correlationId,
	}

	result = &AllocationResult{}
	err = a.store.WithinTx(ctx, func(tx StoreTx) error {
		remaining := input.Amount
		var allocations []PaymentAllocation
		var documents []AllocatableDocument

		apply := func(documentId int) error {
			absorbed, doc, err := a.tracker.ReduceBalance(ctx, tx, businessId, documentId, remaining)
			if err != nil {
				return err
			}
			if absorbed.IsZero() {
				return nil
			}
			allocations = append(allocations, PaymentAllocation{
				DocumentId:    doc.ID,
				Amount:        absorbed,
				BalanceBefore: doc.BalanceDue.Add(absorbed),
				BalanceAfter:  doc.BalanceDue,
			})
			documents = append(documents, *doc)
			remaining = remaining.Sub(absorbed)
			return nil
		}

		if input.TargetDocumentId != nil {
			if err := a.checkTarget(ctx, tx, businessId, input.PartyId, *input.TargetDocumentId); err != nil {
				return err
			}
			if err := apply(*input.TargetDocumentId); err != nil {
				return err
			}
		}

		if remaining.IsPositive() {
			open, err := tx.ListDocuments(ctx, businessId, DocumentFilter{
				DocumentType: a.documentType,
				PartyIds:     []int{input.PartyId},
				OpenOnly:     true,
			})
			if err != nil {
				return err
			}
			sortDocumentsFIFO(open)
			for _, doc := range open {
				if !remaining.IsPositive() {
					break
				}
				if input.TargetDocumentId != nil && doc.ID == *input.TargetDocumentId {
					continue
				}
				if err := apply(doc.ID); err != nil {
					return err
				}
			}
		}

		payment.Allocations = allocations
		payment.AllocatedAmount = input.Amount.Sub(remaining)
		payment.UnappliedAmount = remaining
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		result.Payment = payment
		result.Allocations = payment.Allocations
		result.Documents = documents
		result.Allocated = payment.AllocatedAmount
		result.Unapplied = payment.UnappliedAmount
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.notify(ctx, businessId, AuditActionAllocate, string(a.paymentType), payment.ID,
		fmt.Sprintf("%s of %s from party %d: %s allocated across %d documents, %s unapplied",
			a.paymentType, payment.Amount.String(), payment.PartyId,
			result.Allocated.String(), len(result.Allocations), result.Unapplied.String()))
	return result, nil
}

// checkTarget rejects a target that does not exist or belongs to another
// party or document type. A target that is already paid is accepted and
// simply absorbs nothing.
func (a *AllocationEngine) checkTarget(ctx context.Context, tx StoreTx, businessId string, partyId int, documentId int) error {
	doc, err := tx.GetDocument(ctx, businessId, documentId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return &DocumentNotFoundError{DocumentId: documentId}
	} else if err != nil {
		return err
	}
	if doc.DocumentType != a.documentType {
		return &DocumentNotFoundError{DocumentId: documentId, Reason: fmt.Sprintf("not a %s", a.documentType)}
	}
	if doc.PartyId != partyId {
		return &DocumentNotFoundError{DocumentId: documentId, Reason: fmt.Sprintf("does not belong to party %d", partyId)}
	}
	return nil
}
