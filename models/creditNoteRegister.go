package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
)

// CreditNoteRegister records credit notes and their Open -> Closed/Void
// transitions. Transitions take the party lock so they never interleave
// with an allocation or balance read for the same party.
type CreditNoteRegister struct {
	ledgerDeps
}

func (r *CreditNoteRegister) CreateCreditNote(ctx context.Context, input *NewCreditNote) (creditNote *CreditNote, err error) {
	ctx, end := r.start(ctx, "CreditNoteRegister.CreateCreditNote")
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

	release, err := r.lock(ctx, partyLockKey(businessId, input.PartyType, input.PartyId))
	if err != nil {
		return nil, err
	}
	defer release()

	creditNote = &CreditNote{
		BusinessId:       businessId,
		PartyType:        input.PartyType,
		PartyId:          input.PartyId,
		CreditNoteNumber: input.CreditNoteNumber,
		CreditNoteDate:   dateOrNow(input.CreditNoteDate, r.clock),
		Amount:           input.Amount,
		Status:           CreditNoteStatusOpen,
	}
	err = r.store.WithinTx(ctx, func(tx StoreTx) error {
		return tx.CreateCreditNote(ctx, creditNote)
	})
	if err != nil {
		return nil, err
	}
	r.notify(ctx, businessId, AuditActionCreate, "CreditNote", creditNote.ID,
		fmt.Sprintf("credit note %s of %s for %s %d", creditNote.CreditNoteNumber,
			creditNote.Amount.String(), creditNote.PartyType, creditNote.PartyId))
	return creditNote, nil
}

func (r *CreditNoteRegister) GetCreditNote(ctx context.Context, id int) (creditNote *CreditNote, err error) {
	ctx, end := r.start(ctx, "CreditNoteRegister.GetCreditNote")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.GetCreditNote(ctx, businessId, id)
}

func (r *CreditNoteRegister) CloseCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	return r.transition(ctx, "CreditNoteRegister.CloseCreditNote", id, CreditNoteStatusClosed, AuditActionClose)
}

func (r *CreditNoteRegister) VoidCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	return r.transition(ctx, "CreditNoteRegister.VoidCreditNote", id, CreditNoteStatusVoid, AuditActionVoid)
}

func (r *CreditNoteRegister) transition(ctx context.Context, name string, id int, status CreditNoteStatus, action AuditAction) (creditNote *CreditNote, err error) {
	ctx, end := r.start(ctx, name)
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	current, err := r.store.GetCreditNote(ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := r.lock(ctx, partyLockKey(businessId, current.PartyType, current.PartyId))
	if err != nil {
		return nil, err
	}
	defer release()

	err = r.store.WithinTx(ctx, func(tx StoreTx) error {
		cn, err := tx.GetCreditNote(ctx, businessId, id)
		if err != nil {
			return err
		}
		if cn.Status != CreditNoteStatusOpen {
			return fmt.Errorf("%w: credit note %d is %s", ErrInvalidState, id, cn.Status)
		}
		cn.Status = status
		if err := tx.UpdateCreditNoteStatus(ctx, cn); err != nil {
			return err
		}
		creditNote = cn
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.notify(ctx, businessId, action, "CreditNote", creditNote.ID,
		fmt.Sprintf("credit note %s %s", creditNote.CreditNoteNumber, creditNote.Status))
	return creditNote, nil
}
