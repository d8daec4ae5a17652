package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
)

func TestGetOutstandingSubtractsOpenCredits(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, customerId, "INV-1", day(1), "100")
	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, customerId, "INV-2", day(2), "50")
	mustDocument(t, ctx, engine, models.DocumentTypeBill, customerId, "BILL-1", day(2), "500")
	if _, err := engine.Receivables.Allocate(ctx, customerId, dec("30"), nil); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	open, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
		PartyType: models.PartyTypeCustomer, PartyId: customerId, CreditNoteNumber: "CN-1", Amount: dec("20"),
	})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	closed, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
		PartyType: models.PartyTypeCustomer, PartyId: customerId, CreditNoteNumber: "CN-2", Amount: dec("1000"),
	})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	if _, err := engine.CreditNotes.CloseCreditNote(ctx, closed.ID); err != nil {
		t.Fatalf("CloseCreditNote: %v", err)
	}
	if _, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
		PartyType: models.PartyTypeSupplier, PartyId: customerId, CreditNoteNumber: "SC-1", Amount: dec("7"),
	}); err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}

	outstanding, err := engine.Parties.GetOutstanding(ctx, models.PartyTypeCustomer, customerId)
	if err != nil {
		t.Fatalf("GetOutstanding: %v", err)
	}
	// 150 due - 30 paid - 20 open credit.
	assertDecimal(t, "customer outstanding", outstanding, "100")

	balance, err := engine.Parties.GetPartyBalance(ctx, models.PartyTypeCustomer, customerId)
	if err != nil {
		t.Fatalf("GetPartyBalance: %v", err)
	}
	assertDecimal(t, "total due", balance.TotalDue, "120")
	assertDecimal(t, "open credits", balance.OpenCredits, open.Amount.String())
	assertDecimal(t, "available credit", balance.AvailableCredit, "0")

	supplier, err := engine.Parties.GetOutstanding(ctx, models.PartyTypeSupplier, customerId)
	if err != nil {
		t.Fatalf("GetOutstanding: %v", err)
	}
	assertDecimal(t, "supplier outstanding", supplier, "493")
}

func TestGetOutstandingIsClampedAtZero(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	mustDocument(t, ctx, engine, models.DocumentTypeInvoice, customerId, "INV-1", day(1), "40")
	if _, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
		PartyType: models.PartyTypeCustomer, PartyId: customerId, Amount: dec("100"),
	}); err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}

	outstanding, err := engine.Parties.GetOutstanding(ctx, models.PartyTypeCustomer, customerId)
	if err != nil {
		t.Fatalf("GetOutstanding: %v", err)
	}
	assertDecimal(t, "outstanding", outstanding, "0")

	balance, err := engine.Parties.GetPartyBalance(ctx, models.PartyTypeCustomer, customerId)
	if err != nil {
		t.Fatalf("GetPartyBalance: %v", err)
	}
	assertDecimal(t, "available credit", balance.AvailableCredit, "60")
}

func TestGetOutstandingForParties(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := testContext()

	mustDocument(t, ctx, engine, models.DocumentTypeBill, 1, "B-1", day(1), "10")
	mustDocument(t, ctx, engine, models.DocumentTypeBill, 2, "B-2", day(1), "20")
	mustDocument(t, ctx, engine, models.DocumentTypeBill, 2, "B-3", day(2), "5")

	result, err := engine.Parties.GetOutstandingForParties(ctx, models.PartyTypeSupplier, []int{1, 2, 3, 2})
	if err != nil {
		t.Fatalf("GetOutstandingForParties: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("parties = %d, want 3", len(result))
	}
	assertDecimal(t, "party 1", result[1], "10")
	assertDecimal(t, "party 2", result[2], "25")
	assertDecimal(t, "party 3", result[3], "0")
}

func TestGetOutstandingRequiresBusinessId(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.Parties.GetOutstanding(utils.SetBusinessIdInContext(testContext(), ""), models.PartyTypeCustomer, 1); !errors.Is(err, utils.ErrorBusinessIdRequired) {
		t.Fatalf("expected ErrorBusinessIdRequired, got %v", err)
	}
}

func TestCreditNoteTransitions(t *testing.T) {
	engine, audit := newTestEngine(t)
	ctx := testContext()

	cn, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
		PartyType: models.PartyTypeSupplier, PartyId: 4, CreditNoteNumber: "SC-1", Amount: dec("15"),
	})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	if cn.Status != models.CreditNoteStatusOpen {
		t.Fatalf("status = %q", cn.Status)
	}

	voided, err := engine.CreditNotes.VoidCreditNote(ctx, cn.ID)
	if err != nil {
		t.Fatalf("VoidCreditNote: %v", err)
	}
	if voided.Status != models.CreditNoteStatusVoid {
		t.Fatalf("status = %q", voided.Status)
	}
	if _, err := engine.CreditNotes.CloseCreditNote(ctx, cn.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("closing a void credit note: expected ErrInvalidState, got %v", err)
	}
	if _, err := engine.CreditNotes.CloseCreditNote(ctx, 999); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("closing unknown credit note: expected ErrorRecordNotFound, got %v", err)
	}

	for _, amount := range []string{"0", "-1"} {
		_, err := engine.CreditNotes.CreateCreditNote(ctx, &models.NewCreditNote{
			PartyType: models.PartyTypeSupplier, PartyId: 4, Amount: dec(amount),
		})
		if !errors.Is(err, models.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	events := audit.Events()
	if len(events) != 2 || events[1].Action != models.AuditActionVoid {
		t.Fatalf("unexpected audit events %+v", events)
	}
}
