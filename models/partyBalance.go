package models

import (
	"context"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// PartyBalanceCalculator reports what a customer owes us or what we owe a
// supplier.
type PartyBalanceCalculator struct {
	ledgerDeps
}

type PartyBalance struct {
	PartyType PartyType `json:"party_type"`
	PartyId   int       `json:"party_id"`
	// TotalDue sums the balance due of the party's non-void documents.
	TotalDue decimal.Decimal `json:"total_due"`
	// OpenCredits sums the party's open credit notes.
	OpenCredits decimal.Decimal `json:"open_credits"`
	Outstanding decimal.Decimal `json:"outstanding"`
	// AvailableCredit is the credit left over once every document is covered.
	AvailableCredit decimal.Decimal `json:"available_credit"`
	// Unapplied is money received or paid that no document absorbed.
	Unapplied decimal.Decimal `json:"unapplied"`
}

// GetOutstanding is max(0, due on open documents - open credit notes).
func (c *PartyBalanceCalculator) GetOutstanding(ctx context.Context, partyType PartyType, partyId int) (outstanding decimal.Decimal, err error) {
	balances, err := c.GetOutstandingForParties(ctx, partyType, []int{partyId})
	if err != nil {
		return decimal.Zero, err
	}
	return balances[partyId], nil
}

// GetOutstandingForParties computes GetOutstanding for many parties with
// one read per table. Every requested party is present in the result.
func (c *PartyBalanceCalculator) GetOutstandingForParties(ctx context.Context, partyType PartyType, partyIds []int) (result map[int]decimal.Decimal, err error) {
	ctx, end := c.start(ctx, "PartyBalanceCalculator.GetOutstandingForParties")
	defer func() { end(err) }()

	balances, err := c.balances(ctx, partyType, partyIds, false)
	if err != nil {
		return nil, err
	}
	result = make(map[int]decimal.Decimal, len(balances))
	for id, b := range balances {
		result[id] = b.Outstanding
	}
	return result, nil
}

func (c *PartyBalanceCalculator) GetPartyBalance(ctx context.Context, partyType PartyType, partyId int) (balance *PartyBalance, err error) {
	ctx, end := c.start(ctx, "PartyBalanceCalculator.GetPartyBalance")
	defer func() { end(err) }()

	balances, err := c.balances(ctx, partyType, []int{partyId}, true)
	if err != nil {
		return nil, err
	}
	return balances[partyId], nil
}

func (c *PartyBalanceCalculator) balances(ctx context.Context, partyType PartyType, partyIds []int, withPayments bool) (map[int]*PartyBalance, error) {
	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	partyIds = utils.UniqueSlice(partyIds)
	balances := make(map[int]*PartyBalance, len(partyIds))
	if len(partyIds) == 0 {
		return balances, nil
	}
	for _, id := range partyIds {
		balances[id] = &PartyBalance{
			PartyType:       partyType,
			PartyId:         id,
			TotalDue:        decimal.Zero,
			OpenCredits:     decimal.Zero,
			Outstanding:     decimal.Zero,
			AvailableCredit: decimal.Zero,
			Unapplied:       decimal.Zero,
		}
	}

	documents, err := c.store.ListDocuments(ctx, businessId, DocumentFilter{
		DocumentType: partyType.DocumentType(),
		PartyIds:     partyIds,
	})
	if err != nil {
		return nil, err
	}
	for _, doc := range documents {
		if b, ok := balances[doc.PartyId]; ok && doc.Status != DocumentStatusVoid {
			b.TotalDue = b.TotalDue.Add(doc.BalanceDue)
		}
	}

	creditNotes, err := c.store.ListCreditNotes(ctx, businessId, partyType, partyIds)
	if err != nil {
		return nil, err
	}
	for _, cn := range creditNotes {
		if b, ok := balances[cn.PartyId]; ok && cn.Status == CreditNoteStatusOpen {
			b.OpenCredits = b.OpenCredits.Add(cn.Amount)
		}
	}

	if withPayments {
		paymentType := PaymentTypeCustomerPayment
		if partyType == PartyTypeSupplier {
			paymentType = PaymentTypeSupplierPayment
		}
		payments, err := c.store.ListPayments(ctx, businessId, paymentType, partyIds)
		if err != nil {
			return nil, err
		}
		for _, p := range payments {
			if b, ok := balances[p.PartyId]; ok {
				b.Unapplied = b.Unapplied.Add(p.UnappliedAmount)
			}
		}
	}

	for _, b := range balances {
		net := b.TotalDue.Sub(b.OpenCredits)
		if net.IsPositive() {
			b.Outstanding = net
		} else {
			b.AvailableCredit = net.Neg()
		}
	}
	return balances, nil
}
