package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocatableDocument is an invoice (receivable) or bill (payable) that
// payments are applied against. BalanceDue only ever decreases.
type AllocatableDocument struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index:idx_alloc_doc_party,priority:1;uniqueIndex:idx_alloc_doc_number,priority:1;size:64;not null" json:"business_id"`
	DocumentType   DocumentType    `gorm:"index:idx_alloc_doc_party,priority:2;uniqueIndex:idx_alloc_doc_number,priority:2;size:20;not null" json:"document_type"`
	PartyId        int             `gorm:"index:idx_alloc_doc_party,priority:3;not null" json:"party_id"`
	DocumentNumber *string         `gorm:"uniqueIndex:idx_alloc_doc_number,priority:3;size:255" json:"document_number,omitempty"`
	DocumentDate   time.Time       `gorm:"not null" json:"document_date"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	BalanceDue     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_due"`
	Status         DocumentStatus  `gorm:"size:20;not null" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDocument struct {
	DocumentType   DocumentType    `json:"document_type" validate:"required,oneof=Invoice Bill"`
	PartyId        int             `json:"party_id" validate:"required,gt=0"`
	DocumentNumber string          `json:"document_number" validate:"max=255"`
	DocumentDate   *time.Time      `json:"document_date"`
	Total          decimal.Decimal `json:"total"`
}

// Number is the caller-supplied document number, "" when none was given.
// Blank numbers are stored as NULL so they never collide.
func (d *AllocatableDocument) Number() string {
	if d.DocumentNumber == nil {
		return ""
	}
	return *d.DocumentNumber
}

// PaidAmount is how much of the document has been settled so far.
func (d AllocatableDocument) PaidAmount() decimal.Decimal {
	return d.Total.Sub(d.BalanceDue)
}

func (d AllocatableDocument) isOpen() bool {
	return d.Status != DocumentStatusVoid && d.BalanceDue.IsPositive()
}

// GetDocumentStatus derives the payment status from what is left to pay.
// A zero-total document is Paid from the start.
func GetDocumentStatus(balanceDue, total decimal.Decimal) DocumentStatus {
	if !balanceDue.IsPositive() {
		return DocumentStatusPaid
	}
	if balanceDue.LessThan(total) {
		return DocumentStatusPartialPaid
	}
	return DocumentStatusOpen
}
