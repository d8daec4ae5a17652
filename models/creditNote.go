package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote is credit a party holds against future documents. Only Open
// credit notes count towards the party's outstanding balance.
type CreditNote struct {
	ID               int              `gorm:"primary_key" json:"id"`
	BusinessId       string           `gorm:"index:idx_credit_note_party,priority:1;not null" json:"business_id"`
	PartyType        PartyType        `gorm:"index:idx_credit_note_party,priority:2;size:20;not null" json:"party_type"`
	PartyId          int              `gorm:"index:idx_credit_note_party,priority:3;not null" json:"party_id"`
	CreditNoteNumber string           `gorm:"size:255" json:"credit_note_number"`
	CreditNoteDate   time.Time        `gorm:"not null" json:"credit_note_date"`
	Amount           decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Status           CreditNoteStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCreditNote struct {
	PartyType        PartyType       `json:"party_type" validate:"required,oneof=Customer Supplier"`
	PartyId          int             `json:"party_id" validate:"required,gt=0"`
	CreditNoteNumber string          `json:"credit_note_number" validate:"max=255"`
	CreditNoteDate   *time.Time      `json:"credit_note_date"`
	Amount           decimal.Decimal `json:"amount"`
}
