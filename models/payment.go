package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is an incoming (customer) or outgoing (supplier) payment. Once
// recorded it is never edited; Allocations says where the money went.
type Payment struct {
	ID               int                 `gorm:"primary_key" json:"id"`
	BusinessId       string              `gorm:"index:idx_payment_party,priority:1;not null" json:"business_id"`
	PaymentType      PaymentType         `gorm:"index:idx_payment_party,priority:2;size:20;not null" json:"payment_type"`
	PartyId          int                 `gorm:"index:idx_payment_party,priority:3;not null" json:"party_id"`
	TargetDocumentId *int                `gorm:"default:null" json:"target_document_id"`
	PaymentDate      time.Time           `gorm:"not null" json:"payment_date"`
	Amount           decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AllocatedAmount  decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"allocated_amount"`
	UnappliedAmount  decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"unapplied_amount"`
	PaymentMode      string              `gorm:"size:100;default:null" json:"payment_mode"`
	ReferenceNumber  string              `gorm:"size:255;default:null" json:"reference_number"`
	Notes            string              `gorm:"type:text;default:null" json:"notes"`
	Allocations      []PaymentAllocation `gorm:"foreignKey:PaymentId" json:"allocations"`
	CreatedBy        string              `gorm:"size:100" json:"created_by"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// PaymentAllocation is the portion of a payment applied to one document,
// with the document's balance either side of it.
type PaymentAllocation struct {
	ID            int             `gorm:"primary_key" json:"id"`
	PaymentId     int             `gorm:"index;not null" json:"payment_id"`
	DocumentId    int             `gorm:"index;not null" json:"document_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_after"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	PartyId          int             `json:"party_id" validate:"required,gt=0"`
	Amount           decimal.Decimal `json:"amount"`
	TargetDocumentId *int            `json:"target_document_id" validate:"omitempty,gt=0"`
	PaymentDate      *time.Time      `json:"payment_date"`
	PaymentMode      string          `json:"payment_mode" validate:"max=100"`
	ReferenceNumber  string          `json:"reference_number" validate:"max=255"`
	Notes            string          `json:"notes"`
}

func (p *Payment) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

func (p *Payment) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

func (p Payment) clone() Payment {
	p.Allocations = append([]PaymentAllocation(nil), p.Allocations...)
	if p.TargetDocumentId != nil {
		id := *p.TargetDocumentId
		p.TargetDocumentId = &id
	}
	return p
}
