package models

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAppendOnly           = errors.New("ledger records are append-only")
	ErrInvalidReferenceType = errors.New("invalid stock reference type")
)

// StockMovement is one immutable line of the stock ledger. Corrections are
// new ADJUSTMENT movements, never edits.
type StockMovement struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index:idx_stock_mv_key,priority:1;not null" json:"business_id"`
	ItemId        int                `gorm:"index:idx_stock_mv_key,priority:2;not null" json:"item_id"`
	WarehouseId   int                `gorm:"index:idx_stock_mv_key,priority:3;not null" json:"warehouse_id"`
	ReferenceType StockReferenceType `gorm:"size:20;not null" json:"reference_type"`
	ReferenceNo   string             `gorm:"size:100;index;not null" json:"reference_no"`
	InQty         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"in_qty"`
	OutQty        decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"out_qty"`
	MovementDate  time.Time          `gorm:"index;not null" json:"movement_date"`
	Note          string             `gorm:"type:text" json:"note"`
	CreatedBy     string             `gorm:"size:100" json:"created_by"`
	CorrelationId string             `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// Delta is the signed effect of the movement on its balance.
func (m StockMovement) Delta() decimal.Decimal {
	return m.InQty.Sub(m.OutQty)
}

type NewStockMovement struct {
	ItemId        int                `json:"item_id" validate:"required,gt=0"`
	WarehouseId   int                `json:"warehouse_id" validate:"required,gt=0"`
	ReferenceType StockReferenceType `json:"reference_type" validate:"required"`
	ReferenceNo   string             `json:"reference_no" validate:"max=100"`
	InQty         decimal.Decimal    `json:"in_qty"`
	OutQty        decimal.Decimal    `json:"out_qty"`
	MovementDate  *time.Time         `json:"movement_date"`
	Note          string             `json:"note"`
}

func (input *NewStockMovement) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.ReferenceType.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidReferenceType, input.ReferenceType)
	}
	if input.InQty.IsNegative() {
		return &InvalidAmountError{Field: "in_qty", Amount: input.InQty, Reason: "must not be negative"}
	}
	if input.OutQty.IsNegative() {
		return &InvalidAmountError{Field: "out_qty", Amount: input.OutQty, Reason: "must not be negative"}
	}
	if input.InQty.IsZero() && input.OutQty.IsZero() {
		return &InvalidAmountError{Field: "qty", Amount: decimal.Zero, Reason: "zero-quantity movement"}
	}
	if input.InQty.IsPositive() && input.OutQty.IsPositive() {
		return &InvalidAmountError{Field: "qty", Amount: input.InQty, Reason: "exactly one of in_qty/out_qty may be non-zero"}
	}
	return nil
}

// StockKey identifies one derived balance.
type StockKey struct {
	ItemId      int `json:"item_id"`
	WarehouseId int `json:"warehouse_id"`
}

func (k StockKey) lockKey(businessId string) string {
	return fmt.Sprintf("stock:%s:%d:%d", businessId, k.ItemId, k.WarehouseId)
}

type StockBalance struct {
	ItemId      int             `json:"item_id"`
	WarehouseId int             `json:"warehouse_id"`
	Balance     decimal.Decimal `json:"balance"`
}

type StockSummary struct {
	ItemId     int             `json:"item_id"`
	Warehouses []StockBalance  `json:"warehouses"`
	Total      decimal.Decimal `json:"total"`
}

type NewStockTransfer struct {
	ItemId          int             `json:"item_id" validate:"required,gt=0"`
	FromWarehouseId int             `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseId   int             `json:"to_warehouse_id" validate:"required,gt=0,nefield=FromWarehouseId"`
	Qty             decimal.Decimal `json:"qty"`
	ReferenceNo     string          `json:"reference_no" validate:"max=100"`
	TransferDate    *time.Time      `json:"transfer_date"`
	Note            string          `json:"note"`
}

func (input *NewStockTransfer) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Qty.IsPositive() {
		return &InvalidAmountError{Field: "qty", Amount: input.Qty, Reason: "must be positive"}
	}
	return nil
}

type BalanceMismatch struct {
	ItemId      int             `json:"item_id"`
	WarehouseId int             `json:"warehouse_id"`
	Cached      decimal.Decimal `json:"cached"`
	Derived     decimal.Decimal `json:"derived"`
}

// SumMovements derives a balance from raw movements.
func SumMovements(movements []StockMovement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		balance = balance.Add(m.InQty).Sub(m.OutQty)
	}
	return balance
}
