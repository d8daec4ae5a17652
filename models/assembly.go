package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Assembly is a bill of materials: building one unit of FinishedItemId
// consumes Quantity of every component.
type Assembly struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	BusinessId     string              `gorm:"index;not null" json:"business_id"`
	FinishedItemId int                 `gorm:"index;not null" json:"finished_item_id"`
	Name           string              `gorm:"size:255" json:"name"`
	Components     []AssemblyComponent `gorm:"foreignKey:AssemblyId" json:"components"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

type AssemblyComponent struct {
	ID         int             `gorm:"primary_key" json:"id"`
	AssemblyId int             `gorm:"index;not null" json:"assembly_id"`
	ItemId     int             `gorm:"not null" json:"item_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
}

type NewAssembly struct {
	FinishedItemId int                    `json:"finished_item_id" validate:"required,gt=0"`
	Name           string                 `json:"name" validate:"max=255"`
	Components     []NewAssemblyComponent `json:"components" validate:"required,min=1,dive"`
}

type NewAssemblyComponent struct {
	ItemId   int             `json:"item_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

type BuildResult struct {
	ReferenceNo string          `json:"reference_no"`
	Consumed    []StockMovement `json:"consumed"`
	Produced    StockMovement   `json:"produced"`
}

func (a Assembly) clone() Assembly {
	a.Components = append([]AssemblyComponent(nil), a.Components...)
	return a
}
