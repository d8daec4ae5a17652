package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinels for errors.Is; the typed errors below carry the details.
var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInsufficientComponent = errors.New("insufficient component stock")
	ErrAssemblyNotFound      = errors.New("assembly not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrDuplicateDocument     = errors.New("duplicate document number")
	// ErrInvalidState: the record's status does not allow the requested change.
	ErrInvalidState = errors.New("invalid state")
)

// InsufficientStockError: an outbound movement would take the balance below
// zero while negative stock is disallowed.
type InsufficientStockError struct {
	ItemId      int
	WarehouseId int
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d in warehouse %d: requested %s, available %s",
		e.ItemId, e.WarehouseId, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InsufficientComponentError names the first under-stocked component of a build.
type InsufficientComponentError struct {
	AssemblyId  int
	ItemId      int
	WarehouseId int
	Needed      decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientComponentError) Error() string {
	return fmt.Sprintf("insufficient stock of component item %d in warehouse %d for assembly %d: needed %s, available %s",
		e.ItemId, e.WarehouseId, e.AssemblyId, e.Needed.String(), e.Available.String())
}

func (e *InsufficientComponentError) Is(target error) bool { return target == ErrInsufficientComponent }

type AssemblyNotFoundError struct {
	AssemblyId int
}

func (e *AssemblyNotFoundError) Error() string {
	return fmt.Sprintf("assembly %d not found", e.AssemblyId)
}

func (e *AssemblyNotFoundError) Is(target error) bool { return target == ErrAssemblyNotFound }

type DocumentNotFoundError struct {
	DocumentId int
	Reason     string
}

func (e *DocumentNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("document %d not found: %s", e.DocumentId, e.Reason)
	}
	return fmt.Sprintf("document %d not found", e.DocumentId)
}

func (e *DocumentNotFoundError) Is(target error) bool { return target == ErrDocumentNotFound }

type InvalidAmountError struct {
	Field  string
	Amount decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Amount.String(), e.Reason)
}

func (e *InvalidAmountError) Is(target error) bool { return target == ErrInvalidAmount }

// DuplicateDocumentNumberError: the business already has a document of this
// type with the same number.
type DuplicateDocumentNumberError struct {
	DocumentType   DocumentType
	DocumentNumber string
}

func (e *DuplicateDocumentNumberError) Error() string {
	return fmt.Sprintf("%s number %q is already in use", e.DocumentType, e.DocumentNumber)
}

func (e *DuplicateDocumentNumberError) Is(target error) bool { return target == ErrDuplicateDocument }
