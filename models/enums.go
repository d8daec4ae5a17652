package models

import (
	"errors"
	"strings"
)

type StockReferenceType string

const (
	StockReferenceTypeOpening         StockReferenceType = "OPENING"
	StockReferenceTypeSales           StockReferenceType = "SALES"
	StockReferenceTypePurchase        StockReferenceType = "PURCHASE"
	StockReferenceTypeAdjustment      StockReferenceType = "ADJUSTMENT"
	StockReferenceTypeTransfer        StockReferenceType = "TRANSFER"
	StockReferenceTypeAssemblyConsume StockReferenceType = "ASSEMBLY_CONSUME"
	StockReferenceTypeAssemblyProduce StockReferenceType = "ASSEMBLY_PRODUCE"
	StockReferenceTypeDelivery        StockReferenceType = "DELIVERY"
	StockReferenceTypeSalesReturn     StockReferenceType = "SALES_RETURN"
	StockReferenceTypeGRN             StockReferenceType = "GRN"
	StockReferenceTypePurchaseReturn  StockReferenceType = "PURCHASE_RETURN"
)

var stockReferenceTypes = map[string]StockReferenceType{
	"OPENING":          StockReferenceTypeOpening,
	"SALES":            StockReferenceTypeSales,
	"PURCHASE":         StockReferenceTypePurchase,
	"ADJUSTMENT":       StockReferenceTypeAdjustment,
	"TRANSFER":         StockReferenceTypeTransfer,
	"ASSEMBLY_CONSUME": StockReferenceTypeAssemblyConsume,
	"ASSEMBLY_PRODUCE": StockReferenceTypeAssemblyProduce,
	"DELIVERY":         StockReferenceTypeDelivery,
	"SALES_RETURN":     StockReferenceTypeSalesReturn,
	"GRN":              StockReferenceTypeGRN,
	"PURCHASE_RETURN":  StockReferenceTypePurchaseReturn,
}

func (t StockReferenceType) IsValid() bool {
	_, ok := stockReferenceTypes[string(t)]
	return ok
}

func ParseStockReferenceType(s string) (StockReferenceType, error) {
	t, ok := stockReferenceTypes[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", ErrInvalidReferenceType
	}
	return t, nil
}

type DocumentType string

const (
	DocumentTypeInvoice DocumentType = "Invoice"
	DocumentTypeBill    DocumentType = "Bill"
)

type DocumentStatus string

const (
	DocumentStatusOpen        DocumentStatus = "Open"
	DocumentStatusPartialPaid DocumentStatus = "Partial Paid"
	DocumentStatusPaid        DocumentStatus = "Paid"
	DocumentStatusVoid        DocumentStatus = "Void"
)

type PartyType string

const (
	PartyTypeCustomer PartyType = "Customer"
	PartyTypeSupplier PartyType = "Supplier"
)

func ParsePartyType(s string) (PartyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "customers":
		return PartyTypeCustomer, nil
	case "supplier", "suppliers", "vendor", "vendors":
		return PartyTypeSupplier, nil
	}
	return "", errors.New("invalid party type")
}

// DocumentType is the kind of document a party of this type owes or is owed on.
func (p PartyType) DocumentType() DocumentType {
	if p == PartyTypeSupplier {
		return DocumentTypeBill
	}
	return DocumentTypeInvoice
}

type PaymentType string

const (
	PaymentTypeCustomerPayment PaymentType = "Customer Payment"
	PaymentTypeSupplierPayment PaymentType = "Supplier Payment"
)

type CreditNoteStatus string

const (
	CreditNoteStatusOpen   CreditNoteStatus = "Open"
	CreditNoteStatusClosed CreditNoteStatus = "Closed"
	CreditNoteStatusVoid   CreditNoteStatus = "Void"
)

type AuditAction string

const (
	AuditActionCreate   AuditAction = "Create"
	AuditActionBuild    AuditAction = "Build"
	AuditActionTransfer AuditAction = "Transfer"
	AuditActionAllocate AuditAction = "Allocate"
	AuditActionVoid     AuditAction = "Void"
	AuditActionClose    AuditAction = "Close"
)
