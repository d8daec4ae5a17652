package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerSequence backs NextSequence, e.g. the build reference counter of an assembly.
type LedgerSequence struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"uniqueIndex:idx_ledger_seq_name,priority:1;size:64;not null" json:"business_id"`
	Name       string `gorm:"uniqueIndex:idx_ledger_seq_name,priority:2;size:100;not null" json:"name"`
	Value      int    `gorm:"not null;default:0" json:"value"`
}

// GormStore persists the ledger in MySQL. Transactions lock the documents
// they read with SELECT ... FOR UPDATE.
type GormStore struct {
	gormReader
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormReader{db: db}}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormReader{db: tx, forUpdate: true}})
	})
}

type gormReader struct {
	db        *gorm.DB
	forUpdate bool
}

func (r gormReader) session(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r gormReader) locking(ctx context.Context) *gorm.DB {
	db := r.session(ctx)
	if r.forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

func (r gormReader) SumStock(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, error) {
	var row struct {
		TotalIn  decimal.Decimal
		TotalOut decimal.Decimal
	}
	db := r.session(ctx).Model(&StockMovement{}).
		Select("COALESCE(SUM(in_qty), 0) AS total_in, COALESCE(SUM(out_qty), 0) AS total_out").
		Where("business_id = ? AND item_id = ?", businessId, itemId)
	if warehouseId != nil {
		db = db.Where("warehouse_id = ?", *warehouseId)
	}
	if err := db.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.TotalIn.Sub(row.TotalOut), nil
}

func (r gormReader) ScanMovements(ctx context.Context, businessId string, filter MovementFilter, fn func(StockMovement) bool) error {
	db := r.session(ctx).Model(&StockMovement{}).
		Where("business_id = ? AND item_id = ?", businessId, filter.ItemId)
	if filter.WarehouseId != nil {
		db = db.Where("warehouse_id = ?", *filter.WarehouseId)
	}
	rows, err := db.Order("movement_date ASC, id ASC").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m StockMovement
		if err := db.ScanRows(rows, &m); err != nil {
			return err
		}
		if !fn(m) {
			return nil
		}
	}
	return rows.Err()
}

func (r gormReader) GetAssembly(ctx context.Context, businessId string, id int) (*Assembly, error) {
	var result Assembly
	err := r.session(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("business_id = ?", businessId).
		First(&result, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

func (r gormReader) GetDocument(ctx context.Context, businessId string, id int) (*AllocatableDocument, error) {
	var result AllocatableDocument
	err := r.locking(ctx).Where("business_id = ?", businessId).First(&result, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

func (r gormReader) ListDocuments(ctx context.Context, businessId string, filter DocumentFilter) ([]AllocatableDocument, error) {
	var results []AllocatableDocument
	db := r.locking(ctx).Where("business_id = ?", businessId)
	if filter.DocumentType != "" {
		db = db.Where("document_type = ?", filter.DocumentType)
	}
	if len(filter.PartyIds) > 0 {
		db = db.Where("party_id IN ?", filter.PartyIds)
	}
	if filter.OpenOnly {
		db = db.Where("status <> ? AND balance_due > 0", DocumentStatusVoid)
	} else if !filter.IncludeVoid {
		db = db.Where("status <> ?", DocumentStatusVoid)
	}
	if err := db.Order("document_date ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r gormReader) GetCreditNote(ctx context.Context, businessId string, id int) (*CreditNote, error) {
	var result CreditNote
	err := r.locking(ctx).Where("business_id = ?", businessId).First(&result, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

func (r gormReader) ListCreditNotes(ctx context.Context, businessId string, partyType PartyType, partyIds []int) ([]CreditNote, error) {
	var results []CreditNote
	db := r.session(ctx).Where("business_id = ? AND party_type = ?", businessId, partyType)
	if len(partyIds) > 0 {
		db = db.Where("party_id IN ?", partyIds)
	}
	if err := db.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r gormReader) GetPayment(ctx context.Context, businessId string, id int) (*Payment, error) {
	var result Payment
	err := r.session(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("business_id = ?", businessId).
		First(&result, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

func (r gormReader) ListPayments(ctx context.Context, businessId string, paymentType PaymentType, partyIds []int) ([]Payment, error) {
	var results []Payment
	db := r.session(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("business_id = ? AND payment_type = ?", businessId, paymentType)
	if len(partyIds) > 0 {
		db = db.Where("party_id IN ?", partyIds)
	}
	if err := db.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type gormTx struct {
	gormReader
}

func (tx *gormTx) AppendMovements(ctx context.Context, movements []*StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return tx.session(ctx).Create(&movements).Error
}

func (tx *gormTx) NextSequence(ctx context.Context, businessId string, name string) (int, error) {
	db := tx.session(ctx)
	err := db.Clauses(clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("value + 1")}),
	}).Create(&LedgerSequence{BusinessId: businessId, Name: name, Value: 1}).Error
	if err != nil {
		return 0, err
	}
	var seq LedgerSequence
	if err := db.Where("business_id = ? AND name = ?", businessId, name).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

func (tx *gormTx) CreateAssembly(ctx context.Context, assembly *Assembly) error {
	return tx.session(ctx).Create(assembly).Error
}

func (tx *gormTx) CreateDocument(ctx context.Context, document *AllocatableDocument) error {
	err := tx.session(ctx).Create(document).Error
	if isDuplicateKeyErr(err) {
		return &DuplicateDocumentNumberError{DocumentType: document.DocumentType, DocumentNumber: document.Number()}
	}
	return err
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func (tx *gormTx) UpdateDocumentBalance(ctx context.Context, document *AllocatableDocument) error {
	result := tx.session(ctx).Model(&AllocatableDocument{}).
		Where("business_id = ? AND id = ?", document.BusinessId, document.ID).
		Updates(map[string]interface{}{
			"balance_due": document.BalanceDue,
			"status":      document.Status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (tx *gormTx) CreatePayment(ctx context.Context, payment *Payment) error {
	return tx.session(ctx).Create(payment).Error
}

func (tx *gormTx) CreateCreditNote(ctx context.Context, creditNote *CreditNote) error {
	return tx.session(ctx).Create(creditNote).Error
}

func (tx *gormTx) UpdateCreditNoteStatus(ctx context.Context, creditNote *CreditNote) error {
	result := tx.session(ctx).Model(&CreditNote{}).
		Where("business_id = ? AND id = ?", creditNote.BusinessId, creditNote.ID).
		Update("status", creditNote.Status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
