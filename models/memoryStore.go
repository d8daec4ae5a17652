package models

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps the ledger in process. A transaction works on a
// copy-on-write snapshot that replaces the live data only on success, so a
// failed operation leaves nothing behind.
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData
	now  func() time.Time
}

type memoryData struct {
	movements   []StockMovement
	assemblies  map[int]Assembly
	documents   map[int]AllocatableDocument
	payments    []Payment
	creditNotes map[int]CreditNote
	seq         map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			assemblies:  make(map[int]Assembly),
			documents:   make(map[int]AllocatableDocument),
			creditNotes: make(map[int]CreditNote),
			seq:         make(map[string]int),
		},
		now: time.Now,
	}
}

// clone copies the maps; the append-only slices share their backing arrays
// with capacity clipped, so appends on the copy reallocate.
func (d *memoryData) clone() memoryData {
	return memoryData{
		movements:   slices.Clip(d.movements),
		assemblies:  cloneMap(d.assemblies),
		documents:   cloneMap(d.documents),
		payments:    slices.Clip(d.payments),
		creditNotes: cloneMap(d.creditNotes),
		seq:         cloneMap(d.seq),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memoryTx{data: &work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) read(ctx context.Context) (*memoryData, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	return &s.data, s.mu.RUnlock, nil
}

func (s *MemoryStore) SumStock(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer done()
	return d.sumStock(businessId, itemId, warehouseId), nil
}

func (s *MemoryStore) ScanMovements(ctx context.Context, businessId string, filter MovementFilter, fn func(StockMovement) bool) error {
	d, done, err := s.read(ctx)
	if err != nil {
		return err
	}
	snapshot := d.movementsFor(businessId, filter)
	done()
	return scanSnapshot(ctx, snapshot, fn)
}

func (s *MemoryStore) GetAssembly(ctx context.Context, businessId string, id int) (*Assembly, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.getAssembly(businessId, id)
}

func (s *MemoryStore) GetDocument(ctx context.Context, businessId string, id int) (*AllocatableDocument, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.getDocument(businessId, id)
}

func (s *MemoryStore) ListDocuments(ctx context.Context, businessId string, filter DocumentFilter) ([]AllocatableDocument, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.listDocuments(businessId, filter), nil
}

func (s *MemoryStore) GetCreditNote(ctx context.Context, businessId string, id int) (*CreditNote, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.getCreditNote(businessId, id)
}

func (s *MemoryStore) ListCreditNotes(ctx context.Context, businessId string, partyType PartyType, partyIds []int) ([]CreditNote, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.listCreditNotes(businessId, partyType, partyIds), nil
}

func (s *MemoryStore) GetPayment(ctx context.Context, businessId string, id int) (*Payment, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.getPayment(businessId, id)
}

func (s *MemoryStore) ListPayments(ctx context.Context, businessId string, paymentType PaymentType, partyIds []int) ([]Payment, error) {
	d, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return d.listPayments(businessId, paymentType, partyIds), nil
}

// memoryTx is handed to WithinTx callbacks; the store lock is already held.
type memoryTx struct {
	data *memoryData
	now  func() time.Time
}

func (tx *memoryTx) SumStock(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return tx.data.sumStock(businessId, itemId, warehouseId), nil
}

func (tx *memoryTx) ScanMovements(ctx context.Context, businessId string, filter MovementFilter, fn func(StockMovement) bool) error {
	return scanSnapshot(ctx, tx.data.movementsFor(businessId, filter), fn)
}

func (tx *memoryTx) GetAssembly(ctx context.Context, businessId string, id int) (*Assembly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.getAssembly(businessId, id)
}

func (tx *memoryTx) GetDocument(ctx context.Context, businessId string, id int) (*AllocatableDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.getDocument(businessId, id)
}

func (tx *memoryTx) ListDocuments(ctx context.Context, businessId string, filter DocumentFilter) ([]AllocatableDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.listDocuments(businessId, filter), nil
}

func (tx *memoryTx) GetCreditNote(ctx context.Context, businessId string, id int) (*CreditNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.getCreditNote(businessId, id)
}

func (tx *memoryTx) ListCreditNotes(ctx context.Context, businessId string, partyType PartyType, partyIds []int) ([]CreditNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.listCreditNotes(businessId, partyType, partyIds), nil
}

func (tx *memoryTx) GetPayment(ctx context.Context, businessId string, id int) (*Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.getPayment(businessId, id)
}

func (tx *memoryTx) ListPayments(ctx context.Context, businessId string, paymentType PaymentType, partyIds []int) ([]Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.data.listPayments(businessId, paymentType, partyIds), nil
}

func (tx *memoryTx) AppendMovements(ctx context.Context, movements []*StockMovement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range movements {
		m.ID = tx.data.nextId("stock_movements")
		if m.CreatedAt.IsZero() {
			m.CreatedAt = tx.now()
		}
		tx.data.movements = append(tx.data.movements, *m)
	}
	return nil
}

func (tx *memoryTx) NextSequence(ctx context.Context, businessId string, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return tx.data.nextId("seq:" + businessId + ":" + name), nil
}

func (tx *memoryTx) CreateAssembly(ctx context.Context, assembly *Assembly) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	assembly.ID = tx.data.nextId("assemblies")
	assembly.CreatedAt = tx.now()
	for i := range assembly.Components {
		assembly.Components[i].ID = tx.data.nextId("assembly_components")
		assembly.Components[i].AssemblyId = assembly.ID
	}
	tx.data.assemblies[assembly.ID] = assembly.clone()
	return nil
}

func (tx *memoryTx) CreateDocument(ctx context.Context, document *AllocatableDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if number := document.Number(); number != "" {
		for _, existing := range tx.data.documents {
			if existing.BusinessId == document.BusinessId &&
				existing.DocumentType == document.DocumentType &&
				existing.Number() == number {
				return &DuplicateDocumentNumberError{DocumentType: document.DocumentType, DocumentNumber: number}
			}
		}
	}
	document.ID = tx.data.nextId("allocatable_documents")
	document.CreatedAt = tx.now()
	document.UpdatedAt = document.CreatedAt
	tx.data.documents[document.ID] = *document
	return nil
}

func (tx *memoryTx) UpdateDocumentBalance(ctx context.Context, document *AllocatableDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := tx.data.documents[document.ID]
	if !ok || stored.BusinessId != document.BusinessId {
		return utils.ErrorRecordNotFound
	}
	stored.BalanceDue = document.BalanceDue
	stored.Status = document.Status
	stored.UpdatedAt = tx.now()
	tx.data.documents[document.ID] = stored
	document.UpdatedAt = stored.UpdatedAt
	return nil
}

func (tx *memoryTx) CreatePayment(ctx context.Context, payment *Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payment.ID = tx.data.nextId("payments")
	payment.CreatedAt = tx.now()
	for i := range payment.Allocations {
		payment.Allocations[i].ID = tx.data.nextId("payment_allocations")
		payment.Allocations[i].PaymentId = payment.ID
		payment.Allocations[i].CreatedAt = payment.CreatedAt
	}
	tx.data.payments = append(tx.data.payments, payment.clone())
	return nil
}

func (tx *memoryTx) CreateCreditNote(ctx context.Context, creditNote *CreditNote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	creditNote.ID = tx.data.nextId("credit_notes")
	creditNote.CreatedAt = tx.now()
	creditNote.UpdatedAt = creditNote.CreatedAt
	tx.data.creditNotes[creditNote.ID] = *creditNote
	return nil
}

func (tx *memoryTx) UpdateCreditNoteStatus(ctx context.Context, creditNote *CreditNote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := tx.data.creditNotes[creditNote.ID]
	if !ok || stored.BusinessId != creditNote.BusinessId {
		return utils.ErrorRecordNotFound
	}
	stored.Status = creditNote.Status
	stored.UpdatedAt = tx.now()
	tx.data.creditNotes[creditNote.ID] = stored
	creditNote.UpdatedAt = stored.UpdatedAt
	return nil
}

func (d *memoryData) nextId(name string) int {
	d.seq[name]++
	return d.seq[name]
}

func (d *memoryData) sumStock(businessId string, itemId int, warehouseId *int) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range d.movements {
		if m.BusinessId != businessId || m.ItemId != itemId {
			continue
		}
		if warehouseId != nil && m.WarehouseId != *warehouseId {
			continue
		}
		balance = balance.Add(m.InQty).Sub(m.OutQty)
	}
	return balance
}

func (d *memoryData) movementsFor(businessId string, filter MovementFilter) []StockMovement {
	var out []StockMovement
	for _, m := range d.movements {
		if m.BusinessId != businessId || m.ItemId != filter.ItemId {
			continue
		}
		if filter.WarehouseId != nil && m.WarehouseId != *filter.WarehouseId {
			continue
		}
		out = append(out, m)
	}
	sortMovements(out)
	return out
}

func scanSnapshot(ctx context.Context, movements []StockMovement, fn func(StockMovement) bool) error {
	for _, m := range movements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(m) {
			return nil
		}
	}
	return nil
}

func sortMovements(movements []StockMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if !a.MovementDate.Equal(b.MovementDate) {
			return a.MovementDate.Before(b.MovementDate)
		}
		return a.ID < b.ID
	})
}

func (d *memoryData) getAssembly(businessId string, id int) (*Assembly, error) {
	a, ok := d.assemblies[id]
	if !ok || a.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	a = a.clone()
	return &a, nil
}

func (d *memoryData) getDocument(businessId string, id int) (*AllocatableDocument, error) {
	doc, ok := d.documents[id]
	if !ok || doc.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return &doc, nil
}

func (d *memoryData) listDocuments(businessId string, filter DocumentFilter) []AllocatableDocument {
	var out []AllocatableDocument
	for _, doc := range d.documents {
		if doc.BusinessId != businessId {
			continue
		}
		if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
			continue
		}
		if len(filter.PartyIds) > 0 && !slices.Contains(filter.PartyIds, doc.PartyId) {
			continue
		}
		if filter.OpenOnly && !doc.isOpen() {
			continue
		}
		if !filter.OpenOnly && !filter.IncludeVoid && doc.Status == DocumentStatusVoid {
			continue
		}
		out = append(out, doc)
	}
	sortDocumentsFIFO(out)
	return out
}

// sortDocumentsFIFO orders documents oldest first, ties broken by id.
func sortDocumentsFIFO(docs []AllocatableDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if !a.DocumentDate.Equal(b.DocumentDate) {
			return a.DocumentDate.Before(b.DocumentDate)
		}
		return a.ID < b.ID
	})
}

func (d *memoryData) getCreditNote(businessId string, id int) (*CreditNote, error) {
	cn, ok := d.creditNotes[id]
	if !ok || cn.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return &cn, nil
}

func (d *memoryData) listCreditNotes(businessId string, partyType PartyType, partyIds []int) []CreditNote {
	var out []CreditNote
	for _, cn := range d.creditNotes {
		if cn.BusinessId != businessId || cn.PartyType != partyType {
			continue
		}
		if len(partyIds) > 0 && !slices.Contains(partyIds, cn.PartyId) {
			continue
		}
		out = append(out, cn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *memoryData) getPayment(businessId string, id int) (*Payment, error) {
	for _, p := range d.payments {
		if p.ID == id && p.BusinessId == businessId {
			p = p.clone()
			return &p, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (d *memoryData) listPayments(businessId string, paymentType PaymentType, partyIds []int) []Payment {
	var out []Payment
	for _, p := range d.payments {
		if p.BusinessId != businessId || p.PaymentType != paymentType {
			continue
		}
		if len(partyIds) > 0 && !slices.Contains(partyIds, p.PartyId) {
			continue
		}
		out = append(out, p.clone())
	}
	return out
}
