package models

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/shopspring/decimal"
)

// StockLedger records stock movements and derives balances from them. The
// movement log is the only source of truth.
type StockLedger struct {
	ledgerDeps
	cache BalanceCache
}

// RecordMovement appends one movement. Outbound movements are rejected with
// InsufficientStockError when they would drive the item/warehouse balance
// negative, unless negative stock is allowed.
func (l *StockLedger) RecordMovement(ctx context.Context, input *NewStockMovement) (movement *StockMovement, err error) {
	ctx, end := l.start(ctx, "StockLedger.RecordMovement")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	key := StockKey{ItemId: input.ItemId, WarehouseId: input.WarehouseId}

	release, err := l.lock(ctx, key.lockKey(businessId))
	if err != nil {
		return nil, err
	}
	defer release()

	movement = &StockMovement{
		BusinessId:    businessId,
		ItemId:        input.ItemId,
		WarehouseId:   input.WarehouseId,
		ReferenceType: input.ReferenceType,
		ReferenceNo:   input.ReferenceNo,
		InQty:         input.InQty,
		OutQty:        input.OutQty,
		MovementDate:  dateOrNow(input.MovementDate, l.clock),
		Note:          input.Note,
	}
	l.stamp(ctx, movement)

	err = l.store.WithinTx(ctx, func(tx StoreTx) error {
		if movement.OutQty.IsPositive() {
			if err := l.checkAvailable(ctx, tx, businessId, key, movement.OutQty); err != nil {
				return err
			}
		}
		return tx.AppendMovements(ctx, []*StockMovement{movement})
	})
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx, businessId, key)

	l.notify(ctx, businessId, AuditActionCreate, "StockMovement", movement.ID,
		fmt.Sprintf("%s movement of item %d in warehouse %d: in %s, out %s",
			movement.ReferenceType, movement.ItemId, movement.WarehouseId, movement.InQty.String(), movement.OutQty.String()))
	return movement, nil
}

// GetBalance sums the movements of an item, in one warehouse or across all
// of them when warehouseId is nil. Unknown items have a zero balance.
func (l *StockLedger) GetBalance(ctx context.Context, itemId int, warehouseId *int) (balance decimal.Decimal, err error) {
	ctx, end := l.start(ctx, "StockLedger.GetBalance")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var generation int64
	if l.cache != nil {
		if cached, ok := l.cache.Get(ctx, businessId, itemId, warehouseId); ok {
			return cached, nil
		}
		// Taken before the sum so an append committed meanwhile voids the fill.
		generation = l.cache.Generation(ctx, businessId, itemId)
	}
	balance, err = l.store.SumStock(ctx, businessId, itemId, warehouseId)
	if err != nil {
		return decimal.Zero, err
	}
	if l.cache != nil {
		l.cache.Set(ctx, businessId, itemId, warehouseId, generation, balance)
	}
	return balance, nil
}

// GetMovementsForItem yields the item's movements across all warehouses
// ordered by (MovementDate, ID). Nothing is read until the sequence is
// ranged over, and each range starts from the beginning.
func (l *StockLedger) GetMovementsForItem(ctx context.Context, itemId int) iter.Seq2[StockMovement, error] {
	return l.scanMovements(ctx, MovementFilter{ItemId: itemId})
}

// GetMovements narrows GetMovementsForItem to one warehouse.
func (l *StockLedger) GetMovements(ctx context.Context, itemId int, warehouseId int) iter.Seq2[StockMovement, error] {
	return l.scanMovements(ctx, MovementFilter{ItemId: itemId, WarehouseId: &warehouseId})
}

func (l *StockLedger) scanMovements(ctx context.Context, filter MovementFilter) iter.Seq2[StockMovement, error] {
	return func(yield func(StockMovement, error) bool) {
		businessId, err := businessIdFrom(ctx)
		if err != nil {
			yield(StockMovement{}, err)
			return
		}
		stopped := false
		err = l.store.ScanMovements(ctx, businessId, filter, func(m StockMovement) bool {
			if !yield(m, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(StockMovement{}, err)
		}
	}
}

// GetStockSummary breaks an item's balance down by warehouse.
func (l *StockLedger) GetStockSummary(ctx context.Context, itemId int) (summary *StockSummary, err error) {
	ctx, end := l.start(ctx, "StockLedger.GetStockSummary")
	defer func() { end(err) }()

	byWarehouse := make(map[int]decimal.Decimal)
	for m, err := range l.GetMovementsForItem(ctx, itemId) {
		if err != nil {
			return nil, err
		}
		byWarehouse[m.WarehouseId] = byWarehouse[m.WarehouseId].Add(m.Delta())
	}

	summary = &StockSummary{ItemId: itemId, Total: decimal.Zero}
	for warehouseId, balance := range byWarehouse {
		summary.Warehouses = append(summary.Warehouses, StockBalance{
			ItemId:      itemId,
			WarehouseId: warehouseId,
			Balance:     balance,
		})
		summary.Total = summary.Total.Add(balance)
	}
	sort.Slice(summary.Warehouses, func(i, j int) bool {
		return summary.Warehouses[i].WarehouseId < summary.Warehouses[j].WarehouseId
	})
	return summary, nil
}

// TransferStock moves quantity between two warehouses as a pair of TRANSFER
// movements that are appended together or not at all.
func (l *StockLedger) TransferStock(ctx context.Context, input *NewStockTransfer) (movements []StockMovement, err error) {
	ctx, end := l.start(ctx, "StockLedger.TransferStock")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	from := StockKey{ItemId: input.ItemId, WarehouseId: input.FromWarehouseId}
	to := StockKey{ItemId: input.ItemId, WarehouseId: input.ToWarehouseId}

	release, err := l.lock(ctx, from.lockKey(businessId), to.lockKey(businessId))
	if err != nil {
		return nil, err
	}
	defer release()

	date := dateOrNow(input.TransferDate, l.clock)
	out := &StockMovement{
		BusinessId:    businessId,
		ItemId:        input.ItemId,
		WarehouseId:   input.FromWarehouseId,
		ReferenceType: StockReferenceTypeTransfer,
		ReferenceNo:   input.ReferenceNo,
		OutQty:        input.Qty,
		MovementDate:  date,
		Note:          input.Note,
	}
	in := &StockMovement{
		BusinessId:    businessId,
		ItemId:        input.ItemId,
		WarehouseId:   input.ToWarehouseId,
		ReferenceType: StockReferenceTypeTransfer,
		ReferenceNo:   input.ReferenceNo,
		InQty:         input.Qty,
		MovementDate:  date,
		Note:          input.Note,
	}
	l.stamp(ctx, out, in)

	err = l.store.WithinTx(ctx, func(tx StoreTx) error {
		if err := l.checkAvailable(ctx, tx, businessId, from, input.Qty); err != nil {
			return err
		}
		return tx.AppendMovements(ctx, []*StockMovement{out, in})
	})
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx, businessId, from, to)

	l.notify(ctx, businessId, AuditActionTransfer, "StockMovement", out.ID,
		fmt.Sprintf("transferred %s of item %d from warehouse %d to warehouse %d",
			input.Qty.String(), input.ItemId, input.FromWarehouseId, input.ToWarehouseId))
	return []StockMovement{*out, *in}, nil
}

// ReconcileBalances recomputes an item's balances from the ledger and
// repairs any cached value that disagrees.
func (l *StockLedger) ReconcileBalances(ctx context.Context, itemId int) (mismatches []BalanceMismatch, err error) {
	ctx, end := l.start(ctx, "StockLedger.ReconcileBalances")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if l.cache == nil {
		_, err = l.GetStockSummary(ctx, itemId)
		return nil, err
	}
	generation := l.cache.Generation(ctx, businessId, itemId)
	summary, err := l.GetStockSummary(ctx, itemId)
	if err != nil {
		return nil, err
	}
	for _, wb := range summary.Warehouses {
		warehouseId := wb.WarehouseId
		cached, ok := l.cache.Get(ctx, businessId, itemId, &warehouseId)
		if ok && !cached.Equal(wb.Balance) {
			mismatches = append(mismatches, BalanceMismatch{
				ItemId:      itemId,
				WarehouseId: warehouseId,
				Cached:      cached,
				Derived:     wb.Balance,
			})
		}
		l.cache.Set(ctx, businessId, itemId, &warehouseId, generation, wb.Balance)
	}
	l.cache.Set(ctx, businessId, itemId, nil, generation, summary.Total)
	return mismatches, nil
}

// checkAvailable enforces the negative-stock policy against the ledger
// inside the write transaction.
func (l *StockLedger) checkAvailable(ctx context.Context, tx StoreTx, businessId string, key StockKey, qty decimal.Decimal) error {
	if l.settings.AllowNegativeStock {
		return nil
	}
	available, err := tx.SumStock(ctx, businessId, key.ItemId, &key.WarehouseId)
	if err != nil {
		return err
	}
	if available.LessThan(qty) {
		return &InsufficientStockError{
			ItemId:      key.ItemId,
			WarehouseId: key.WarehouseId,
			Available:   available,
			Requested:   qty,
		}
	}
	return nil
}

func (l *StockLedger) stamp(ctx context.Context, movements ...*StockMovement) {
	actor, correlationId := actorAndCorrelation(ctx)
	for _, m := range movements {
		m.CreatedBy = actor
		m.CorrelationId = correlationId
	}
}

func (l *StockLedger) invalidate(ctx context.Context, businessId string, keys ...StockKey) {
	if l.cache != nil {
		l.cache.Invalidate(context.WithoutCancel(ctx), businessId, keys...)
	}
}
