package models

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// AssemblyEngine runs bill-of-materials builds against the stock ledger.
type AssemblyEngine struct {
	ledgerDeps
	stock *StockLedger
}

func (e *AssemblyEngine) CreateAssembly(ctx context.Context, input *NewAssembly) (assembly *Assembly, err error) {
	ctx, end := e.start(ctx, "AssemblyEngine.CreateAssembly")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	assembly = &Assembly{
		BusinessId:     businessId,
		FinishedItemId: input.FinishedItemId,
		Name:           input.Name,
	}
	for _, c := range input.Components {
		if !c.Quantity.IsPositive() {
			return nil, &InvalidAmountError{Field: "component quantity", Amount: c.Quantity, Reason: "must be positive"}
		}
		if c.ItemId == input.FinishedItemId {
			return nil, fmt.Errorf("%w: assembly cannot consume its own finished item %d", ErrInvalidState, c.ItemId)
		}
		assembly.Components = append(assembly.Components, AssemblyComponent{ItemId: c.ItemId, Quantity: c.Quantity})
	}

	err = e.store.WithinTx(ctx, func(tx StoreTx) error {
		return tx.CreateAssembly(ctx, assembly)
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, businessId, AuditActionCreate, "Assembly", assembly.ID,
		fmt.Sprintf("assembly for item %d created with %d components", assembly.FinishedItemId, len(assembly.Components)))
	return assembly, nil
}

func (e *AssemblyEngine) GetAssembly(ctx context.Context, assemblyId int) (assembly *Assembly, err error) {
	ctx, end := e.start(ctx, "AssemblyEngine.GetAssembly")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	assembly, err = e.store.GetAssembly(ctx, businessId, assemblyId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, &AssemblyNotFoundError{AssemblyId: assemblyId}
	}
	return assembly, err
}

// buildTarget validates the scalar arguments of BuildAssembly.
type buildTarget struct {
	WarehouseId int `validate:"required,gt=0"`
}

// BuildAssembly consumes component.Quantity x buildQty of every component
// and produces buildQty of the finished item, all in one warehouse and all
// tagged with one reference number. Component balances are read once,
// before anything is written; if any falls short the build records nothing.
// An empty actor falls back to the user on the context.
func (e *AssemblyEngine) BuildAssembly(ctx context.Context, assemblyId int, warehouseId int, buildQty decimal.Decimal, actor string) (result *BuildResult, err error) {
	ctx, end := e.start(ctx, "AssemblyEngine.BuildAssembly")
	defer func() { end(err) }()

	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !buildQty.IsPositive() {
		return nil, &InvalidAmountError{Field: "build quantity", Amount: buildQty, Reason: "must be positive"}
	}
	if err := utils.ValidateStruct(&buildTarget{WarehouseId: warehouseId}); err != nil {
		return nil, err
	}
	if actor != "" {
		ctx = utils.SetUserNameInContext(ctx, actor)
	}

	assembly, err := e.store.GetAssembly(ctx, businessId, assemblyId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, &AssemblyNotFoundError{AssemblyId: assemblyId}
	} else if err != nil {
		return nil, err
	}

	finished := StockKey{ItemId: assembly.FinishedItemId, WarehouseId: warehouseId}
	keys := []StockKey{finished}
	lockKeys := []string{finished.lockKey(businessId)}
	for _, c := range assembly.Components {
		k := StockKey{ItemId: c.ItemId, WarehouseId: warehouseId}
		keys = append(keys, k)
		lockKeys = append(lockKeys, k.lockKey(businessId))
	}
	release, err := e.lock(ctx, lockKeys...)
	if err != nil {
		return nil, err
	}
	defer release()

	now := e.clock()
	result = &BuildResult{}
	err = e.store.WithinTx(ctx, func(tx StoreTx) error {
		if err := e.checkComponents(ctx, tx, businessId, assembly, warehouseId, buildQty); err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, businessId, fmt.Sprintf("assembly_build:%d", assembly.ID))
		if err != nil {
			return err
		}
		result.ReferenceNo = fmt.Sprintf("BLD-%d-%d", assembly.ID, seq)

		movements := make([]*StockMovement, 0, len(assembly.Components)+1)
		for _, c := range assembly.Components {
			movements = append(movements, &StockMovement{
				BusinessId:    businessId,
				ItemId:        c.ItemId,
				WarehouseId:   warehouseId,
				ReferenceType: StockReferenceTypeAssemblyConsume,
				ReferenceNo:   result.ReferenceNo,
				OutQty:        c.Quantity.Mul(buildQty),
				MovementDate:  now,
			})
		}
		movements = append(movements, &StockMovement{
			BusinessId:    businessId,
			ItemId:        assembly.FinishedItemId,
			WarehouseId:   warehouseId,
			ReferenceType: StockReferenceTypeAssemblyProduce,
			ReferenceNo:   result.ReferenceNo,
			InQty:         buildQty,
			MovementDate:  now,
		})
		e.stock.stamp(ctx, movements...)
		if err := tx.AppendMovements(ctx, movements); err != nil {
			return err
		}

		for _, m := range movements[:len(movements)-1] {
			result.Consumed = append(result.Consumed, *m)
		}
		result.Produced = *movements[len(movements)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.stock.invalidate(ctx, businessId, keys...)

	e.notify(ctx, businessId, AuditActionBuild, "Assembly", assembly.ID,
		fmt.Sprintf("built %s of item %d in warehouse %d (%s)",
			buildQty.String(), assembly.FinishedItemId, warehouseId, result.ReferenceNo))
	return result, nil
}

// checkComponents snapshots every component balance first, then walks the
// recipe in order. A component listed twice needs its combined quantity.
func (e *AssemblyEngine) checkComponents(ctx context.Context, tx StoreTx, businessId string, assembly *Assembly, warehouseId int, buildQty decimal.Decimal) error {
	if e.settings.AllowNegativeStock {
		return nil
	}
	available := make(map[int]decimal.Decimal, len(assembly.Components))
	for _, c := range assembly.Components {
		if _, ok := available[c.ItemId]; ok {
			continue
		}
		balance, err := tx.SumStock(ctx, businessId, c.ItemId, &warehouseId)
		if err != nil {
			return err
		}
		available[c.ItemId] = balance
	}

	needed := make(map[int]decimal.Decimal, len(available))
	for _, c := range assembly.Components {
		needed[c.ItemId] = needed[c.ItemId].Add(c.Quantity.Mul(buildQty))
		if needed[c.ItemId].GreaterThan(available[c.ItemId]) {
			return &InsufficientComponentError{
				AssemblyId:  assembly.ID,
				ItemId:      c.ItemId,
				WarehouseId: warehouseId,
				Needed:      needed[c.ItemId],
				Available:   available[c.ItemId],
			}
		}
	}
	return nil
}
