package controllers

import (
	"iter"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (lc *LedgerController) RecordMovement(c *gin.Context) {
	var input models.NewStockMovement
	if !bindJSON(c, &input) {
		return
	}
	movement, err := lc.engine.Stock.RecordMovement(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to record movement", err)
		return
	}
	utils.Created(c, "movement recorded", movement)
}

func (lc *LedgerController) TransferStock(c *gin.Context) {
	var input models.NewStockTransfer
	if !bindJSON(c, &input) {
		return
	}
	movements, err := lc.engine.Stock.TransferStock(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to transfer stock", err)
		return
	}
	utils.Created(c, "stock transferred", movements)
}

func (lc *LedgerController) GetBalance(c *gin.Context) {
	itemId, ok := paramId(c, "itemId")
	if !ok {
		return
	}
	warehouseId, ok := queryId(c, "warehouse_id")
	if !ok {
		return
	}
	balance, err := lc.engine.Stock.GetBalance(c.Request.Context(), itemId, warehouseId)
	if err != nil {
		respondError(c, "failed to get balance", err)
		return
	}
	utils.Success(c, "ok", gin.H{
		"item_id":      itemId,
		"warehouse_id": warehouseId,
		"balance":      balance,
	})
}

func (lc *LedgerController) GetMovements(c *gin.Context) {
	itemId, ok := paramId(c, "itemId")
	if !ok {
		return
	}
	warehouseId, ok := queryId(c, "warehouse_id")
	if !ok {
		return
	}

	var seq iter.Seq2[models.StockMovement, error]
	if warehouseId != nil {
		seq = lc.engine.Stock.GetMovements(c.Request.Context(), itemId, *warehouseId)
	} else {
		seq = lc.engine.Stock.GetMovementsForItem(c.Request.Context(), itemId)
	}

	type movementRow struct {
		models.StockMovement
		RunningBalance decimal.Decimal `json:"running_balance"`
	}
	rows := make([]movementRow, 0)
	running := decimal.Zero
	for m, err := range seq {
		if err != nil {
			respondError(c, "failed to list movements", err)
			return
		}
		running = running.Add(m.Delta())
		rows = append(rows, movementRow{StockMovement: m, RunningBalance: running})
	}
	utils.Success(c, "ok", rows)
}

func (lc *LedgerController) GetStockSummary(c *gin.Context) {
	itemId, ok := paramId(c, "itemId")
	if !ok {
		return
	}
	summary, err := lc.engine.Stock.GetStockSummary(c.Request.Context(), itemId)
	if err != nil {
		respondError(c, "failed to get stock summary", err)
		return
	}
	utils.Success(c, "ok", summary)
}

func (lc *LedgerController) ReconcileBalances(c *gin.Context) {
	itemId, ok := paramId(c, "itemId")
	if !ok {
		return
	}
	mismatches, err := lc.engine.Stock.ReconcileBalances(c.Request.Context(), itemId)
	if err != nil {
		respondError(c, "failed to reconcile balances", err)
		return
	}
	if mismatches == nil {
		mismatches = []models.BalanceMismatch{}
	}
	utils.Success(c, "reconciled", mismatches)
}
