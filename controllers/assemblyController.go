package controllers

import (
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type buildAssemblyRequest struct {
	WarehouseId int             `json:"warehouse_id" binding:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func (lc *LedgerController) CreateAssembly(c *gin.Context) {
	var input models.NewAssembly
	if !bindJSON(c, &input) {
		return
	}
	assembly, err := lc.engine.Assemblies.CreateAssembly(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to create assembly", err)
		return
	}
	utils.Created(c, "assembly created", assembly)
}

func (lc *LedgerController) GetAssembly(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	assembly, err := lc.engine.Assemblies.GetAssembly(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get assembly", err)
		return
	}
	utils.Success(c, "ok", assembly)
}

// BuildAssembly builds as the session user.
func (lc *LedgerController) BuildAssembly(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	var input buildAssemblyRequest
	if !bindJSON(c, &input) {
		return
	}
	result, err := lc.engine.Assemblies.BuildAssembly(c.Request.Context(), id, input.WarehouseId, input.Quantity, "")
	if err != nil {
		respondError(c, "failed to build assembly", err)
		return
	}
	utils.Created(c, "assembly built", result)
}
