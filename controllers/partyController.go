package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/middlewares"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
)

// RecordPayment allocates a receipt (customers) or a payment (suppliers).
func (lc *LedgerController) RecordPayment(c *gin.Context) {
	partyType, ok := paramPartyType(c)
	if !ok {
		return
	}
	var input models.NewPayment
	if !bindJSON(c, &input) {
		return
	}
	result, err := lc.engine.Allocations(partyType).RecordPayment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to record payment", err)
		return
	}
	utils.Created(c, "payment recorded", result)
}

func (lc *LedgerController) GetPartyBalance(c *gin.Context) {
	partyType, ok := paramPartyType(c)
	if !ok {
		return
	}
	partyId, ok := paramId(c, "partyId")
	if !ok {
		return
	}
	balance, err := lc.engine.Parties.GetPartyBalance(c.Request.Context(), partyType, partyId)
	if err != nil {
		respondError(c, "failed to get party balance", err)
		return
	}
	utils.Success(c, "ok", balance)
}

// GetOutstandingForParties answers ?ids=1,2,3 through the request's batch loader.
func (lc *LedgerController) GetOutstandingForParties(c *gin.Context) {
	partyType, ok := paramPartyType(c)
	if !ok {
		return
	}
	ids, err := parseIds(c.Query("ids"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid ids", err)
		return
	}

	balances, errs := middlewares.GetPartiesOutstanding(c.Request.Context(), partyType, ids)
	if err := errors.Join(errs...); err != nil {
		respondError(c, "failed to get outstanding balances", err)
		return
	}
	result := make(map[string]any, len(ids))
	for i, id := range ids {
		result[strconv.Itoa(id)] = balances[i]
	}
	utils.Success(c, "ok", result)
}

func parseIds(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, errors.New("ids must be positive integers")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one id is required")
	}
	return ids, nil
}
