package controllers

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
)

// GetHistories lists audit history rows, filtered by ?reference_type= and
// ?reference_id=. Only available when the ledger runs on a database.
func (lc *LedgerController) GetHistories(c *gin.Context) {
	if lc.db == nil {
		utils.Error(c, http.StatusNotImplemented, "history is not recorded without a database", nil)
		return
	}
	referenceId, ok := queryId(c, "reference_id")
	if !ok {
		return
	}
	id := 0
	if referenceId != nil {
		id = *referenceId
	}
	histories, err := models.GetHistories(c.Request.Context(), lc.db, strings.TrimSpace(c.Query("reference_type")), id)
	if err != nil {
		respondError(c, "failed to get histories", err)
		return
	}
	utils.Success(c, "ok", histories)
}
