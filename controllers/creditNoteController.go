package controllers

import (
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
)

func (lc *LedgerController) CreateCreditNote(c *gin.Context) {
	var input models.NewCreditNote
	if !bindJSON(c, &input) {
		return
	}
	creditNote, err := lc.engine.CreditNotes.CreateCreditNote(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to create credit note", err)
		return
	}
	utils.Created(c, "credit note created", creditNote)
}

func (lc *LedgerController) GetCreditNote(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	creditNote, err := lc.engine.CreditNotes.GetCreditNote(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get credit note", err)
		return
	}
	utils.Success(c, "ok", creditNote)
}

func (lc *LedgerController) CloseCreditNote(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	creditNote, err := lc.engine.CreditNotes.CloseCreditNote(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to close credit note", err)
		return
	}
	utils.Success(c, "credit note closed", creditNote)
}

func (lc *LedgerController) VoidCreditNote(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	creditNote, err := lc.engine.CreditNotes.VoidCreditNote(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to void credit note", err)
		return
	}
	utils.Success(c, "credit note voided", creditNote)
}
