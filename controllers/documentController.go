package controllers

import (
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
)

func (lc *LedgerController) CreateDocument(c *gin.Context) {
	var input models.NewDocument
	if !bindJSON(c, &input) {
		return
	}
	document, err := lc.engine.Documents.CreateDocument(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "failed to create document", err)
		return
	}
	utils.Created(c, "document created", document)
}

func (lc *LedgerController) GetDocument(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	document, err := lc.engine.Documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get document", err)
		return
	}
	utils.Success(c, "ok", document)
}

func (lc *LedgerController) VoidDocument(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	document, err := lc.engine.Documents.VoidDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to void document", err)
		return
	}
	utils.Success(c, "document voided", document)
}

func (lc *LedgerController) ListOpenDocuments(c *gin.Context) {
	partyType, ok := paramPartyType(c)
	if !ok {
		return
	}
	partyId, ok := paramId(c, "partyId")
	if !ok {
		return
	}
	documents, err := lc.engine.Documents.ListOpenDocuments(c.Request.Context(), partyType.DocumentType(), partyId)
	if err != nil {
		respondError(c, "failed to list documents", err)
		return
	}
	if documents == nil {
		documents = []models.AllocatableDocument{}
	}
	utils.Success(c, "ok", documents)
}
