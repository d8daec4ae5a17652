package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// LedgerController exposes the ledger engine over HTTP. db is only needed
// for the history endpoint and may be nil.
type LedgerController struct {
	engine *models.Engine
	db     *gorm.DB
}

func NewLedgerController(engine *models.Engine, db *gorm.DB) *LedgerController {
	return &LedgerController{engine: engine, db: db}
}

func (lc *LedgerController) RegisterRoutes(r gin.IRouter) {
	stock := r.Group("/stock")
	{
		stock.POST("/movements", lc.RecordMovement)
		stock.POST("/transfers", lc.TransferStock)
		stock.GET("/items/:itemId/balance", lc.GetBalance)
		stock.GET("/items/:itemId/movements", lc.GetMovements)
		stock.GET("/items/:itemId/summary", lc.GetStockSummary)
		stock.POST("/items/:itemId/reconcile", lc.ReconcileBalances)
	}

	assemblies := r.Group("/assemblies")
	{
		assemblies.POST("", lc.CreateAssembly)
		assemblies.GET("/:id", lc.GetAssembly)
		assemblies.POST("/:id/builds", lc.BuildAssembly)
	}

	documents := r.Group("/documents")
	{
		documents.POST("", lc.CreateDocument)
		documents.GET("/:id", lc.GetDocument)
		documents.POST("/:id/void", lc.VoidDocument)
	}

	creditNotes := r.Group("/credit-notes")
	{
		creditNotes.POST("", lc.CreateCreditNote)
		creditNotes.GET("/:id", lc.GetCreditNote)
		creditNotes.POST("/:id/close", lc.CloseCreditNote)
		creditNotes.POST("/:id/void", lc.VoidCreditNote)
	}

	parties := r.Group("/parties/:partyType")
	{
		parties.POST("/payments", lc.RecordPayment)
		parties.GET("/outstanding", lc.GetOutstandingForParties)
		parties.GET("/:partyId/balance", lc.GetPartyBalance)
		parties.GET("/:partyId/documents", lc.ListOpenDocuments)
	}

	r.GET("/histories", lc.GetHistories)
}

// respondError maps engine errors onto HTTP statuses.
func respondError(c *gin.Context, message string, err error) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidReferenceType):
		utils.Error(c, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, utils.ErrorBusinessIdRequired):
		utils.Error(c, http.StatusUnauthorized, message, err)
	case errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, models.ErrDocumentNotFound),
		errors.Is(err, models.ErrAssemblyNotFound):
		utils.Error(c, http.StatusNotFound, message, err)
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrInsufficientComponent),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrDuplicateDocument):
		utils.Error(c, http.StatusConflict, message, err)
	case errors.Is(err, utils.ErrorLockNotObtained):
		utils.Error(c, http.StatusServiceUnavailable, message, err)
	case errors.Is(err, context.DeadlineExceeded):
		utils.Error(c, http.StatusGatewayTimeout, message, err)
	default:
		utils.Error(c, http.StatusInternalServerError, message, err)
	}
}

func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

// queryId reads an optional positive id from the query string.
func queryId(c *gin.Context, name string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "invalid "+name, err)
		return nil, false
	}
	return &id, true
}

func paramPartyType(c *gin.Context) (models.PartyType, bool) {
	partyType, err := models.ParsePartyType(c.Param("partyType"))
	if err != nil {
		utils.Error(c, http.StatusNotFound, "unknown party type", err)
		return "", false
	}
	return partyType, true
}

func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}
