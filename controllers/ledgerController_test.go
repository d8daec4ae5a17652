package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/controllers"
	"bitbucket.org/mmdatafocus/books_ledger/middlewares"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const businessId = "11111111-2222-3333-4444-555555555555"

type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	engine := models.NewEngine(models.EngineOptions{
		Store:    models.NewMemoryStore(),
		Settings: config.DefaultLedgerSettings(),
		Logger:   logger,
		Audit:    models.NewLogAuditNotifier(logger),
	})
	return controllers.NewRouter(controllers.NewLedgerController(engine, nil), logger)
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middlewares.HeaderBusinessId, businessId)
	req.Header.Set(middlewares.HeaderUserName, "clerk")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body %s", w.Code, want, w.Body.String())
	}
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func TestSessionIsRequired(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/items/1/balance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusNoContent)
}

func TestStockEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/stock/movements", gin.H{
		"item_id": 1, "warehouse_id": 1, "reference_type": "OPENING", "reference_no": "OPEN", "in_qty": "10",
	})
	expectStatus(t, w, http.StatusCreated)
	movement := decodeData[models.StockMovement](t, env)
	if movement.CreatedBy != "clerk" || movement.CorrelationId == "" {
		t.Fatalf("movement not stamped from the session: %+v", movement)
	}
	if w.Header().Get(middlewares.HeaderCorrelationId) != movement.CorrelationId {
		t.Fatalf("response correlation id %q, movement %q", w.Header().Get(middlewares.HeaderCorrelationId), movement.CorrelationId)
	}

	w, env = do(t, r, http.MethodPost, "/api/v1/stock/movements", gin.H{
		"item_id": 1, "warehouse_id": 1, "reference_type": "SALES", "out_qty": "11",
	})
	expectStatus(t, w, http.StatusConflict)
	if env.Error == "" {
		t.Fatalf("conflict without an error message")
	}

	w, _ = do(t, r, http.MethodPost, "/api/v1/stock/movements", gin.H{
		"item_id": 0, "warehouse_id": 1, "reference_type": "SALES", "out_qty": "1",
	})
	expectStatus(t, w, http.StatusUnprocessableEntity)

	w, _ = do(t, r, http.MethodPost, "/api/v1/stock/transfers", gin.H{
		"item_id": 1, "from_warehouse_id": 1, "to_warehouse_id": 2, "qty": "4",
	})
	expectStatus(t, w, http.StatusCreated)

	w, env = do(t, r, http.MethodGet, "/api/v1/stock/items/1/balance?warehouse_id=2", nil)
	expectStatus(t, w, http.StatusOK)
	balance := decodeData[struct {
		Balance decimal.Decimal `json:"balance"`
	}](t, env)
	if !balance.Balance.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("warehouse 2 balance = %s, want 4", balance.Balance)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/stock/items/1/summary", nil)
	expectStatus(t, w, http.StatusOK)
	summary := decodeData[models.StockSummary](t, env)
	if len(summary.Warehouses) != 2 || !summary.Total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/stock/items/1/movements?warehouse_id=1", nil)
	expectStatus(t, w, http.StatusOK)
	rows := decodeData[[]struct {
		RunningBalance decimal.Decimal `json:"running_balance"`
	}](t, env)
	if len(rows) != 2 || !rows[1].RunningBalance.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("unexpected movements %s", env.Data)
	}

	w, _ = do(t, r, http.MethodGet, "/api/v1/stock/items/abc/balance", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAssemblyEndpoints(t *testing.T) {
	r := newTestRouter(t)

	for _, item := range []int{1, 2} {
		w, _ := do(t, r, http.MethodPost, "/api/v1/stock/movements", gin.H{
			"item_id": item, "warehouse_id": 1, "reference_type": "OPENING", "in_qty": "5",
		})
		expectStatus(t, w, http.StatusCreated)
	}

	w, env := do(t, r, http.MethodPost, "/api/v1/assemblies", gin.H{
		"finished_item_id": 9,
		"name":             "Kit",
		"components": []gin.H{
			{"item_id": 1, "quantity": "2"},
			{"item_id": 2, "quantity": "1"},
		},
	})
	expectStatus(t, w, http.StatusCreated)
	assembly := decodeData[models.Assembly](t, env)

	path := "/api/v1/assemblies/" + itoa(assembly.ID) + "/builds"
	w, env = do(t, r, http.MethodPost, path, gin.H{"warehouse_id": 1, "quantity": "2"})
	expectStatus(t, w, http.StatusCreated)
	result := decodeData[models.BuildResult](t, env)
	if result.ReferenceNo != "BLD-"+itoa(assembly.ID)+"-1" || len(result.Consumed) != 2 {
		t.Fatalf("unexpected build result %+v", result)
	}

	w, _ = do(t, r, http.MethodPost, path, gin.H{"warehouse_id": 1, "quantity": "2"})
	expectStatus(t, w, http.StatusConflict)

	w, _ = do(t, r, http.MethodPost, "/api/v1/assemblies/999/builds", gin.H{"warehouse_id": 1, "quantity": "1"})
	expectStatus(t, w, http.StatusNotFound)

	w, _ = do(t, r, http.MethodPost, path, gin.H{"warehouse_id": 1, "quantity": "0"})
	expectStatus(t, w, http.StatusUnprocessableEntity)
}

func TestPaymentAndPartyEndpoints(t *testing.T) {
	r := newTestRouter(t)

	var ids []int
	for _, total := range []string{"100", "50", "80"} {
		w, env := do(t, r, http.MethodPost, "/api/v1/documents", gin.H{
			"document_type": "Invoice", "party_id": 3, "total": total,
		})
		expectStatus(t, w, http.StatusCreated)
		ids = append(ids, decodeData[models.AllocatableDocument](t, env).ID)
	}
	w, _ := do(t, r, http.MethodPost, "/api/v1/documents", gin.H{
		"document_type": "Bill", "party_id": 3, "total": "70",
	})
	expectStatus(t, w, http.StatusCreated)

	for _, want := range []int{http.StatusCreated, http.StatusConflict} {
		w, _ = do(t, r, http.MethodPost, "/api/v1/documents", gin.H{
			"document_type": "Invoice", "party_id": 4, "document_number": "INV-9", "total": "5",
		})
		expectStatus(t, w, want)
	}

	w, env := do(t, r, http.MethodPost, "/api/v1/parties/customers/payments", gin.H{
		"party_id": 3, "amount": "120", "reference_number": "RCPT-1",
	})
	expectStatus(t, w, http.StatusCreated)
	result := decodeData[models.AllocationResult](t, env)
	if !result.Allocated.Equal(decimal.NewFromInt(120)) || len(result.Allocations) != 2 {
		t.Fatalf("unexpected allocation %+v", result)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/documents/"+itoa(ids[1]), nil)
	expectStatus(t, w, http.StatusOK)
	if doc := decodeData[models.AllocatableDocument](t, env); doc.Status != models.DocumentStatusPartialPaid {
		t.Fatalf("INV-2 status = %q", doc.Status)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/parties/customers/3/documents", nil)
	expectStatus(t, w, http.StatusOK)
	if open := decodeData[[]models.AllocatableDocument](t, env); len(open) != 2 {
		t.Fatalf("open documents = %d, want 2", len(open))
	}

	w, _ = do(t, r, http.MethodPost, "/api/v1/credit-notes", gin.H{
		"party_type": "Customer", "party_id": 3, "amount": "10",
	})
	expectStatus(t, w, http.StatusCreated)

	w, env = do(t, r, http.MethodGet, "/api/v1/parties/customers/3/balance", nil)
	expectStatus(t, w, http.StatusOK)
	balance := decodeData[models.PartyBalance](t, env)
	if !balance.Outstanding.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("outstanding = %s, want 100", balance.Outstanding)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/parties/suppliers/outstanding?ids=3,4", nil)
	expectStatus(t, w, http.StatusOK)
	batch := decodeData[map[string]decimal.Decimal](t, env)
	if !batch["3"].Equal(decimal.NewFromInt(70)) || !batch["4"].IsZero() {
		t.Fatalf("unexpected batch %+v", batch)
	}

	w, _ = do(t, r, http.MethodPost, "/api/v1/parties/customers/payments", gin.H{
		"party_id": 3, "amount": "-5",
	})
	expectStatus(t, w, http.StatusUnprocessableEntity)

	w, _ = do(t, r, http.MethodPost, "/api/v1/parties/customers/payments", gin.H{
		"party_id": 3, "amount": "5", "target_document_id": 999,
	})
	expectStatus(t, w, http.StatusNotFound)

	w, _ = do(t, r, http.MethodPost, "/api/v1/parties/employees/payments", gin.H{"party_id": 3, "amount": "5"})
	expectStatus(t, w, http.StatusNotFound)

	w, _ = do(t, r, http.MethodPost, "/api/v1/documents/"+itoa(ids[0])+"/void", nil)
	expectStatus(t, w, http.StatusConflict)

	w, _ = do(t, r, http.MethodGet, "/api/v1/histories", nil)
	expectStatus(t, w, http.StatusNotImplemented)
}

func TestCreditNoteEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/credit-notes", gin.H{
		"party_type": "Supplier", "party_id": 8, "credit_note_number": "SC-1", "amount": "15",
	})
	expectStatus(t, w, http.StatusCreated)
	cn := decodeData[models.CreditNote](t, env)

	w, env = do(t, r, http.MethodPost, "/api/v1/credit-notes/"+itoa(cn.ID)+"/close", nil)
	expectStatus(t, w, http.StatusOK)
	if closed := decodeData[models.CreditNote](t, env); closed.Status != models.CreditNoteStatusClosed {
		t.Fatalf("status = %q", closed.Status)
	}

	w, _ = do(t, r, http.MethodPost, "/api/v1/credit-notes/"+itoa(cn.ID)+"/void", nil)
	expectStatus(t, w, http.StatusConflict)

	w, _ = do(t, r, http.MethodGet, "/api/v1/credit-notes/404", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
