/*
handlers_test.go - HTTP-level tests for the API surface

Exercises the full wiring: chi router, JSON codecs, and the engine
underneath, over an in-memory movement log.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
	"github.com/warp/retail-engine/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	c := catalog.New()
	c.PutStore(catalog.Store{ID: "store-1", Name: "Central"})
	c.PutStore(catalog.Store{ID: "store-2", Name: "Harbor"})
	c.PutProduct(catalog.Product{ID: "prod-1", SKU: "TEE-001", Name: "Classic Tee"})

	ledger := inventory.NewLedger(store.NewMemory(), inventory.NewProjection(c))
	book := billing.NewBook()
	allocator := billing.NewAllocator(book)

	h := NewHandler(c, ledger, book, allocator, zap.NewNop())
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestAPI_GetStore(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/stores/store-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decode[StoreDTO](t, resp)
	assert.Equal(t, "Central", s.Name)

	resp, err = http.Get(srv.URL + "/api/stores/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func TestAPI_RecordMovement_NormalizesSale(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/movements", RecordMovementRequest{
		Date: "2025-03-10", Type: "sale", StoreID: "store-1", ProductID: "prod-1",
		Variant: "M", Quantity: 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	m := decode[MovementDTO](t, resp)
	assert.Equal(t, -5, m.Quantity, "sale magnitude must be stored negative")
	assert.Equal(t, "2025-03-10", m.Date)
	assert.NotEmpty(t, m.ID)
}

func TestAPI_RecordMovement_InvalidType(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/movements", RecordMovementRequest{
		Type: "teleport", StoreID: "store-1", ProductID: "prod-1", Quantity: 1,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TransferAndInventory(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/movements", RecordMovementRequest{
		Type: "purchase", StoreID: "store-1", ProductID: "prod-1", Variant: "M", Quantity: 20,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/transfers", TransferRequest{
		FromStoreID: "store-1", ToStoreID: "store-2", ProductID: "prod-1",
		Variant: "M", Quantity: 8, Reference: "rebalance-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tr := decode[TransferResponse](t, resp)
	assert.Equal(t, -8, tr.Outbound.Quantity)
	assert.Equal(t, 8, tr.Inbound.Quantity)
	assert.Equal(t, "rebalance-1", tr.Inbound.Reference)

	getResp, err := http.Get(srv.URL + "/api/inventory/store-2/prod-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	it := decode[InventoryItemDTO](t, getResp)
	assert.Equal(t, 8, it.Quantity)
	assert.Equal(t, "Harbor", it.StoreName)
	assert.Equal(t, "Classic Tee", it.ProductName)

	listResp, err := http.Get(srv.URL + "/api/movements?reference=rebalance-1")
	require.NoError(t, err)
	legs := decode[[]MovementDTO](t, listResp)
	assert.Len(t, legs, 2)
}

func TestAPI_TransferRejectsNonPositiveQuantity(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/transfers", TransferRequest{
		FromStoreID: "store-1", ToStoreID: "store-2", ProductID: "prod-1", Quantity: 0,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// INVOICES & PAYMENTS
// =============================================================================

func TestAPI_InvoiceLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/invoices", CreateInvoiceRequest{
		ID: "inv-1", StoreID: "store-1", Date: "2025-04-01", Amount: decimal.NewFromInt(100),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[InvoiceDTO](t, resp)
	assert.Equal(t, "unpaid", created.Status)

	resp = postJSON(t, srv.URL+"/api/payments", AllocatePaymentRequest{
		InvoiceIDs: []string{"inv-1"}, Amount: decimal.NewFromInt(60), Method: "cash", Reference: "p1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	touched := decode[[]InvoiceDTO](t, resp)
	require.Len(t, touched, 1)
	assert.Equal(t, "partial", touched[0].Status)
	assert.True(t, touched[0].PaidAmount.Equal(decimal.NewFromInt(60)))

	resp = postJSON(t, srv.URL+"/api/payments", AllocatePaymentRequest{
		InvoiceIDs: []string{"inv-1"}, Amount: decimal.NewFromInt(60), Method: "cash", Reference: "p2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	touched = decode[[]InvoiceDTO](t, resp)
	require.Len(t, touched, 1)
	assert.Equal(t, "paid", touched[0].Status)
	assert.True(t, touched[0].PaidAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, touched[0].Payments, 2)
	assert.True(t, touched[0].Payments[1].Amount.Equal(decimal.NewFromInt(40)),
		"second payment records the applied portion, not the submitted amount")
}

func TestAPI_AllocateRejectsNonPositiveAmount(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/payments", AllocatePaymentRequest{
		InvoiceIDs: []string{"inv-1"}, Amount: decimal.Zero, Method: "cash",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// SEED
// =============================================================================

func TestAPI_SeedLoadsDemoData(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/seed", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	invResp, err := http.Get(srv.URL + "/api/inventory")
	require.NoError(t, err)
	items := decode[[]InventoryItemDTO](t, invResp)
	assert.NotEmpty(t, items)

	billResp, err := http.Get(srv.URL + "/api/invoices")
	require.NoError(t, err)
	invoices := decode[[]InvoiceDTO](t, billResp)
	assert.Len(t, invoices, 3)
}
