/*
handlers.go - HTTP API handlers for the retail stock & billing engine

PURPOSE:

	Exposes the engine via REST. Handles HTTP request/response and JSON
	serialization, delegates everything else to the domain packages.

ENDPOINTS:

	Reference data:
	  GET    /api/stores               List stores
	  GET    /api/stores/{storeID}     One store
	  GET    /api/products             List products
	  GET    /api/products/{productID} One product

	Stock:
	  POST   /api/movements            Record a stock movement
	  GET    /api/movements            Movement history (by key or reference)
	  POST   /api/transfers            Transfer stock between stores
	  GET    /api/inventory            Current inventory items
	  GET    /api/inventory/{storeID}/{productID}  One item

	Billing:
	  POST   /api/invoices             Register an invoice
	  GET    /api/invoices             List invoices (optional ?store_id=)
	  GET    /api/invoices/{id}        One invoice with payments
	  POST   /api/payments             Allocate a payment across invoices

	Demo:
	  POST   /api/seed                 Load the demo dataset (seed.go)

ERROR HANDLING:

	Errors are returned as JSON with appropriate HTTP status:
	- 400: Validation errors, invalid input
	- 404: Resource not found
	- 500: Internal errors
	Unknown store/product references are NOT errors: display fields degrade
	to "Unknown" per the engine's best-effort policy.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog   *catalog.Catalog
	Ledger    *inventory.Ledger
	Book      *billing.Book
	Allocator *billing.Allocator
	Logger    *zap.Logger

	// Seeder persists seeded reference data; nil when running in-memory.
	Seeder Seeder
}

// NewHandler wires a handler over the engine components.
func NewHandler(c *catalog.Catalog, l *inventory.Ledger, b *billing.Book, a *billing.Allocator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Catalog: c, Ledger: l, Book: b, Allocator: a, Logger: logger}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores := h.Catalog.Stores()
	dtos := make([]StoreDTO, 0, len(stores))
	for _, s := range stores {
		dtos = append(dtos, toStoreDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	id := catalog.StoreID(chi.URLParam(r, "storeID"))
	s, err := h.Catalog.GetStore(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Store not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreDTO(s))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.Catalog.Products()
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := catalog.ProductID(chi.URLParam(r, "productID"))
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// =============================================================================
// STOCK MOVEMENTS
// =============================================================================

func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req RecordMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mtype, err := inventory.ParseMovementType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movement type", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.StoreID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "store_id and product_id are required", nil)
		return
	}

	m, err := h.Ledger.Record(r.Context(), inventory.MovementInput{
		Date:      date,
		Type:      mtype,
		StoreID:   catalog.StoreID(req.StoreID),
		ProductID: catalog.ProductID(req.ProductID),
		Variant:   req.Variant,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record movement", err)
		return
	}

	h.Logger.Info("movement recorded",
		zap.String("id", string(m.ID)),
		zap.String("type", string(m.Type)),
		zap.String("store_id", string(m.StoreID)),
		zap.String("product_id", string(m.ProductID)),
		zap.Int("quantity", m.Quantity))

	writeJSON(w, http.StatusCreated, toMovementDTO(m))
}

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		movements []inventory.StockMovement
		err       error
	)
	switch {
	case q.Get("reference") != "":
		movements, err = h.Ledger.MovementsByReference(r.Context(), q.Get("reference"))
	case q.Get("store_id") != "" && q.Get("product_id") != "":
		movements, err = h.Ledger.Movements(r.Context(),
			catalog.StoreID(q.Get("store_id")), catalog.ProductID(q.Get("product_id")))
	default:
		movements, err = h.Ledger.Log().LoadAll(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load movements", err)
		return
	}

	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, toMovementDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.FromStoreID == "" || req.ToStoreID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "from_store_id, to_store_id and product_id are required", nil)
		return
	}

	out, in, err := h.Ledger.Transfer(r.Context(), inventory.TransferInput{
		Date:        date,
		FromStoreID: catalog.StoreID(req.FromStoreID),
		ToStoreID:   catalog.StoreID(req.ToStoreID),
		ProductID:   catalog.ProductID(req.ProductID),
		Variant:     req.Variant,
		Quantity:    req.Quantity,
		Reference:   req.Reference,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to transfer", err)
		return
	}

	h.Logger.Info("transfer recorded",
		zap.String("reference", out.Reference),
		zap.String("from", string(out.StoreID)),
		zap.String("to", string(in.StoreID)),
		zap.Int("quantity", in.Quantity))

	writeJSON(w, http.StatusCreated, TransferResponse{
		Outbound: toMovementDTO(out),
		Inbound:  toMovementDTO(in),
	})
}

// =============================================================================
// INVENTORY
// =============================================================================

func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items := h.Ledger.Projection().Items()
	dtos := make([]InventoryItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toItemDTO(it))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	storeID := catalog.StoreID(chi.URLParam(r, "storeID"))
	productID := catalog.ProductID(chi.URLParam(r, "productID"))

	it, ok := h.Ledger.Projection().Get(storeID, productID)
	if !ok {
		writeError(w, http.StatusNotFound, "Inventory item not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(it))
}

// =============================================================================
// INVOICES & PAYMENTS
// =============================================================================

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StoreID == "" {
		writeError(w, http.StatusBadRequest, "store_id is required", nil)
		return
	}
	date, err := parseInvoiceDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	id := req.ID
	if id == "" {
		id = "inv-" + uuid.NewString()
	}
	inv := billing.Invoice{
		ID:      billing.InvoiceID(id),
		StoreID: catalog.StoreID(req.StoreID),
		Date:    date,
		Amount:  req.Amount,
	}
	if err := h.Book.Add(r.Context(), inv); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to register invoice", err)
		return
	}

	registered, _ := h.Book.Get(inv.ID)
	writeJSON(w, http.StatusCreated, toInvoiceDTO(registered))
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	var invoices []billing.Invoice
	if storeID := r.URL.Query().Get("store_id"); storeID != "" {
		invoices = h.Book.ByStore(catalog.StoreID(storeID))
	} else {
		invoices = h.Book.List()
	}

	dtos := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		dtos = append(dtos, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.Book.Get(billing.InvoiceID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (h *Handler) AllocatePayment(w http.ResponseWriter, r *http.Request) {
	var req AllocatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.InvoiceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invoice_ids is required", nil)
		return
	}

	ids := make([]billing.InvoiceID, 0, len(req.InvoiceIDs))
	for _, id := range req.InvoiceIDs {
		ids = append(ids, billing.InvoiceID(id))
	}

	touched, err := h.Allocator.Allocate(r.Context(), ids, req.Amount,
		billing.PaymentMethod(req.Method), req.Reference)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to allocate payment", err)
		return
	}

	h.Logger.Info("payment allocated",
		zap.String("amount", req.Amount.String()),
		zap.Int("invoices_touched", len(touched)),
		zap.String("reference", req.Reference))

	dtos := make([]InvoiceDTO, 0, len(touched))
	for _, inv := range touched {
		dtos = append(dtos, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
