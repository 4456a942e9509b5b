/*
seed.go - Demo dataset loader

PURPOSE:

	Populates the engine with a small realistic dataset for demos and manual
	testing: a handful of stores and products, opening stock, one transfer,
	and a few open invoices. Everything goes through the same engine paths
	production callers use (Record, Transfer, Book.Add) - the seed is also a
	smoke test of the write paths.

USAGE VIA API:

	POST /api/seed

NOTE:

	The seed does not reset existing data; loading it twice doubles the
	opening stock. Intended for development environments.

SEE ALSO:
  - handlers.go: Seed handler
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
)

// Seeder persists seeded reference data when a persistent store is
// configured. Implemented by *sqlite.Store; nil when running in-memory.
type Seeder interface {
	SaveStore(ctx context.Context, s catalog.Store) error
	SaveProduct(ctx context.Context, p catalog.Product) error
}

// =============================================================================
// DEMO DATA
// =============================================================================

var seedStores = []catalog.Store{
	{ID: "store-central", Name: "Central Flagship", Group: "metro", RiskStatus: catalog.RiskNormal},
	{ID: "store-harbor", Name: "Harbor Outlet", Group: "metro", RiskStatus: catalog.RiskWatch},
	{ID: "store-north", Name: "Northgate Mall", Group: "suburban", RiskStatus: catalog.RiskNormal},
}

var seedProducts = []catalog.Product{
	{ID: "prod-tee", SKU: "TEE-001", Name: "Classic Tee", Brand: "Meridian",
		Cost: decimal.NewFromInt(8), Price: decimal.NewFromInt(25)},
	{ID: "prod-hoodie", SKU: "HD-204", Name: "Zip Hoodie", Brand: "Meridian",
		Cost: decimal.NewFromInt(22), Price: decimal.NewFromInt(69)},
	{ID: "prod-cap", SKU: "CAP-310", Name: "Snapback Cap", Brand: "Northline",
		Cost: decimal.NewFromInt(5), Price: decimal.NewFromInt(19)},
}

// Seed loads the demo dataset through the regular engine paths.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for _, s := range seedStores {
		h.Catalog.PutStore(s)
		if h.Seeder != nil {
			if err := h.Seeder.SaveStore(ctx, s); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to persist store", err)
				return
			}
		}
	}
	for _, p := range seedProducts {
		h.Catalog.PutProduct(p)
		if h.Seeder != nil {
			if err := h.Seeder.SaveProduct(ctx, p); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to persist product", err)
				return
			}
		}
	}

	opening := inventory.Today().AddDays(-30)
	type stock struct {
		store   catalog.StoreID
		product catalog.ProductID
		variant string
		qty     int
	}
	openingStock := []stock{
		{"store-central", "prod-tee", "M", 40},
		{"store-central", "prod-tee", "L", 30},
		{"store-central", "prod-hoodie", "M", 25},
		{"store-harbor", "prod-tee", "M", 15},
		{"store-harbor", "prod-cap", "one-size", 50},
		{"store-north", "prod-hoodie", "L", 20},
	}
	for _, st := range openingStock {
		_, err := h.Ledger.Record(ctx, inventory.MovementInput{
			Date:      opening,
			Type:      inventory.MovementPurchase,
			StoreID:   st.store,
			ProductID: st.product,
			Variant:   st.variant,
			Quantity:  st.qty,
			Reference: "seed-opening",
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed stock", err)
			return
		}
	}

	// A few sales (magnitudes; the ledger normalizes the sign) and one
	// rebalancing transfer, so the movement list has some texture.
	_, err := h.Ledger.Record(ctx, inventory.MovementInput{
		Date: opening.AddDays(3), Type: inventory.MovementSale,
		StoreID: "store-central", ProductID: "prod-tee", Variant: "M",
		Quantity: 6, Reference: "seed-sale-1",
	})
	if err == nil {
		_, _, err = h.Ledger.Transfer(ctx, inventory.TransferInput{
			Date: opening.AddDays(7), FromStoreID: "store-central", ToStoreID: "store-harbor",
			ProductID: "prod-tee", Variant: "L", Quantity: 10, Reference: "seed-rebalance",
		})
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed movements", err)
		return
	}

	invoiceDate := time.Now().UTC().AddDate(0, 0, -20)
	seedInvoices := []billing.Invoice{
		{ID: "inv-1001", StoreID: "store-central", Date: invoiceDate, Amount: decimal.NewFromInt(1200)},
		{ID: "inv-1002", StoreID: "store-central", Date: invoiceDate.AddDate(0, 0, 5), Amount: decimal.NewFromInt(450)},
		{ID: "inv-1003", StoreID: "store-harbor", Date: invoiceDate.AddDate(0, 0, 9), Amount: decimal.NewFromInt(780)},
	}
	for _, inv := range seedInvoices {
		if err := h.Book.Add(ctx, inv); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed invoices", err)
			return
		}
	}

	h.Logger.Info("demo dataset loaded",
		zap.Int("stores", len(seedStores)),
		zap.Int("products", len(seedProducts)),
		zap.Int("invoices", len(seedInvoices)))

	writeJSON(w, http.StatusOK, map[string]any{
		"stores":   len(seedStores),
		"products": len(seedProducts),
		"invoices": len(seedInvoices),
	})
}
