/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	JSON structures for API communication, decoupled from the domain model.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:

	Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

type StoreDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group,omitempty"`
	RiskStatus string `json:"risk_status,omitempty"`
}

type ProductDTO struct {
	ID    string          `json:"id"`
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Brand string          `json:"brand,omitempty"`
	Cost  decimal.Decimal `json:"cost"`
	Price decimal.Decimal `json:"price"`
}

// =============================================================================
// MOVEMENTS
// =============================================================================

type RecordMovementRequest struct {
	Date      string `json:"date"` // YYYY-MM-DD, defaults to today
	Type      string `json:"type"`
	StoreID   string `json:"store_id"`
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference,omitempty"`
}

type MovementDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Type      string `json:"type"`
	StoreID   string `json:"store_id"`
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference,omitempty"`
}

type TransferRequest struct {
	Date        string `json:"date"`
	FromStoreID string `json:"from_store_id"`
	ToStoreID   string `json:"to_store_id"`
	ProductID   string `json:"product_id"`
	Variant     string `json:"variant"`
	Quantity    int    `json:"quantity"`
	Reference   string `json:"reference,omitempty"`
}

type TransferResponse struct {
	Outbound MovementDTO `json:"outbound"`
	Inbound  MovementDTO `json:"inbound"`
}

// =============================================================================
// INVENTORY
// =============================================================================

type InventoryItemDTO struct {
	StoreID           string         `json:"store_id"`
	ProductID         string         `json:"product_id"`
	StoreName         string         `json:"store_name"`
	ProductName       string         `json:"product_name"`
	SKU               string         `json:"sku"`
	Brand             string         `json:"brand,omitempty"`
	Quantity          int            `json:"quantity"`
	VariantQuantities map[string]int `json:"variant_quantities"`
}

// =============================================================================
// INVOICES & PAYMENTS
// =============================================================================

type CreateInvoiceRequest struct {
	ID      string          `json:"id,omitempty"` // generated when empty
	StoreID string          `json:"store_id"`
	Date    string          `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Amount  decimal.Decimal `json:"amount"`
}

type AllocatePaymentRequest struct {
	InvoiceIDs []string        `json:"invoice_ids"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
}

type PaymentDTO struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

type InvoiceDTO struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	Date       string          `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     string          `json:"status"`
	Payments   []PaymentDTO    `json:"payments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStoreDTO(s catalog.Store) StoreDTO {
	return StoreDTO{
		ID:         string(s.ID),
		Name:       s.Name,
		Group:      s.Group,
		RiskStatus: string(s.RiskStatus),
	}
}

func toProductDTO(p catalog.Product) ProductDTO {
	return ProductDTO{
		ID:    string(p.ID),
		SKU:   p.SKU,
		Name:  p.Name,
		Brand: p.Brand,
		Cost:  p.Cost,
		Price: p.Price,
	}
}

func toMovementDTO(m inventory.StockMovement) MovementDTO {
	return MovementDTO{
		ID:        string(m.ID),
		Date:      m.Date.String(),
		Type:      string(m.Type),
		StoreID:   string(m.StoreID),
		ProductID: string(m.ProductID),
		Variant:   m.Variant,
		Quantity:  m.Quantity,
		Reference: m.Reference,
	}
}

func toItemDTO(it inventory.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		StoreID:           string(it.StoreID),
		ProductID:         string(it.ProductID),
		StoreName:         it.StoreName,
		ProductName:       it.ProductName,
		SKU:               it.SKU,
		Brand:             it.Brand,
		Quantity:          it.Quantity,
		VariantQuantities: it.VariantQuantities,
	}
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	payments := make([]PaymentDTO, 0, len(inv.Payments))
	for _, p := range inv.Payments {
		payments = append(payments, PaymentDTO{
			ID:        p.ID,
			Date:      p.Date.UTC().Format("2006-01-02"),
			Amount:    p.Amount,
			Method:    string(p.Method),
			Reference: p.Reference,
		})
	}
	return InvoiceDTO{
		ID:         string(inv.ID),
		StoreID:    string(inv.StoreID),
		Date:       inv.Date.UTC().Format("2006-01-02"),
		Amount:     inv.Amount,
		PaidAmount: inv.PaidAmount,
		Status:     string(inv.Status),
		Payments:   payments,
	}
}

func parseDateOrToday(s string) (inventory.Date, error) {
	if s == "" {
		return inventory.Today(), nil
	}
	return inventory.ParseDate(s)
}

func parseInvoiceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
