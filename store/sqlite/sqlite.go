/*
Package sqlite provides a SQLite-backed persistence adapter for the engine.

PURPOSE:

	Implements the movement log (inventory.Log), the invoice journal
	(billing.Journal) and catalog persistence over one SQLite database.
	In production the same patterns apply to PostgreSQL - only minor SQL
	dialect differences.

APPEND-ONLY ENFORCEMENT:

	The movements and payments tables are append-only:
	- No UPDATE statements on movements or payments
	- No DELETE statements on movements or payments
	Corrections are new movements; invoice rows are the only mutable state,
	and only their paid_amount/status change.

KEY TABLES:

	movements:  Immutable stock ledger (seq preserves insertion order)
	invoices:   Invoice heads (amount, paid_amount, derived status)
	payments:   Immutable payment portions per invoice
	stores:     Reference data
	products:   Reference data

WAL MODE:

	The database is opened with WAL (Write-Ahead Logging): readers don't
	block the single writer, and crash recovery is cleaner.

CONCURRENCY:

	A sync.RWMutex serializes writers; the engine's own per-key locking sits
	above this. With PostgreSQL, database-level concurrency control would
	take over.

USAGE:

	st, err := sqlite.New("./retail.db")
	...
	ledger := inventory.NewLedger(st, projection)
	book   := billing.NewBook(billing.WithJournal(st))

SEE ALSO:
  - inventory/ledger.go: Log interface
  - billing/book.go: Journal interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
)

// Store implements inventory.Log, billing.Journal and catalog persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows a single writer anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Movements (append-only stock ledger)
	CREATE TABLE IF NOT EXISTS movements (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		movement_type TEXT NOT NULL,
		store_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		reference TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_store_product
		ON movements(store_id, product_id);
	CREATE INDEX IF NOT EXISTS idx_movements_reference
		ON movements(reference) WHERE reference IS NOT NULL AND reference != '';

	-- Invoices (heads mutable, bounded by 0 <= paid_amount <= amount)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_store ON invoices(store_id);

	-- Payments (append-only portions applied to invoices)
	CREATE TABLE IF NOT EXISTS payments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		reference TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id);

	-- Reference data
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		store_group TEXT,
		risk_status TEXT
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		brand TEXT,
		cost TEXT NOT NULL,
		price TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MOVEMENT LOG - inventory.Log
// =============================================================================

func (s *Store) Append(ctx context.Context, m inventory.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMovement(ctx, s.db, m)
}

func (s *Store) AppendBatch(ctx context.Context, ms []inventory.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	for _, m := range ms {
		if err := s.appendMovement(ctx, tx, m); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) appendMovement(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, m inventory.StockMovement) error {
	query := `
		INSERT INTO movements
		(id, date, movement_type, store_id, product_id, variant, quantity, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		string(m.ID),
		m.Date.String(),
		string(m.Type),
		string(m.StoreID),
		string(m.ProductID),
		m.Variant,
		m.Quantity,
		m.Reference,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, storeID catalog.StoreID, productID catalog.ProductID) ([]inventory.StockMovement, error) {
	return s.queryMovements(ctx, `
		SELECT id, date, movement_type, store_id, product_id, variant, quantity, reference
		FROM movements WHERE store_id = ? AND product_id = ? ORDER BY seq`,
		string(storeID), string(productID))
}

func (s *Store) LoadAll(ctx context.Context) ([]inventory.StockMovement, error) {
	return s.queryMovements(ctx, `
		SELECT id, date, movement_type, store_id, product_id, variant, quantity, reference
		FROM movements ORDER BY seq`)
}

func (s *Store) LoadByReference(ctx context.Context, reference string) ([]inventory.StockMovement, error) {
	return s.queryMovements(ctx, `
		SELECT id, date, movement_type, store_id, product_id, variant, quantity, reference
		FROM movements WHERE reference = ? ORDER BY seq`,
		reference)
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]inventory.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var out []inventory.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMovement(rows *sql.Rows) (inventory.StockMovement, error) {
	var (
		m                              inventory.StockMovement
		id, date, mtype, sid, pid, ref string
	)
	if err := rows.Scan(&id, &date, &mtype, &sid, &pid, &m.Variant, &m.Quantity, &ref); err != nil {
		return inventory.StockMovement{}, fmt.Errorf("failed to scan movement: %w", err)
	}

	parsed, err := inventory.ParseDate(date)
	if err != nil {
		return inventory.StockMovement{}, err
	}
	m.ID = inventory.MovementID(id)
	m.Date = parsed
	m.Type = inventory.MovementType(mtype)
	m.StoreID = catalog.StoreID(sid)
	m.ProductID = catalog.ProductID(pid)
	m.Reference = ref
	return m, nil
}

// =============================================================================
// INVOICE JOURNAL - billing.Journal
// =============================================================================

func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO invoices (id, store_id, date, amount, paid_amount, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET paid_amount = excluded.paid_amount, status = excluded.status
	`
	_, err := s.db.ExecContext(ctx, query,
		string(inv.ID),
		string(inv.StoreID),
		inv.Date.UTC().Format(time.RFC3339),
		inv.Amount.String(),
		inv.PaidAmount.String(),
		string(inv.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (s *Store) AppendPayment(ctx context.Context, id billing.InvoiceID, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (id, invoice_id, date, amount, method, reference)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		string(id),
		p.Date.UTC().Format(time.RFC3339),
		p.Amount.String(),
		string(p.Method),
		p.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

// LoadInvoices returns all persisted invoices with their payments, in
// insertion order. Used to rebuild the book at startup.
func (s *Store) LoadInvoices(ctx context.Context) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, date, amount, paid_amount, status
		FROM invoices ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var (
			inv                                 billing.Invoice
			id, sid, date, amount, paid, status string
		)
		if err := rows.Scan(&id, &sid, &date, &amount, &paid, &status); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.ID = billing.InvoiceID(id)
		inv.StoreID = catalog.StoreID(sid)
		if inv.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("invalid invoice date: %w", err)
		}
		if inv.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid invoice amount: %w", err)
		}
		if inv.PaidAmount, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("invalid invoice paid amount: %w", err)
		}
		inv.Status = billing.InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		payments, err := s.loadPayments(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Payments = payments
	}
	return invoices, nil
}

func (s *Store) loadPayments(ctx context.Context, id billing.InvoiceID) ([]billing.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, method, reference
		FROM payments WHERE invoice_id = ? ORDER BY seq`,
		string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []billing.Payment
	for rows.Next() {
		var (
			p                    billing.Payment
			date, amount, method string
		)
		if err := rows.Scan(&p.ID, &date, &amount, &method, &p.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("invalid payment date: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid payment amount: %w", err)
		}
		p.Method = billing.PaymentMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (s *Store) SaveStore(ctx context.Context, st catalog.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, store_group, risk_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			store_group = excluded.store_group, risk_status = excluded.risk_status`,
		string(st.ID), st.Name, st.Group, string(st.RiskStatus))
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, brand, cost, price)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sku = excluded.sku, name = excluded.name,
			brand = excluded.brand, cost = excluded.cost, price = excluded.price`,
		string(p.ID), p.SKU, p.Name, p.Brand, p.Cost.String(), p.Price.String())
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// LoadCatalog populates a catalog from the persisted reference data.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := catalog.New()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, store_group, risk_status FROM stores`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	for rows.Next() {
		var id, name, group, risk string
		if err := rows.Scan(&id, &name, &group, &risk); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		c.PutStore(catalog.Store{
			ID:         catalog.StoreID(id),
			Name:       name,
			Group:      group,
			RiskStatus: catalog.RiskStatus(risk),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, sku, name, brand, cost, price FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, sku, name, brand, cost, price string
		if err := rows.Scan(&id, &sku, &name, &brand, &cost, &price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		costD, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("invalid product cost: %w", err)
		}
		priceD, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid product price: %w", err)
		}
		c.PutProduct(catalog.Product{
			ID:    catalog.ProductID(id),
			SKU:   sku,
			Name:  name,
			Brand: brand,
			Cost:  costD,
			Price: priceD,
		})
	}
	return c, rows.Err()
}
