/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the retail stock & billing engine server:
	configuration, dependency wiring, graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags
 2. Open SQLite store, load catalog and invoices
 3. Rebuild the inventory projection from the movement log
 4. Wire ledger, book, allocator, HTTP handler
 5. Start server with graceful shutdown

COMMAND-LINE FLAGS:

	-port    HTTP server port (default: 8080)
	-db      SQLite database path (default: retail.db, ":memory:" works)

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM: stop accepting connections, drain active requests
	(30s timeout), close the database.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/retail-engine/api"
	"github.com/warp/retail-engine/billing"
	"github.com/warp/retail-engine/inventory"
	"github.com/warp/retail-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "retail.db", "SQLite database path")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer st.Close()

	ctx := context.Background()

	cat, err := st.LoadCatalog(ctx)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	projection := inventory.NewProjection(cat)
	ledger := inventory.NewLedger(st, projection)
	if err := ledger.RebuildProjection(ctx); err != nil {
		logger.Fatal("failed to rebuild inventory projection", zap.Error(err))
	}

	book := billing.NewBook(billing.WithJournal(st))
	invoices, err := st.LoadInvoices(ctx)
	if err != nil {
		logger.Fatal("failed to load invoices", zap.Error(err))
	}
	for _, inv := range invoices {
		// Re-adding through the book re-derives statuses; the journal
		// upsert makes this a no-op write.
		if err := book.Add(ctx, inv); err != nil {
			logger.Fatal("failed to restore invoice", zap.String("id", string(inv.ID)), zap.Error(err))
		}
	}
	allocator := billing.NewAllocator(book)

	handler := api.NewHandler(cat, ledger, book, allocator, logger)
	handler.Seeder = st
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.Int("invoices_loaded", len(invoices)))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
