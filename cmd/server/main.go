/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance reconciliation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Resolve the anomaly policy (built-in name or JSON file)
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: attendance.db)
                   Use ":memory:" for an in-memory database
  -anomaly-policy  Built-in policy name: standard | wide-band
  -anomaly-config  Path to a JSON policy file (overrides -anomaly-policy)
  -category        Employment category admitted to the grid (default: MOD)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	policyName := flag.String("anomaly-policy", "standard", "Built-in anomaly policy name")
	policyConfig := flag.String("anomaly-config", "", "Path to a JSON anomaly policy file")
	category := flag.String("category", reconcile.DefaultCategory, "Employment category admitted to the grid")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Resolve anomaly policy
	policy, err := resolvePolicy(*policyName, *policyConfig)
	if err != nil {
		logger.Error("failed to resolve anomaly policy", "error", err)
		os.Exit(1)
	}

	// Initialize handler
	handler := api.NewHandler(store, policy, metrics.New(), logger)
	handler.Category = *category

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", fmt.Sprintf("http://localhost:%d", *port),
			"anomaly_policy", policy.Name(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func resolvePolicy(name, configPath string) (reconcile.AnomalyPolicy, error) {
	f := factory.NewAnomalyFactory()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read anomaly config: %w", err)
		}
		return f.Parse(string(data))
	}
	return f.Named(name)
}
