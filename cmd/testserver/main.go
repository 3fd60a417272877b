// testserver starts an errand API server with scripted engines for E2E testing.
// Both actions run as in-process background jobs; search results are kept in
// an in-memory SQLite store.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seantiz/errand/internal/api"
	"github.com/seantiz/errand/internal/automation"
	"github.com/seantiz/errand/internal/config"
	"github.com/seantiz/errand/internal/dispatch"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/store"
	"github.com/seantiz/errand/internal/strategy"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("ERRAND_LISTEN_ADDR"); v != "" {
		addr = v
	}
	logger := config.NewLogger(os.Stdout, config.ParseLogLevel(os.Getenv("ERRAND_LOG_LEVEL")))

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	results := store.NewResultStore(db, logger, store.WithMirror(store.NewMirror()))
	defer results.Close()

	search := strategy.NewBackground(&automation.Scripted{
		Steps:     []string{"open ubereats", "set address", "search menu"},
		StepDelay: 500 * time.Millisecond,
		Result:    "1. Test Pizzeria - Margherita - 99 SEK - https://www.ubereats.com/store/test-pizzeria/margherita",
	}, 10, logger, strategy.WithResultStore(results))
	order := strategy.NewBackground(&automation.Scripted{
		Steps:     []string{"open item", "add to cart", "checkout"},
		StepDelay: 500 * time.Millisecond,
		Result:    "order placed",
	}, 10, logger)

	reg := strategy.NewRegistry()
	reg.Register(model.ActionFindMenuOptions, search)
	reg.Register(model.ActionOrderFood, order)

	d := dispatch.New(results, reg, time.Minute, logger)
	srv := api.NewServer(addr, d, progress.NewBroker(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	search.Wait()
	order.Wait()
}
