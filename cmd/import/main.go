// Import tool for seeding the storefront database from CSV exports.
//
// Usage:
//
//	go run ./cmd/import -dir ./data
//
// The directory must contain Products.csv, OrderItems.csv and
// ProductCategory.csv. The existing schema is dropped and recreated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/opensource-finance/storefront/internal/bus"
	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/importer"
	"github.com/opensource-finance/storefront/internal/repository"
)

func main() {
	dir := flag.String("dir", ".", "directory holding the CSV files")
	delimiter := flag.String("delimiter", string(importer.DefaultDelimiter), "field delimiter")
	envFile := flag.String("env", "", "dotenv file to load (default .env)")
	publish := flag.Bool("publish", false, "publish the change event on the configured bus")
	flag.Parse()

	if utf8.RuneCountInString(*delimiter) != 1 {
		fmt.Fprintln(os.Stderr, "delimiter must be a single character")
		os.Exit(2)
	}
	sep, _ := utf8.DecodeRuneInString(*delimiter)

	cfg, err := domain.LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(cfg.Repository)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var eventBus domain.EventBus
	if *publish {
		eventBus, err = bus.New(cfg.EventBus)
		if err != nil {
			slog.Error("failed to connect event bus", "error", err)
			os.Exit(1)
		}
		defer eventBus.Close()
	}

	result, err := importer.Import(ctx, store, eventBus, importer.Options{Dir: *dir, Delimiter: sep})
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("           IMPORT RESULTS")
	fmt.Println("========================================")
	fmt.Printf("Database:      %s\n", cfg.Repository.Driver)
	fmt.Printf("Products:      %d\n", result.Products)
	fmt.Printf("Customers:     %d\n", result.Customers)
	fmt.Printf("Orders:        %d\n", result.Orders)
	fmt.Printf("Order items:   %d\n", result.OrderItems)
	fmt.Printf("Categories:    %d\n", result.Categories)
	fmt.Printf("Rows written:  %d\n", result.RowsAffected)
	fmt.Printf("Duration:      %v\n", result.Duration)
	fmt.Println("========================================")
}
