package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	applog "github.com/precios-app/pricingservice/internal/log"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo/postgres"
	"github.com/precios-app/pricingservice/internal/shared/config"
	"github.com/precios-app/pricingservice/internal/shared/db"
)

// priceRow is one CSV line: item code, item name, last cost, base price.
type priceRow struct {
	Code      string
	Name      string
	LastCost  decimal.Decimal
	BasePrice decimal.Decimal
}

func main() {
	if len(os.Args) < 7 {
		log.Fatal("Usage: import-price-lists <csv-file> <company-id> <branch-id> <list-name> <start-date> <end-date>")
	}

	csvFilePath := os.Args[1]

	companyID, err := uuid.Parse(os.Args[2])
	if err != nil {
		log.Fatalf("Invalid company ID: %v", err)
	}
	branchID, err := uuid.Parse(os.Args[3])
	if err != nil {
		log.Fatalf("Invalid branch ID: %v", err)
	}
	listName := os.Args[4]

	startDate, err := time.Parse("2006-01-02", os.Args[5])
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	endDate, err := time.Parse("2006-01-02", os.Args[6])
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	if endDate.Before(startDate) {
		log.Fatal("End date must not be before start date")
	}

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := applog.Init(cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	// Initialize database connection
	dbConfig := &db.Config{
		DSN:      cfg.Postgres.DSN,
		MaxConns: cfg.Postgres.MaxConns,
	}
	dbPool, err := db.NewPool(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer dbPool.Close()

	store, err := postgres.NewStoreWithPool(dbPool.Pool)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	rows, err := readPriceRowsFromCSV(csvFilePath)
	if err != nil {
		log.Fatalf("Failed to read price rows from CSV: %v", err)
	}

	fmt.Printf("Loaded %d price rows from CSV\n", len(rows))

	list := domain.PriceList{
		CompanyID: companyID,
		BranchID:  branchID,
		Name:      listName,
		Type:      domain.ListTypeStandard,
		Channel:   domain.ChannelOther,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    domain.ListStatusDraft,
	}

	if err := importPriceRows(ctx, store, list, rows); err != nil {
		log.Fatalf("Failed to import price rows: %v", err)
	}

	fmt.Printf("Successfully imported %d prices into list %q\n", len(rows), listName)
}

func readPriceRowsFromCSV(filePath string) ([]priceRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header row
	_, err = reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []priceRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if len(record) < 4 {
			continue // Skip incomplete records
		}

		code := strings.TrimSpace(record[0])
		if code == "" {
			continue
		}

		lastCost, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			fmt.Printf("Warning: Invalid last cost for %s: %s\n", code, record[2])
			continue
		}
		basePrice, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil {
			fmt.Printf("Warning: Invalid base price for %s: %s\n", code, record[3])
			continue
		}

		rows = append(rows, priceRow{
			Code:      code,
			Name:      strings.TrimSpace(record[1]),
			LastCost:  lastCost,
			BasePrice: basePrice,
		})
	}

	return rows, nil
}

func importPriceRows(ctx context.Context, store *postgres.Store, list domain.PriceList, rows []priceRow) error {
	listID, err := store.EnsurePriceList(ctx, list)
	if err != nil {
		return err
	}

	for i, row := range rows {
		itemID, err := store.UpsertItem(ctx, domain.Item{
			Code:     row.Code,
			Name:     row.Name,
			LastCost: row.LastCost,
		})
		if err != nil {
			return fmt.Errorf("row %d (%s): %w", i+1, row.Code, err)
		}

		if err := store.UpsertItemPrice(ctx, listID, itemID, row.BasePrice); err != nil {
			return fmt.Errorf("row %d (%s): %w", i+1, row.Code, err)
		}

		if (i+1)%500 == 0 {
			fmt.Printf("Imported %d/%d price rows\n", i+1, len(rows))
		}
	}

	return nil
}
