package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"square-customer-sync/internal/config"
	"square-customer-sync/internal/db"
	"square-customer-sync/internal/importer"
	recordrepo "square-customer-sync/internal/repository/record"
)

func main() {
	var (
		filePath   string
		merchantID string
	)
	flag.StringVar(&filePath, "file", "", "Path to an exported customer CSV")
	flag.StringVar(&merchantID, "merchant", "", "Merchant id to import into")
	flag.Parse()

	if filePath == "" || merchantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, recordrepo.NewPostgres(pool, nil), merchantID)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d customers for merchant %s in %s\n", count, merchantID, time.Since(start).Truncate(time.Millisecond))
}
