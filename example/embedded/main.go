// Example: Using oraquery as an Embedded Library
//
// This example runs statements through an Adapter on an in-memory DuckDB,
// binds a list, pivots the result and exports it to rotating flat files.
// No HTTP server is involved.
//
// Run this example:
//
//	go run ./example/embedded
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/export"
	"github.com/nnnkkk7/oraquery/pkg/output"
	"github.com/nnnkkk7/oraquery/pkg/query"
	"github.com/nnnkkk7/oraquery/pkg/result"
)

func main() {
	fmt.Println("=== oraquery Embedded Example ===")
	ctx := context.Background()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer db.Close()

	cfg := config.New()
	cfg.Driver = "duckdb"
	cfg.DefaultSchema = "MAIN"
	cfg.DefaultDatabase = "MEMORY"

	a, err := query.NewAdapter(cfg, "", "", connection.WithDB(db))
	if err != nil {
		log.Fatalf("Failed to create adapter: %v", err)
	}
	defer a.Close()

	// Setup
	fmt.Println("\n--- Setup ---")
	for _, stmt := range []string{
		"CREATE TABLE sales (region VARCHAR, soort VARCHAR, amount DOUBLE)",
		`INSERT INTO sales VALUES
			('North', 'A', 10), ('North', 'B', 5), ('South', 'A', 2.5),
			('South', NULL, 4), ('West', 'B', 7)`,
	} {
		if err := a.Prepare(ctx, stmt); err != nil {
			log.Fatalf("Prepare failed: %v", err)
		}
		if err := a.Execute(ctx, query.Commit); err != nil {
			log.Fatalf("Execute failed: %v", err)
		}
	}
	fmt.Println("Created table sales")

	// List binds expand to one marker per element.
	fmt.Println("\n--- Query with a list bind ---")
	if err := a.Prepare(ctx, "select region, soort, amount from sales where region in (:regions)"); err != nil {
		log.Fatalf("Prepare failed: %v", err)
	}
	if err := a.Bind(ctx, map[string]any{"regions": []string{"North", "South"}}); err != nil {
		log.Fatalf("Bind failed: %v", err)
	}
	fmt.Println(a.Statement())
	res, err := a.FetchAll(ctx, result.Assoc)
	if err != nil {
		log.Fatalf("FetchAll failed: %v", err)
	}
	fmt.Printf("Fetched %d rows\n", res.Len())

	fmt.Println("\n--- Pivot ---")
	pivoted, err := output.Pivot(res, "SOORT", []string{"REGION"}, "AMOUNT")
	if err != nil {
		log.Fatalf("Pivot failed: %v", err)
	}
	for _, row := range pivoted.Rows() {
		fmt.Println(row.Map())
	}

	fmt.Println("\n--- Export ---")
	dir, err := os.MkdirTemp("", "oraquery-example")
	if err != nil {
		log.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	if err := a.Prepare(ctx, "select * from sales order by region"); err != nil {
		log.Fatalf("Prepare failed: %v", err)
	}
	f, err := a.Fetcher(ctx)
	if err != nil {
		log.Fatalf("Fetcher failed: %v", err)
	}
	s, err := export.NewStreamer(f, filepath.Join(dir, "sales.csv"), "")
	if err != nil {
		log.Fatalf("NewStreamer failed: %v", err)
	}
	w := export.NewWriter(s)
	w.LinesPerFile = 2
	files, err := w.Write(ctx)
	if err != nil {
		log.Fatalf("Write failed: %v", err)
	}
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			log.Fatalf("ReadFile failed: %v", err)
		}
		fmt.Printf("%s:\n%s", filepath.Base(name), data)
	}

	fmt.Println("\n=== Example Complete ===")
}
