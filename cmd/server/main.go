// Package main provides the entry point for the query server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/query"
	"github.com/nnnkkk7/oraquery/pkg/querylog"
	"github.com/nnnkkk7/oraquery/server/handlers"
)

func main() {
	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	ttl := time.Hour
	if v := os.Getenv("STATEMENT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.WithError(err).Fatal("Invalid STATEMENT_TTL")
		}
		if d <= 0 {
			log.WithField("ttl", v).Fatal("STATEMENT_TTL must be positive")
		}
		ttl = d
	}

	var opts []handlers.Option
	opts = append(opts, handlers.WithLogger(log))

	// DuckDB sessions share one database so that in-memory data survives
	// between requests.
	connOpts := []connection.Option{connection.WithLogger(log)}
	if cfg.Driver == "duckdb" {
		dbPath := os.Getenv("DB_PATH")
		db, err := sql.Open("duckdb", dbPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to open database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("Failed to close database")
			}
		}()
		connOpts = append(connOpts, connection.WithDB(db))
	}
	opts = append(opts, handlers.WithConnectionOptions(connOpts...))

	if cfg.LogTable != "" {
		logConn, err := connection.New(cfg, "", "", connOpts...)
		if err != nil {
			log.WithError(err).Fatal("Failed to create query log connection")
		}
		sink, err := querylog.NewTable(logConn, cfg.LogTable)
		if err != nil {
			log.WithError(err).Fatal("Invalid log_table")
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, handlers.WithStatementOptions(query.WithQueryLogger(sink)))
	}

	stmtMgr := query.NewStatementManager(ttl)
	defer func() { _ = stmtMgr.Close() }()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	handlers.NewHandler(cfg, stmtMgr, opts...).Routes(r)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{"port": port, "driver": cfg.Driver}).Info("Starting query server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("Server failed")
	}
}

// loadConfig reads ORAQUERY_CONFIG, or falls back to an in-memory DuckDB
// setup when it is not set.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("ORAQUERY_CONFIG"); path != "" {
		return config.Load(path)
	}
	cfg := config.New()
	cfg.Driver = "duckdb"
	cfg.DefaultSchema = "MAIN"
	cfg.DefaultDatabase = "MEMORY"
	return cfg, nil
}
