// Command etl loads the payables and receivables CSV exports into the warehouse.
//
// Inputs are local paths or s3://bucket/key locations. The load is all or
// nothing: a single invalid row leaves the warehouse untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/cashflow/backend/internal/application/etl"
	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/csvimport"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/infrastructure/persistence"
	"github.com/cashflow/backend/internal/infrastructure/storage"
	"github.com/cashflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const maxReportedErrors = 100

func main() {
	var (
		payables    string
		receivables string
		encoding    string
		delimiter   string
	)
	flag.StringVar(&payables, "payables", "", "Payables export (path or s3://bucket/key)")
	flag.StringVar(&receivables, "receivables", "", "Receivables export (path or s3://bucket/key)")
	flag.StringVar(&encoding, "encoding", "", "Source encoding: utf-8 or windows-1252 (default from config)")
	flag.StringVar(&delimiter, "delimiter", "", "Field delimiter (default from config)")
	flag.Parse()

	if payables == "" || receivables == "" {
		fmt.Fprintln(os.Stderr, "usage: etl -payables <location> -receivables <location> [-encoding enc] [-delimiter d]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if encoding == "" {
		encoding = cfg.ETL.Encoding
	}
	if delimiter == "" {
		delimiter = cfg.ETL.Delimiter
	}
	if utf8.RuneCountInString(delimiter) != 1 {
		log.Fatal("Delimiter must be a single character", zap.String("delimiter", delimiter))
	}
	sep, _ := utf8.DecodeRuneInString(delimiter)

	os.Exit(run(cfg, log, etl.Input{PayablesPath: payables, ReceivablesPath: receivables},
		csvimport.WithEncoding(encoding), csvimport.WithDelimiter(sep)))
}

// run performs the load and returns the process exit code
func run(cfg *config.Config, log *zap.Logger, in etl.Input, opts ...csvimport.ParserOption) int {
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Error("Failed to create sqlite tables", zap.Error(err))
			return 1
		}
	}

	var s3 *storage.S3Source
	if cfg.ETL.S3.AccessKey != "" {
		if s3, err = storage.NewS3Source(&cfg.ETL.S3, storage.WithLogger(log)); err != nil {
			log.Error("Failed to configure S3", zap.Error(err))
			return 1
		}
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName + "-etl",
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize meter provider", zap.Error(err))
		return 1
	}
	// Shutdown flushes the row counters of this run.
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewCashflowMetrics(meterProvider.Meter("etl"))
	if err != nil {
		log.Error("Failed to create metrics", zap.Error(err))
		return 1
	}

	svc := etl.NewService(
		storage.NewOpener(s3),
		csvimport.NewTitleReader(maxReportedErrors, opts...),
		persistence.NewGormWarehouseWriter(db, cfg.ETL.BatchSize),
		metrics,
		log,
	)

	result, err := svc.Run(ctx, in)
	if err != nil {
		if errors.Is(err, etl.ErrRowsRejected) && result != nil {
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "row %d, %s: %s\n", e.Row, e.Column, e.Message)
			}
			if result.IsTruncated {
				fmt.Fprintf(os.Stderr, "... %d errors in total\n", result.TotalErrors)
			}
		}
		log.Error("ETL failed", zap.Error(err))
		return 1
	}

	fmt.Printf("loaded %d payables and %d receivables (%d suppliers, %d customers, %d stores, %d natures)\n",
		result.Loaded.Payables, result.Loaded.Receivables,
		result.Loaded.Suppliers, result.Loaded.Customers, result.Loaded.Stores, result.Loaded.Natures)
	return 0
}
