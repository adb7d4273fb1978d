// Package etl loads the ERP title exports into the warehouse.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/cashflow/backend/internal/domain/warehouse"
	"github.com/cashflow/backend/internal/infrastructure/csvimport"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrRowsRejected is returned when any input row failed validation. Nothing is written.
var ErrRowsRejected = errors.New("etl: rows rejected")

// SourceOpener opens an input location, a local path or s3://bucket/key
type SourceOpener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Input names the two exports of one load
type Input struct {
	PayablesPath    string
	ReceivablesPath string
}

// Result reports one load
type Result struct {
	PayableRows    int                  `json:"payable_rows"`
	ReceivableRows int                  `json:"receivable_rows"`
	Loaded         *warehouse.LoadStats `json:"loaded,omitempty"`
	Errors         []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors    int                  `json:"total_errors,omitempty"`
	IsTruncated    bool                 `json:"is_truncated,omitempty"`
}

// Service reads both exports and replaces the warehouse contents with them
type Service struct {
	opener  SourceOpener
	reader  *csvimport.TitleReader
	writer  warehouse.Writer
	metrics *telemetry.CashflowMetrics
	logger  *zap.Logger
}

// NewService creates a new ETL service. metrics may be nil.
func NewService(
	opener SourceOpener,
	reader *csvimport.TitleReader,
	writer warehouse.Writer,
	metrics *telemetry.CashflowMetrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		opener:  opener,
		reader:  reader,
		writer:  writer,
		metrics: metrics,
		logger:  logger,
	}
}

type readFunc func(io.Reader, *warehouse.Batch) (int, error)

// Run parses both exports and writes them in one warehouse transaction.
// On row errors the result lists them and the warehouse is left untouched.
func (s *Service) Run(ctx context.Context, in Input) (result *Result, err error) {
	if strings.TrimSpace(in.PayablesPath) == "" || strings.TrimSpace(in.ReceivablesPath) == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "both payables and receivables inputs are required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "etl", "run",
		telemetry.WithAttribute(telemetry.SpanAttrInput, in.PayablesPath+","+in.ReceivablesPath))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	started := time.Now()
	log := logger.Ctx(ctx, s.logger)
	batch := &warehouse.Batch{}
	result = &Result{}

	if result.PayableRows, err = s.read(ctx, in.PayablesPath, s.reader.ReadPayables, batch, result); err != nil {
		return nil, err
	}
	if result.ReceivableRows, err = s.read(ctx, in.ReceivablesPath, s.reader.ReadReceivables, batch, result); err != nil {
		return nil, err
	}

	if result.TotalErrors > 0 {
		log.Warn("ETL rejected input rows",
			zap.Int("total_errors", result.TotalErrors),
			zap.Int("payable_rows", result.PayableRows),
			zap.Int("receivable_rows", result.ReceivableRows),
		)
		return result, fmt.Errorf("%w: %d invalid rows", ErrRowsRejected, result.TotalErrors)
	}

	stats, err := s.writer.Replace(ctx, batch)
	if err != nil {
		log.Error("Warehouse load failed", zap.Error(err))
		return nil, fmt.Errorf("load warehouse: %w", err)
	}
	result.Loaded = &stats

	s.metrics.RecordETLRows(ctx, "suppliers", stats.Suppliers)
	s.metrics.RecordETLRows(ctx, "customers", stats.Customers)
	s.metrics.RecordETLRows(ctx, "stores", stats.Stores)
	s.metrics.RecordETLRows(ctx, "natures", stats.Natures)
	s.metrics.RecordETLRows(ctx, "payables", stats.Payables)
	s.metrics.RecordETLRows(ctx, "receivables", stats.Receivables)

	log.Info("ETL load completed",
		zap.Int("payables", stats.Payables),
		zap.Int("receivables", stats.Receivables),
		zap.Int("suppliers", stats.Suppliers),
		zap.Int("customers", stats.Customers),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// read parses one export, moving row errors into result.
func (s *Service) read(ctx context.Context, location string, parse readFunc, batch *warehouse.Batch, result *Result) (int, error) {
	rc, err := s.opener.Open(ctx, location)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", location, err)
	}
	defer func() { _ = rc.Close() }()

	n, err := parse(rc, batch)
	var rowErrs *csvimport.RowErrors
	switch {
	case err == nil:
	case errors.As(err, &rowErrs):
		c := rowErrs.Collection
		for _, e := range c.Errors() {
			e.Message = location + ": " + e.Message
			result.Errors = append(result.Errors, e)
		}
		result.TotalErrors += c.TotalCount()
		result.IsTruncated = result.IsTruncated || c.IsTruncated()
	default:
		return 0, fmt.Errorf("parse %s: %w", location, err)
	}

	logger.Ctx(ctx, s.logger).Debug("Parsed export", zap.String("input", location), zap.Int("rows", n))
	return n, nil
}
