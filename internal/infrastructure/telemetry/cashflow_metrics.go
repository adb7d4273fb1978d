package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for dashboard computations
const (
	OutcomeOK            = "ok"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeSourceFailure = "source_failure"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("NewCashflowMetrics: meter cannot be nil")

// CashflowMetrics counts dashboard computations and warehouse loads.
type CashflowMetrics struct {
	computations *Counter
	duration     *Histogram
	records      *Counter
	etlRows      *Counter
}

// NewCashflowMetrics registers the cash-flow instruments on meter.
func NewCashflowMetrics(meter metric.Meter) (*CashflowMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   CashflowMetrics
		err error
	)
	m.computations, err = NewCounter(meter, "cashflow_dashboard_computations_total",
		"Dashboard computations by source and outcome", "{computations}")
	if err != nil {
		return nil, err
	}
	m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "cashflow_dashboard_duration_seconds",
		Description: "Time spent loading and aggregating a dashboard",
		Unit:        "s",
		Boundaries:  DurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.records, err = NewCounter(meter, "cashflow_records_loaded_total",
		"Financial records returned by the record source", "{records}")
	if err != nil {
		return nil, err
	}
	m.etlRows, err = NewCounter(meter, "cashflow_etl_rows_total",
		"Rows written to the warehouse by the ETL", "{rows}")
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordComputation records one dashboard computation. A nil receiver is a no-op.
func (m *CashflowMetrics) RecordComputation(ctx context.Context, source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.computations.Inc(ctx, AttrSource.String(source), AttrOutcome.String(outcome))
	m.duration.RecordDuration(ctx, d, AttrSource.String(source))
}

// RecordLoaded records how many records of a category a source returned.
func (m *CashflowMetrics) RecordLoaded(ctx context.Context, source, category string, n int) {
	if m == nil {
		return
	}
	m.records.Add(ctx, int64(n), AttrSource.String(source), AttrCategory.String(category))
}

// RecordETLRows records rows written to a warehouse table.
func (m *CashflowMetrics) RecordETLRows(ctx context.Context, table string, n int) {
	if m == nil {
		return
	}
	m.etlRows.Add(ctx, int64(n), AttrTable.String(table))
}
