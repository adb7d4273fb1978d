// Package cashflow wires the record loader to the aggregation functions and
// shapes the results for the HTTP layer.
package cashflow

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/cashflow/backend/internal/domain/shared/valueobject"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DashboardService computes dashboard views over a record source
type DashboardService struct {
	loader       domain.RecordLoader
	defaultRange domain.DateRange
	metrics      *telemetry.CashflowMetrics
	logger       *zap.Logger
}

// NewDashboardService creates a new dashboard service.
// metrics may be nil.
func NewDashboardService(
	loader domain.RecordLoader,
	defaultRange domain.DateRange,
	metrics *telemetry.CashflowMetrics,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		loader:       loader,
		defaultRange: defaultRange,
		metrics:      metrics,
		logger:       logger,
	}
}

// Source names the record source in use
func (s *DashboardService) Source() string {
	return s.loader.Name()
}

// DefaultRange returns the range used when a request names none
func (s *DashboardService) DefaultRange() domain.DateRange {
	return s.defaultRange
}

// Dashboard parses the balance and range, loads the records and computes every view.
// An unparseable balance stops the computation before anything is loaded.
func (s *DashboardService) Dashboard(ctx context.Context, input DashboardInput) (report *DashboardReport, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "cashflow", "dashboard",
		telemetry.WithAttribute(telemetry.SpanAttrSource, s.Source()))
	defer func() {
		s.metrics.RecordComputation(ctx, s.Source(), outcomeOf(err), time.Since(started))
		telemetry.RecordError(span, err)
		span.End()
	}()

	balance, err := valueobject.ParseCurrency(input.InitialBalance)
	if err != nil {
		logger.Ctx(ctx, s.logger).Debug("Rejected initial balance", zap.String("input", input.InitialBalance), zap.Error(err))
		return nil, err
	}

	r, payable, receivable, err := s.load(ctx, input.RangeInput)
	if err != nil {
		return nil, err
	}

	summary := domain.Summarize(payable, receivable, balance)
	report = &DashboardReport{
		Range:      toRangeDTO(r),
		Source:     s.Source(),
		Summary:    toSummaryDTO(summary),
		Weekly:     toWeeklyDTOs(domain.BucketWeekly(payable, receivable, r)),
		Cumulative: toCumulativeDTOs(domain.CumulativeSeries(payable, receivable)),
		Daily:      toDailyDTOs(domain.DailySeries(payable, receivable, r)),
		Categories: toCategoryShareDTOs(domain.SplitByCategory(payable, receivable)),
		Distribution: []DistributionDTO{
			toDistributionDTO(domain.Distribute(payable)),
			toDistributionDTO(domain.Distribute(receivable)),
		},
		Records: RecordListing{
			Range:      toRangeDTO(r),
			Source:     s.Source(),
			Payable:    toRecordRows(payable),
			Receivable: toRecordRows(receivable),
		},
	}

	logger.Ctx(ctx, s.logger).Info("Dashboard computed",
		zap.String("source", s.Source()),
		zap.String("start_date", report.Range.StartDate),
		zap.String("end_date", report.Range.EndDate),
		zap.Int("payables", payable.Len()),
		zap.Int("receivables", receivable.Len()),
		zap.String("final_balance", summary.FinalBalance.StringFixed(2)),
	)
	return report, nil
}

// Records returns both listings for a range. No balance is needed.
func (s *DashboardService) Records(ctx context.Context, input RangeInput) (*RecordListing, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashflow", "records")
	defer span.End()

	r, payable, receivable, err := s.load(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &RecordListing{
		Range:      toRangeDTO(r),
		Source:     s.Source(),
		Payable:    toRecordRows(payable),
		Receivable: toRecordRows(receivable),
	}, nil
}

// Weekly returns only the weekly buckets for a range
func (s *DashboardService) Weekly(ctx context.Context, input RangeInput) ([]WeeklyBucketDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashflow", "weekly")
	defer span.End()

	r, payable, receivable, err := s.load(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toWeeklyDTOs(domain.BucketWeekly(payable, receivable, r)), nil
}

func (s *DashboardService) load(ctx context.Context, input RangeInput) (domain.DateRange, domain.RecordSet, domain.RecordSet, error) {
	r, err := s.resolveRange(input)
	if err != nil {
		return domain.DateRange{}, domain.RecordSet{}, domain.RecordSet{}, err
	}

	telemetry.SetAttributes(telemetry.SpanFromContext(ctx),
		telemetry.SpanAttrStartDate, r.Start.Format(time.DateOnly),
		telemetry.SpanAttrEndDate, r.End.Format(time.DateOnly),
	)

	payable, receivable, err := s.loader.LoadRecords(ctx, r)
	if err != nil {
		logger.Ctx(ctx, s.logger).Error("Failed to load records", zap.String("source", s.Source()), zap.Error(err))
		var loadErr *domain.LoadError
		if !errors.As(err, &loadErr) {
			err = domain.NewLoadError(s.Source(), err)
		}
		return domain.DateRange{}, domain.RecordSet{}, domain.RecordSet{}, err
	}

	s.metrics.RecordLoaded(ctx, s.Source(), string(domain.CategoryPayable), payable.Len())
	s.metrics.RecordLoaded(ctx, s.Source(), string(domain.CategoryReceivable), receivable.Len())
	telemetry.SetAttributes(telemetry.SpanFromContext(ctx),
		telemetry.SpanAttrPayables, payable.Len(),
		telemetry.SpanAttrReceivables, receivable.Len(),
	)
	return r, payable, receivable, nil
}

// resolveRange fills missing bounds from the default range.
func (s *DashboardService) resolveRange(input RangeInput) (domain.DateRange, error) {
	start := strings.TrimSpace(input.StartDate)
	end := strings.TrimSpace(input.EndDate)
	if start == "" {
		start = s.defaultRange.Start.Format(time.DateOnly)
	}
	if end == "" {
		end = s.defaultRange.End.Format(time.DateOnly)
	}
	return domain.ParseDateRange(start, end)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, shared.ErrSourceUnavailable):
		return telemetry.OutcomeSourceFailure
	default:
		return telemetry.OutcomeInvalidInput
	}
}
