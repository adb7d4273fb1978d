package cashflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	domain "github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/cashflow/backend/internal/infrastructure/fixture"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockRecordLoader is a mock implementation of domain.RecordLoader
type MockRecordLoader struct {
	mock.Mock
}

func (m *MockRecordLoader) LoadRecords(ctx context.Context, r domain.DateRange) (domain.RecordSet, domain.RecordSet, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(domain.RecordSet), args.Get(1).(domain.RecordSet), args.Error(2)
}

func (m *MockRecordLoader) Name() string {
	return "mock"
}

func defaultRange(t *testing.T) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange("2024-09-01", "2024-10-31")
	require.NoError(t, err)
	return r
}

func newFixtureService(t *testing.T) *DashboardService {
	return NewDashboardService(fixture.NewLoader(), defaultRange(t), nil, zap.NewNop())
}

func TestDashboardService_Dashboard(t *testing.T) {
	svc := newFixtureService(t)

	report, err := svc.Dashboard(context.Background(), DashboardInput{InitialBalance: "R$ 195.584,85"})
	require.NoError(t, err)

	assert.Equal(t, RangeDTO{StartDate: "2024-09-01", EndDate: "2024-10-31"}, report.Range)
	assert.Equal(t, "fixture", report.Source)

	t.Run("summary", func(t *testing.T) {
		s := report.Summary
		assert.Equal(t, "R$ 1.498,90", s.TotalPayable.String())
		assert.Equal(t, "R$ 1.326,57", s.TotalReceivable.String())
		assert.Equal(t, "R$ 195.584,85", s.InitialBalance.String())
		assert.True(t, decimal.RequireFromString("195412.52").Equal(s.FinalBalance.Amount()))
	})

	t.Run("weekly buckets start on monday", func(t *testing.T) {
		require.Len(t, report.Weekly, 4)
		got := make([]string, len(report.Weekly))
		for i, b := range report.Weekly {
			got[i] = b.WeekStart + " " + string(b.Category) + " " + b.Amount.Amount().StringFixed(2)
		}
		assert.Equal(t, []string{
			"2024-09-23 receivable 1089.27",
			"2024-09-30 receivable 237.30",
			"2024-10-07 payable 525.00",
			"2024-10-14 payable 973.90",
		}, got)
	})

	t.Run("cumulative curve", func(t *testing.T) {
		require.Len(t, report.Cumulative, 4)
		var running []string
		for _, p := range report.Cumulative {
			running = append(running, p.RunningTotal.Amount().StringFixed(2))
		}
		assert.Equal(t, []string{"1089.27", "1326.57", "801.57", "-172.33"}, running)
		assert.Equal(t, "-R$ 525,00", report.Cumulative[2].SignedAmount.String())
	})

	t.Run("daily and distribution", func(t *testing.T) {
		assert.Len(t, report.Daily, 4)
		require.Len(t, report.Distribution, 2)
		assert.Equal(t, domain.CategoryPayable, report.Distribution[0].Category)
		require.Len(t, report.Distribution[0].Slices, 1)
		assert.Equal(t, "MARC ETIQUETAS", report.Distribution[0].Slices[0].Counterparty)
		assert.True(t, decimal.NewFromInt(100).Equal(report.Distribution[0].Slices[0].Share))
		assert.Equal(t, "SINGULAR PHARMA FEIR", report.Distribution[1].Slices[0].Counterparty)
	})

	t.Run("payable versus receivable share", func(t *testing.T) {
		require.Len(t, report.Categories, 2)
		assert.Equal(t, domain.CategoryPayable, report.Categories[0].Category)
		assert.Equal(t, "R$ 1.498,90", report.Categories[0].Amount.String())
		assert.Equal(t, "53.05", report.Categories[0].Share.StringFixed(2))
		assert.Equal(t, "46.95", report.Categories[1].Share.StringFixed(2))
	})

	t.Run("listings use display dates", func(t *testing.T) {
		require.Len(t, report.Records.Payable, 2)
		row := report.Records.Payable[0]
		assert.Equal(t, "26947", row.DocumentNumber)
		assert.Equal(t, "08/10/2024", row.IssueDate)
		assert.Equal(t, "05/11/2024", row.DueDate)
		assert.Equal(t, "R$ 525,00", row.Amount.String())
	})
}

func TestDashboardService_Dashboard_JSON(t *testing.T) {
	svc := newFixtureService(t)
	report, err := svc.Dashboard(context.Background(), DashboardInput{
		InitialBalance: "0",
		RangeInput:     RangeInput{StartDate: "2024-01-01", EndDate: "2024-01-31"},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["weekly"])
	assert.Equal(t, []any{}, decoded["cumulative"])
	records := decoded["records"].(map[string]any)
	assert.Equal(t, []any{}, records["payable"])
}

func TestDashboardService_Dashboard_InvalidBalance(t *testing.T) {
	loader := new(MockRecordLoader)
	svc := NewDashboardService(loader, defaultRange(t), nil, nil)

	for _, input := range []string{"", "abc", "R$", "1,2,3"} {
		_, err := svc.Dashboard(context.Background(), DashboardInput{InitialBalance: input})
		assert.ErrorIs(t, err, shared.ErrInvalidCurrency, "input %q", input)
	}

	// Nothing is loaded when the balance is rejected.
	loader.AssertNotCalled(t, "LoadRecords", mock.Anything, mock.Anything)
}

func TestDashboardService_Dashboard_InvalidRange(t *testing.T) {
	loader := new(MockRecordLoader)
	svc := NewDashboardService(loader, defaultRange(t), nil, nil)

	_, err := svc.Dashboard(context.Background(), DashboardInput{
		InitialBalance: "100",
		RangeInput:     RangeInput{StartDate: "2024-10-31", EndDate: "2024-09-01"},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)

	_, err = svc.Weekly(context.Background(), RangeInput{StartDate: "31/10/2024"})
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)

	loader.AssertNotCalled(t, "LoadRecords", mock.Anything, mock.Anything)
}

func TestDashboardService_SourceFailure(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	loader := new(MockRecordLoader)
	empty := domain.NewRecordSet(domain.CategoryPayable)
	loader.On("LoadRecords", mock.Anything, defaultRange(t)).
		Return(empty, empty, errors.New("dial tcp: connection refused"))
	svc := NewDashboardService(loader, defaultRange(t), nil, zap.New(core))

	_, err := svc.Dashboard(context.Background(), DashboardInput{InitialBalance: "100"})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrSourceUnavailable)
	var loadErr *domain.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "mock", loadErr.Source)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to load records").Len())
	loader.AssertExpectations(t)
}

func TestDashboardService_RangeDefaults(t *testing.T) {
	loader := new(MockRecordLoader)
	empty := domain.NewRecordSet(domain.CategoryPayable)
	want, err := domain.ParseDateRange("2024-10-01", "2024-10-31")
	require.NoError(t, err)
	loader.On("LoadRecords", mock.Anything, want).Return(empty, empty, nil).Once()
	svc := NewDashboardService(loader, defaultRange(t), nil, nil)

	listing, err := svc.Records(context.Background(), RangeInput{StartDate: " 2024-10-01 "})

	require.NoError(t, err)
	assert.Equal(t, RangeDTO{StartDate: "2024-10-01", EndDate: "2024-10-31"}, listing.Range)
	assert.NotNil(t, listing.Payable)
	loader.AssertExpectations(t)
}

func TestDashboardService_Weekly(t *testing.T) {
	svc := newFixtureService(t)

	buckets, err := svc.Weekly(context.Background(), RangeInput{StartDate: "2024-10-01", EndDate: "2024-10-31"})

	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-10-07", buckets[0].WeekStart)
	assert.Equal(t, domain.CategoryPayable, buckets[0].Category)
}

func TestShowDate(t *testing.T) {
	assert.Equal(t, "bad", showDate(nil, "bad"))
	assert.Equal(t, "", showDate(nil, ""))
}
