package cashflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("empty sets keep the initial balance", func(t *testing.T) {
		initial := decimal.RequireFromString("195584.85")
		got := Summarize(NewRecordSet(CategoryPayable), NewRecordSet(CategoryReceivable), initial)

		assert.True(t, got.TotalPayable.IsZero())
		assert.True(t, got.TotalReceivable.IsZero())
		assert.True(t, got.FinalBalance.Equal(initial))
	})

	t.Run("final balance is initial plus receivable minus payable", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable,
			rec(t, "26947", "525", "2024-10-08"),
			rec(t, "26967", "973.9", "2024-10-16"),
		)
		receivable := NewRecordSet(CategoryReceivable,
			rec(t, "13246", "1089.27", "2024-09-25"),
			rec(t, "13252", "237.3", "2024-09-30"),
		)

		got := Summarize(payable, receivable, decimal.NewFromInt(1000))

		assert.Equal(t, "1498.9", got.TotalPayable.String())
		assert.Equal(t, "1326.57", got.TotalReceivable.String())
		assert.Equal(t, "1000", got.InitialBalance.String())
		assert.Equal(t, "827.67", got.FinalBalance.String())
	})

	t.Run("undated records still count towards totals", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable, rec(t, "1", "10", ""))
		got := Summarize(payable, NewRecordSet(CategoryReceivable), decimal.Zero)
		assert.Equal(t, "-10", got.FinalBalance.String())
	})

	t.Run("is idempotent and leaves the sets untouched", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable, rec(t, "26947", "525", "2024-10-08"))
		receivable := NewRecordSet(CategoryReceivable, rec(t, "13246", "1089.27", ""))
		initial := decimal.RequireFromString("195584.85")

		first := Summarize(payable, receivable, initial)
		second := Summarize(payable, receivable, initial)

		assert.Equal(t, first, second)
		assert.Equal(t, "196149.12", second.FinalBalance.String())
		require.Len(t, payable.Records, 1)
		assert.Equal(t, "525", payable.Records[0].Amount.String())
	})
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, date(t, "2024-10-07"), WeekStart(date(t, "2024-10-08")))
	assert.Equal(t, date(t, "2024-09-23"), WeekStart(date(t, "2024-09-25")))
	assert.Equal(t, date(t, "2024-09-23"), WeekStart(date(t, "2024-09-23")))
	assert.Equal(t, date(t, "2024-09-23"), WeekStart(date(t, "2024-09-29")))
}

func TestBucketWeekly(t *testing.T) {
	r := mustRange(t, "2024-09-01", "2024-10-31")

	t.Run("one record per category lands in distinct weeks", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable, rec(t, "26947", "525", "2024-10-08"))
		receivable := NewRecordSet(CategoryReceivable, rec(t, "13246", "1089.27", "2024-09-25"))

		got := BucketWeekly(payable, receivable, r)

		require.Len(t, got, 2)
		assert.Equal(t, date(t, "2024-09-23"), got[0].WeekStart)
		assert.Equal(t, CategoryReceivable, got[0].Category)
		assert.Equal(t, "1089.27", got[0].Amount.String())
		assert.Equal(t, date(t, "2024-10-07"), got[1].WeekStart)
		assert.Equal(t, CategoryPayable, got[1].Category)
		assert.Equal(t, "525", got[1].Amount.String())
	})

	t.Run("sums within a week and orders payable first", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable,
			rec(t, "1", "100", "2024-09-24"),
			rec(t, "2", "50.5", "2024-09-29"),
		)
		receivable := NewRecordSet(CategoryReceivable, rec(t, "3", "10", "2024-09-23"))

		got := BucketWeekly(payable, receivable, r)

		require.Len(t, got, 2)
		assert.Equal(t, CategoryPayable, got[0].Category)
		assert.Equal(t, "150.5", got[0].Amount.String())
		assert.Equal(t, CategoryReceivable, got[1].Category)
		assert.Equal(t, got[0].WeekStart, got[1].WeekStart)
	})

	t.Run("excludes out of range and undated records", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable,
			rec(t, "1", "100", "2024-08-31"),
			rec(t, "2", "50", ""),
			rec(t, "3", "10", "2024-11-01"),
		)

		got := BucketWeekly(payable, NewRecordSet(CategoryReceivable), r)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("is idempotent", func(t *testing.T) {
		payable := NewRecordSet(CategoryPayable, rec(t, "1", "525", "2024-10-08"), rec(t, "2", "1", "2024-09-02"))
		receivable := NewRecordSet(CategoryReceivable, rec(t, "3", "1089.27", "2024-09-25"))

		assert.Equal(t, BucketWeekly(payable, receivable, r), BucketWeekly(payable, receivable, r))
	})
}

func TestCumulativeSeries(t *testing.T) {
	payable := NewRecordSet(CategoryPayable,
		rec(t, "26967", "973.9", "2024-10-16"),
		rec(t, "26947", "525", "2024-10-08"),
		rec(t, "undated", "99", ""),
	)
	receivable := NewRecordSet(CategoryReceivable,
		rec(t, "13246", "1089.27", "2024-09-25"),
		rec(t, "13252", "237.3", "2024-10-08"),
	)

	got := CumulativeSeries(payable, receivable)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"13246", "26947", "13252", "26967"}, docs(got))

	assert.Equal(t, "1089.27", got[0].SignedAmount.String())
	assert.Equal(t, "-525", got[1].SignedAmount.String())
	assert.Equal(t, CategoryPayable, got[1].Category, "payable wins the tie on 2024-10-08")

	assert.Equal(t, "1089.27", got[0].RunningTotal.String())
	assert.Equal(t, "564.27", got[1].RunningTotal.String())
	assert.Equal(t, "801.57", got[2].RunningTotal.String())
	assert.Equal(t, "-172.33", got[3].RunningTotal.String())

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Date.Before(got[i-1].Date))
	}

	t.Run("last running total equals receivable minus payable of dated records", func(t *testing.T) {
		dated := payable.FilterByIssueDate(mustRange(t, "2000-01-01", "2100-01-01"))
		want := receivable.Total().Sub(dated.Total())
		assert.True(t, got[len(got)-1].RunningTotal.Equal(want))
	})

	t.Run("ties within a category keep input order", func(t *testing.T) {
		p := NewRecordSet(CategoryPayable, rec(t, "b", "1", "2024-10-01"), rec(t, "a", "2", "2024-10-01"))
		assert.Equal(t, []string{"b", "a"}, docs(CumulativeSeries(p, NewRecordSet(CategoryReceivable))))
	})

	t.Run("empty inputs give an empty series", func(t *testing.T) {
		series := CumulativeSeries(NewRecordSet(CategoryPayable), NewRecordSet(CategoryReceivable))
		assert.NotNil(t, series)
		assert.Empty(t, series)
	})

	t.Run("signs follow argument position", func(t *testing.T) {
		mislabeled := RecordSet{Category: CategoryReceivable, Records: []FinancialRecord{rec(t, "x", "5", "2024-10-01")}}
		series := CumulativeSeries(mislabeled, NewRecordSet(CategoryReceivable))
		require.Len(t, series, 1)
		assert.Equal(t, "-5", series[0].SignedAmount.String())
	})

	t.Run("is idempotent", func(t *testing.T) {
		assert.Equal(t, got, CumulativeSeries(payable, receivable))
	})
}

func docs(points []CumulativePoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.DocumentNumber
	}
	return out
}
