package cashflow

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateSummary holds the headline metrics of the dashboard.
type AggregateSummary struct {
	TotalPayable    decimal.Decimal `json:"total_payable"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	InitialBalance  decimal.Decimal `json:"initial_balance"`
	FinalBalance    decimal.Decimal `json:"final_balance"` // InitialBalance + TotalReceivable - TotalPayable
}

// WeeklyBucket is the sum of one category within one Monday-starting week.
type WeeklyBucket struct {
	WeekStart time.Time       `json:"week_start"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
}

// CumulativePoint is one step of the running balance curve.
type CumulativePoint struct {
	Date           time.Time       `json:"date"`
	Category       Category        `json:"category"`
	DocumentNumber string          `json:"document_number"`
	SignedAmount   decimal.Decimal `json:"signed_amount"` // +receivable, -payable
	RunningTotal   decimal.Decimal `json:"running_total"`
}

// Summarize totals both sets over all their records and derives the final balance.
func Summarize(payable, receivable RecordSet, initialBalance decimal.Decimal) AggregateSummary {
	totalPayable := payable.Total()
	totalReceivable := receivable.Total()
	return AggregateSummary{
		TotalPayable:    totalPayable,
		TotalReceivable: totalReceivable,
		InitialBalance:  initialBalance,
		FinalBalance:    initialBalance.Add(totalReceivable).Sub(totalPayable),
	}
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := TruncateDate(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

type bucketKey struct {
	week     time.Time
	category Category
}

// BucketWeekly sums amounts per (week, category) for dated records inside r.
// Buckets are ordered by week start, payable before receivable within a week.
func BucketWeekly(payable, receivable RecordSet, r DateRange) []WeeklyBucket {
	sums := make(map[bucketKey]decimal.Decimal)
	for _, set := range tagged(payable, receivable) {
		for _, rec := range set.Records {
			if rec.IssueDate == nil || !r.Contains(*rec.IssueDate) {
				continue
			}
			key := bucketKey{week: WeekStart(*rec.IssueDate), category: set.Category}
			sums[key] = sums[key].Add(rec.Amount)
		}
	}

	buckets := make([]WeeklyBucket, 0, len(sums))
	for key, amount := range sums {
		buckets = append(buckets, WeeklyBucket{WeekStart: key.week, Category: key.category, Amount: amount})
	}
	slices.SortFunc(buckets, func(a, b WeeklyBucket) int {
		if c := a.WeekStart.Compare(b.WeekStart); c != 0 {
			return c
		}
		return cmp.Compare(a.Category.rank(), b.Category.rank())
	})
	return buckets
}

// CumulativeSeries merges both sets by issue date and folds a running total of
// signed amounts. Ties keep payables first, then input order. Undated records
// are left out.
func CumulativeSeries(payable, receivable RecordSet) []CumulativePoint {
	points := make([]CumulativePoint, 0, payable.Len()+receivable.Len())
	for _, set := range tagged(payable, receivable) {
		sign := set.Category.sign()
		for _, rec := range set.Records {
			if rec.IssueDate == nil {
				continue
			}
			points = append(points, CumulativePoint{
				Date:           *rec.IssueDate,
				Category:       set.Category,
				DocumentNumber: rec.DocumentNumber,
				SignedAmount:   rec.Amount.Mul(sign),
			})
		}
	}

	slices.SortStableFunc(points, func(a, b CumulativePoint) int {
		return a.Date.Compare(b.Date)
	})

	running := decimal.Zero
	for i := range points {
		running = running.Add(points[i].SignedAmount)
		points[i].RunningTotal = running
	}
	return points
}

// tagged returns both sets in canonical order with categories taken from
// their argument position, so a mislabeled set cannot flip a sign.
func tagged(payable, receivable RecordSet) []RecordSet {
	payable.Category = CategoryPayable
	receivable.Category = CategoryReceivable
	return []RecordSet{payable, receivable}
}
