package cashflow

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DailyPoint is the sum of one category on one issue date.
type DailyPoint struct {
	Date     time.Time       `json:"date"`
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// DistributionSlice is a counterparty's share of its category total.
type DistributionSlice struct {
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	Share        decimal.Decimal `json:"share"` // percent of the category total, 2 places
}

// Distribution is the per-counterparty breakdown of one category.
type Distribution struct {
	Category Category            `json:"category"`
	Total    decimal.Decimal     `json:"total"`
	Slices   []DistributionSlice `json:"slices"`
}

// CategoryShare is one category's part of everything loaded.
type CategoryShare struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Share    decimal.Decimal `json:"share"` // percent of both totals, 2 places
}

const unknownCounterparty = "(sem nome)"

// DailySeries sums dated in-range records per issue date and category.
func DailySeries(payable, receivable RecordSet, r DateRange) []DailyPoint {
	type key struct {
		day      time.Time
		category Category
	}
	sums := make(map[key]decimal.Decimal)
	for _, set := range tagged(payable, receivable) {
		for _, rec := range set.Records {
			if rec.IssueDate == nil || !r.Contains(*rec.IssueDate) {
				continue
			}
			k := key{day: *rec.IssueDate, category: set.Category}
			sums[k] = sums[k].Add(rec.Amount)
		}
	}

	points := make([]DailyPoint, 0, len(sums))
	for k, amount := range sums {
		points = append(points, DailyPoint{Date: k.day, Category: k.category, Amount: amount})
	}
	slices.SortFunc(points, func(a, b DailyPoint) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Category.rank(), b.Category.rank())
	})
	return points
}

// Distribute groups a set by counterparty, largest amount first.
func Distribute(set RecordSet) Distribution {
	sums := make(map[string]decimal.Decimal)
	for _, rec := range set.Records {
		name := strings.TrimSpace(rec.Counterparty)
		if name == "" {
			name = unknownCounterparty
		}
		sums[name] = sums[name].Add(rec.Amount)
	}

	total := set.Total()
	hundred := decimal.NewFromInt(100)
	out := make([]DistributionSlice, 0, len(sums))
	for name, amount := range sums {
		share := decimal.Zero
		if !total.IsZero() {
			share = amount.Div(total).Mul(hundred).Round(2)
		}
		out = append(out, DistributionSlice{Counterparty: name, Amount: amount, Share: share})
	}
	slices.SortFunc(out, func(a, b DistributionSlice) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Counterparty, b.Counterparty)
	})
	return Distribution{Category: set.Category, Total: total, Slices: out}
}

// SplitByCategory returns the payable and receivable totals as shares of
// their sum, payable first. Undated records count, as in Summarize.
func SplitByCategory(payable, receivable RecordSet) []CategoryShare {
	out := []CategoryShare{
		{Category: CategoryPayable, Amount: payable.Total()},
		{Category: CategoryReceivable, Amount: receivable.Total()},
	}
	total := out[0].Amount.Add(out[1].Amount)
	if total.IsZero() {
		return out
	}
	hundred := decimal.NewFromInt(100)
	for i := range out {
		out[i].Share = out[i].Amount.Div(total).Mul(hundred).Round(2)
	}
	return out
}
