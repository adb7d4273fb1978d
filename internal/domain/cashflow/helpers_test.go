package cashflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func rec(t *testing.T, doc, amount, issue string) FinancialRecord {
	t.Helper()
	r := FinancialRecord{
		DocumentNumber: doc,
		Counterparty:   "ACME " + doc,
		Amount:         decimal.RequireFromString(amount),
		IssueDateRaw:   issue,
	}
	if issue != "" {
		d := date(t, issue)
		r.IssueDate = &d
	}
	return r
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("bad test range: %v", err)
	}
	return r
}
