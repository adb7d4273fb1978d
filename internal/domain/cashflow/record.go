// Package cashflow holds the payable/receivable read model and the pure
// aggregation functions the dashboard is built from.
package cashflow

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category tags a record set as money going out or coming in.
type Category string

const (
	CategoryPayable    Category = "payable"
	CategoryReceivable Category = "receivable"
)

// Categories lists categories in their canonical output order.
var Categories = []Category{CategoryPayable, CategoryReceivable}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	return c == CategoryPayable || c == CategoryReceivable
}

// rank gives the tie-break order used by every aggregation.
func (c Category) rank() int {
	if c == CategoryPayable {
		return 0
	}
	return 1
}

// sign is -1 for payables and +1 for receivables.
func (c Category) sign() decimal.Decimal {
	if c == CategoryPayable {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// FinancialRecord is one payable or receivable title as read from the source.
// Date fields are nil when the source value was missing or unparseable; the
// raw text is kept so listings can still show what the source held.
type FinancialRecord struct {
	DocumentNumber   string          `json:"document_number"`
	Installment      string          `json:"installment"`
	Type             string          `json:"type"`
	Nature           string          `json:"nature,omitempty"`
	CounterpartyCode string          `json:"counterparty_code,omitempty"`
	Store            string          `json:"store,omitempty"`
	Counterparty     string          `json:"counterparty"`
	Amount           decimal.Decimal `json:"amount"`
	IssueDate        *time.Time      `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date"`
	ActualDueDate    *time.Time      `json:"actual_due_date"`
	IssueDateRaw     string          `json:"issue_date_raw,omitempty"`
	DueDateRaw       string          `json:"due_date_raw,omitempty"`
	ActualDueDateRaw string          `json:"actual_due_date_raw,omitempty"`
}

// HasIssueDate reports whether the record can take part in chronological views.
func (r FinancialRecord) HasIssueDate() bool {
	return r.IssueDate != nil
}

// RecordSet is an ordered sequence of records of a single category.
type RecordSet struct {
	Category Category          `json:"category"`
	Records  []FinancialRecord `json:"records"`
}

// NewRecordSet creates a record set, never holding a nil slice.
func NewRecordSet(category Category, records ...FinancialRecord) RecordSet {
	if records == nil {
		records = []FinancialRecord{}
	}
	return RecordSet{Category: category, Records: records}
}

// Len returns the number of records
func (s RecordSet) Len() int {
	return len(s.Records)
}

// Total sums all amounts in the set.
func (s RecordSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Records {
		total = total.Add(r.Amount)
	}
	return total
}

// DateRange is an inclusive calendar date interval
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both bounds to dates and rejects start after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := TruncateDate(start), TruncateDate(end)
	if s.After(e) {
		return DateRange{}, &RangeError{Start: s, End: e}
	}
	return DateRange{Start: s, End: e}, nil
}

// ParseDateRange builds a range from two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(time.DateOnly, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, &RangeError{Reason: "invalid start date " + start}
	}
	e, err := time.Parse(time.DateOnly, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, &RangeError{Reason: "invalid end date " + end}
	}
	return NewDateRange(s, e)
}

// Contains reports whether the date part of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := TruncateDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// EndExclusive returns the first instant after the range, for half-open queries.
func (r DateRange) EndExclusive() time.Time {
	return r.End.AddDate(0, 0, 1)
}

// TruncateDate drops the clock and location, keeping the calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999-07",
}

// ParseDate normalizes the date formats found in the sources (ISO from
// postgres, dd/mm/yyyy from the ERP exports) to a date at midnight UTC.
// It returns nil for empty or unrecognized text.
func ParseDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			d := TruncateDate(t)
			return &d
		}
	}
	return nil
}
