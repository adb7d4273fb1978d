package cashflow

import "context"

// RecordLoader produces the payable and receivable sets whose issue date
// falls within a range. Implementations return *LoadError on source failure.
type RecordLoader interface {
	LoadRecords(ctx context.Context, r DateRange) (payable RecordSet, receivable RecordSet, err error)
	// Name identifies the source in logs and errors.
	Name() string
}

// FilterByIssueDate keeps the records whose issue date lies within r.
// Undated records are dropped.
func (s RecordSet) FilterByIssueDate(r DateRange) RecordSet {
	out := make([]FinancialRecord, 0, len(s.Records))
	for _, rec := range s.Records {
		if rec.IssueDate != nil && r.Contains(*rec.IssueDate) {
			out = append(out, rec)
		}
	}
	return RecordSet{Category: s.Category, Records: out}
}
