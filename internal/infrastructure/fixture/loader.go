// Package fixture serves a small static title table, for demos and for
// running the dashboard without a warehouse.
package fixture

import (
	"context"

	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/shopspring/decimal"
)

type row struct {
	doc, typ, nature, code, store, name, amount, issue, due, actualDue string
}

var payableRows = []row{
	{"26947", "NF", "201006", "120", "", "MARC ETIQUETAS", "525", "08/10/2024", "05/11/2024", "05/11/2024"},
	{"26967", "NF", "201006", "120", "", "MARC ETIQUETAS", "973.9", "16/10/2024", "14/11/2024", "14/11/2024"},
}

var receivableRows = []row{
	{"13246", "NF", "101001", "5057", "1", "SINGULAR PHARMA FEIR", "1089.27", "25/09/2024", "25/10/2024", "25/10/2024"},
	{"13252", "NF", "101001", "6186", "1", "FIOLASER SSA SHOPING", "237.3", "30/09/2024", "28/10/2024", "28/10/2024"},
}

// Loader returns the built-in sample titles whose issue date lies in the range
type Loader struct {
	payable    cashflow.RecordSet
	receivable cashflow.RecordSet
}

// Ensure Loader implements cashflow.RecordLoader
var _ cashflow.RecordLoader = (*Loader)(nil)

// NewLoader creates a loader over the sample table
func NewLoader() *Loader {
	return NewLoaderWith(build(cashflow.CategoryPayable, payableRows), build(cashflow.CategoryReceivable, receivableRows))
}

// NewLoaderWith creates a loader over caller supplied sets
func NewLoaderWith(payable, receivable cashflow.RecordSet) *Loader {
	payable.Category = cashflow.CategoryPayable
	receivable.Category = cashflow.CategoryReceivable
	return &Loader{payable: payable, receivable: receivable}
}

// Name identifies the source
func (l *Loader) Name() string {
	return "fixture"
}

// LoadRecords filters the table by issue date. It only fails when ctx is done.
func (l *Loader) LoadRecords(ctx context.Context, r cashflow.DateRange) (cashflow.RecordSet, cashflow.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return cashflow.RecordSet{}, cashflow.RecordSet{}, cashflow.NewLoadError(l.Name(), err)
	}
	return l.payable.FilterByIssueDate(r), l.receivable.FilterByIssueDate(r), nil
}

func build(category cashflow.Category, rows []row) cashflow.RecordSet {
	records := make([]cashflow.FinancialRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, cashflow.FinancialRecord{
			DocumentNumber:   r.doc,
			Type:             r.typ,
			Nature:           r.nature,
			CounterpartyCode: r.code,
			Store:            r.store,
			Counterparty:     r.name,
			Amount:           decimal.RequireFromString(r.amount),
			IssueDate:        cashflow.ParseDate(r.issue),
			DueDate:          cashflow.ParseDate(r.due),
			ActualDueDate:    cashflow.ParseDate(r.actualDue),
			IssueDateRaw:     r.issue,
			DueDateRaw:       r.due,
			ActualDueDateRaw: r.actualDue,
		})
	}
	return cashflow.NewRecordSet(category, records...)
}
