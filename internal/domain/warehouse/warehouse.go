// Package warehouse describes a full load of the cash-flow star schema:
// dimension members plus the payable and receivable fact rows that
// reference them.
package warehouse

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Member is one dimension entry, keyed by the ERP code
type Member struct {
	ID   string
	Name string
}

// Dimension collects unique members by ID. A later non-empty name replaces an
// empty one, so a code seen first without a description still gets one.
type Dimension struct {
	members map[string]string
}

// Add records a member. Empty ids are ignored.
func (d *Dimension) Add(id, name string) {
	if id == "" {
		return
	}
	if d.members == nil {
		d.members = make(map[string]string)
	}
	if current, ok := d.members[id]; ok && (current != "" || name == "") {
		return
	}
	d.members[id] = name
}

// Len returns the number of unique members
func (d *Dimension) Len() int {
	return len(d.members)
}

// Members returns the members sorted by id
func (d *Dimension) Members() []Member {
	out := make([]Member, 0, len(d.members))
	for id, name := range d.members {
		out = append(out, Member{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Title holds the columns shared by payable and receivable facts
type Title struct {
	DocumentNumber string
	Installment    *string
	Type           string
	NatureID       *string
	Amount         decimal.Decimal
	IssueDate      *time.Time
	DueDate        *time.Time
	ActualDueDate  *time.Time
}

// Payable is a fato_apagar row
type Payable struct {
	Title
	SupplierID *string
}

// Receivable is a fato_areceber row
type Receivable struct {
	Title
	CustomerID *string
	StoreID    *string
}

// Batch is everything a load replaces
type Batch struct {
	Suppliers   Dimension
	Customers   Dimension
	Stores      Dimension
	Natures     Dimension
	Payables    []Payable
	Receivables []Receivable
}

// LoadStats reports what a load wrote
type LoadStats struct {
	Suppliers   int           `json:"suppliers"`
	Customers   int           `json:"customers"`
	Stores      int           `json:"stores"`
	Natures     int           `json:"natures"`
	Payables    int           `json:"payables"`
	Receivables int           `json:"receivables"`
	Duration    time.Duration `json:"duration"`
}

// Writer persists a batch, replacing previously loaded facts atomically
type Writer interface {
	Replace(ctx context.Context, batch *Batch) (LoadStats, error)
}
