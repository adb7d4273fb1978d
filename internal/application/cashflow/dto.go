package cashflow

import (
	"time"

	domain "github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// displayDate is the layout listings use, as in the ERP screens.
const displayDate = "02/01/2006"

// RangeInput names a date range as YYYY-MM-DD strings. Empty fields take the configured default.
type RangeInput struct {
	StartDate string
	EndDate   string
}

// DashboardInput is the full dashboard request
type DashboardInput struct {
	RangeInput
	InitialBalance string // BRL text, e.g. "R$ 195.584,85"
}

// RangeDTO echoes the range a result was computed for
type RangeDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SummaryDTO holds the headline numbers
type SummaryDTO struct {
	TotalPayable    valueobject.Money `json:"total_payable"`
	TotalReceivable valueobject.Money `json:"total_receivable"`
	InitialBalance  valueobject.Money `json:"initial_balance"`
	FinalBalance    valueobject.Money `json:"final_balance"`
}

// WeeklyBucketDTO is one bar of the weekly chart
type WeeklyBucketDTO struct {
	WeekStart string            `json:"week_start"`
	Category  domain.Category   `json:"category"`
	Amount    valueobject.Money `json:"amount"`
}

// CumulativePointDTO is one step of the running balance curve
type CumulativePointDTO struct {
	Date           string            `json:"date"`
	Category       domain.Category   `json:"category"`
	DocumentNumber string            `json:"document_number"`
	SignedAmount   valueobject.Money `json:"signed_amount"`
	RunningTotal   valueobject.Money `json:"running_total"`
}

// DailyPointDTO is one day of the daily chart
type DailyPointDTO struct {
	Date     string            `json:"date"`
	Category domain.Category   `json:"category"`
	Amount   valueobject.Money `json:"amount"`
}

// DistributionSliceDTO is one counterparty's share
type DistributionSliceDTO struct {
	Counterparty string            `json:"counterparty"`
	Amount       valueobject.Money `json:"amount"`
	Share        decimal.Decimal   `json:"share"`
}

// DistributionDTO is the per-counterparty breakdown of one category
type DistributionDTO struct {
	Category domain.Category        `json:"category"`
	Total    valueobject.Money      `json:"total"`
	Slices   []DistributionSliceDTO `json:"slices"`
}

// CategoryShareDTO is one slice of the payable versus receivable chart
type CategoryShareDTO struct {
	Category domain.Category   `json:"category"`
	Amount   valueobject.Money `json:"amount"`
	Share    decimal.Decimal   `json:"share"`
}

// RecordRowDTO is one title as shown in the listings
type RecordRowDTO struct {
	DocumentNumber   string            `json:"document_number"`
	Installment      string            `json:"installment"`
	Type             string            `json:"type"`
	Nature           string            `json:"nature,omitempty"`
	CounterpartyCode string            `json:"counterparty_code,omitempty"`
	Store            string            `json:"store,omitempty"`
	Counterparty     string            `json:"counterparty"`
	Amount           valueobject.Money `json:"amount"`
	IssueDate        string            `json:"issue_date"`
	DueDate          string            `json:"due_date"`
	ActualDueDate    string            `json:"actual_due_date"`
}

// RecordListing holds both listings of a range
type RecordListing struct {
	Range      RangeDTO       `json:"range"`
	Source     string         `json:"source"`
	Payable    []RecordRowDTO `json:"payable"`
	Receivable []RecordRowDTO `json:"receivable"`
}

// DashboardReport is everything the dashboard shows for one request.
// The summary covers every loaded record while the charts only use dated ones,
// so FinalBalance and the last RunningTotal are not expected to reconcile.
type DashboardReport struct {
	Range        RangeDTO             `json:"range"`
	Source       string               `json:"source"`
	Summary      SummaryDTO           `json:"summary"`
	Weekly       []WeeklyBucketDTO    `json:"weekly"`
	Cumulative   []CumulativePointDTO `json:"cumulative"`
	Daily        []DailyPointDTO      `json:"daily"`
	Distribution []DistributionDTO    `json:"distribution"`
	Categories   []CategoryShareDTO   `json:"categories"`
	Records      RecordListing        `json:"records"`
}

func toRangeDTO(r domain.DateRange) RangeDTO {
	return RangeDTO{StartDate: r.Start.Format(time.DateOnly), EndDate: r.End.Format(time.DateOnly)}
}

func toSummaryDTO(s domain.AggregateSummary) SummaryDTO {
	return SummaryDTO{
		TotalPayable:    valueobject.NewMoneyBRL(s.TotalPayable),
		TotalReceivable: valueobject.NewMoneyBRL(s.TotalReceivable),
		InitialBalance:  valueobject.NewMoneyBRL(s.InitialBalance),
		FinalBalance:    valueobject.NewMoneyBRL(s.FinalBalance),
	}
}

func toWeeklyDTOs(in []domain.WeeklyBucket) []WeeklyBucketDTO {
	out := make([]WeeklyBucketDTO, len(in))
	for i, b := range in {
		out[i] = WeeklyBucketDTO{
			WeekStart: b.WeekStart.Format(time.DateOnly),
			Category:  b.Category,
			Amount:    valueobject.NewMoneyBRL(b.Amount),
		}
	}
	return out
}

func toCumulativeDTOs(in []domain.CumulativePoint) []CumulativePointDTO {
	out := make([]CumulativePointDTO, len(in))
	for i, p := range in {
		out[i] = CumulativePointDTO{
			Date:           p.Date.Format(time.DateOnly),
			Category:       p.Category,
			DocumentNumber: p.DocumentNumber,
			SignedAmount:   valueobject.NewMoneyBRL(p.SignedAmount),
			RunningTotal:   valueobject.NewMoneyBRL(p.RunningTotal),
		}
	}
	return out
}

func toDailyDTOs(in []domain.DailyPoint) []DailyPointDTO {
	out := make([]DailyPointDTO, len(in))
	for i, p := range in {
		out[i] = DailyPointDTO{
			Date:     p.Date.Format(time.DateOnly),
			Category: p.Category,
			Amount:   valueobject.NewMoneyBRL(p.Amount),
		}
	}
	return out
}

func toDistributionDTO(d domain.Distribution) DistributionDTO {
	slices := make([]DistributionSliceDTO, len(d.Slices))
	for i, s := range d.Slices {
		slices[i] = DistributionSliceDTO{
			Counterparty: s.Counterparty,
			Amount:       valueobject.NewMoneyBRL(s.Amount),
			Share:        s.Share,
		}
	}
	return DistributionDTO{Category: d.Category, Total: valueobject.NewMoneyBRL(d.Total), Slices: slices}
}

func toCategoryShareDTOs(in []domain.CategoryShare) []CategoryShareDTO {
	out := make([]CategoryShareDTO, len(in))
	for i, c := range in {
		out[i] = CategoryShareDTO{Category: c.Category, Amount: valueobject.NewMoneyBRL(c.Amount), Share: c.Share}
	}
	return out
}

func toRecordRows(set domain.RecordSet) []RecordRowDTO {
	out := make([]RecordRowDTO, len(set.Records))
	for i, r := range set.Records {
		out[i] = RecordRowDTO{
			DocumentNumber:   r.DocumentNumber,
			Installment:      r.Installment,
			Type:             r.Type,
			Nature:           r.Nature,
			CounterpartyCode: r.CounterpartyCode,
			Store:            r.Store,
			Counterparty:     r.Counterparty,
			Amount:           valueobject.NewMoneyBRL(r.Amount),
			IssueDate:        showDate(r.IssueDate, r.IssueDateRaw),
			DueDate:          showDate(r.DueDate, r.DueDateRaw),
			ActualDueDate:    showDate(r.ActualDueDate, r.ActualDueDateRaw),
		}
	}
	return out
}

// showDate prints a parsed date as dd/mm/yyyy and falls back to the source text.
func showDate(d *time.Time, raw string) string {
	if d == nil {
		return raw
	}
	return d.Format(displayDate)
}
