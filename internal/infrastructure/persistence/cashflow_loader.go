package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
)

// GormRecordLoader reads payable and receivable titles from the warehouse
// fact tables, joined with their dimensions.
type GormRecordLoader struct {
	db *Database
}

// NewGormRecordLoader creates a new GormRecordLoader
func NewGormRecordLoader(db *Database) *GormRecordLoader {
	return &GormRecordLoader{db: db}
}

// Ensure GormRecordLoader implements cashflow.RecordLoader
var _ cashflow.RecordLoader = (*GormRecordLoader)(nil)

// Name identifies the source
func (l *GormRecordLoader) Name() string {
	return "database"
}

// recordRow is the flattened shape of one joined fact row.
type recordRow struct {
	DocumentNumber   string
	Installment      *string
	Type             *string
	Nature           *string
	CounterpartyCode *string
	Store            *string
	Counterparty     *string
	Amount           decimal.NullDecimal
	IssueDate        *string
	DueDate          *string
	ActualDueDate    *string
}

const dateColumns = "CAST(f.data_emissao AS TEXT) AS issue_date, " +
	"CAST(f.data_vencimento AS TEXT) AS due_date, " +
	"CAST(f.data_vencimento_real AS TEXT) AS actual_due_date"

// LoadRecords returns the titles issued within r, ordered by issue date and document number.
func (l *GormRecordLoader) LoadRecords(ctx context.Context, r cashflow.DateRange) (cashflow.RecordSet, cashflow.RecordSet, error) {
	payable, err := l.loadPayables(ctx, r)
	if err != nil {
		return cashflow.RecordSet{}, cashflow.RecordSet{}, cashflow.NewLoadError(l.Name(), err)
	}
	receivable, err := l.loadReceivables(ctx, r)
	if err != nil {
		return cashflow.RecordSet{}, cashflow.RecordSet{}, cashflow.NewLoadError(l.Name(), err)
	}
	return payable, receivable, nil
}

func (l *GormRecordLoader) loadPayables(ctx context.Context, r cashflow.DateRange) (cashflow.RecordSet, error) {
	facts, err := l.tables(models.TablePayables, models.TableSuppliers, models.TableNatures)
	if err != nil {
		return cashflow.RecordSet{}, err
	}

	var rows []recordRow
	err = l.db.DB.WithContext(ctx).
		Table(facts[0]+" AS f").
		Select("f.no_titulo AS document_number, f.parcela AS installment, f.tipo AS type, " +
			"n.descricao AS nature, f.fornecedorid AS counterparty_code, '' AS store, " +
			"d.nome_fornec AS counterparty, f.valor AS amount, " + dateColumns).
		Joins("LEFT JOIN " + facts[1] + " AS d ON d.fornecedorid = f.fornecedorid").
		Joins("LEFT JOIN " + facts[2] + " AS n ON n.naturezaid = f.naturezaid").
		Where("f.data_emissao BETWEEN ? AND ?", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly)).
		Order("f.data_emissao, f.no_titulo").
		Scan(&rows).Error
	if err != nil {
		return cashflow.RecordSet{}, fmt.Errorf("query payables: %w", err)
	}
	return toRecordSet(cashflow.CategoryPayable, rows), nil
}

func (l *GormRecordLoader) loadReceivables(ctx context.Context, r cashflow.DateRange) (cashflow.RecordSet, error) {
	facts, err := l.tables(models.TableReceivables, models.TableCustomers, models.TableStores, models.TableNatures)
	if err != nil {
		return cashflow.RecordSet{}, err
	}

	var rows []recordRow
	err = l.db.DB.WithContext(ctx).
		Table(facts[0]+" AS f").
		Select("f.no_titulo AS document_number, f.parcela AS installment, f.tipo AS type, " +
			"n.descricao AS nature, f.clienteid AS counterparty_code, lj.descricao AS store, " +
			"c.nome_cliente AS counterparty, f.valor AS amount, " + dateColumns).
		Joins("LEFT JOIN " + facts[1] + " AS c ON c.clienteid = f.clienteid").
		Joins("LEFT JOIN " + facts[2] + " AS lj ON lj.lojaid = f.lojaid").
		Joins("LEFT JOIN " + facts[3] + " AS n ON n.naturezaid = f.naturezaid").
		Where("f.data_emissao BETWEEN ? AND ?", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly)).
		Order("f.data_emissao, f.no_titulo").
		Scan(&rows).Error
	if err != nil {
		return cashflow.RecordSet{}, fmt.Errorf("query receivables: %w", err)
	}
	return toRecordSet(cashflow.CategoryReceivable, rows), nil
}

func (l *GormRecordLoader) tables(names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		q, err := l.db.qualified(name)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func toRecordSet(category cashflow.Category, rows []recordRow) cashflow.RecordSet {
	records := make([]cashflow.FinancialRecord, 0, len(rows))
	for _, row := range rows {
		rec := cashflow.FinancialRecord{
			DocumentNumber:   strings.TrimSpace(row.DocumentNumber),
			Installment:      deref(row.Installment),
			Type:             deref(row.Type),
			Nature:           deref(row.Nature),
			CounterpartyCode: deref(row.CounterpartyCode),
			Store:            deref(row.Store),
			Counterparty:     deref(row.Counterparty),
			IssueDateRaw:     deref(row.IssueDate),
			DueDateRaw:       deref(row.DueDate),
			ActualDueDateRaw: deref(row.ActualDueDate),
		}
		if row.Amount.Valid {
			rec.Amount = row.Amount.Decimal
		}
		rec.IssueDate = cashflow.ParseDate(rec.IssueDateRaw)
		rec.DueDate = cashflow.ParseDate(rec.DueDateRaw)
		rec.ActualDueDate = cashflow.ParseDate(rec.ActualDueDateRaw)
		records = append(records, rec)
	}
	return cashflow.NewRecordSet(category, records...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
