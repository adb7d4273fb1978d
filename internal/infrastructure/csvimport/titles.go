package csvimport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/domain/shared/valueobject"
	"github.com/cashflow/backend/internal/domain/warehouse"
)

// Export column names, as written by the ERP
const (
	ColDocumentNumber = "No. Titulo"
	ColInstallment    = "Parcela"
	ColType           = "Tipo"
	ColNature         = "Natureza"
	ColSupplier       = "Fornecedor"
	ColSupplierName   = "Nome Fornece"
	ColCustomer       = "Cliente"
	ColStore          = "Loja"
	ColCustomerName   = "Nome Cliente"
	ColAmount         = "Vlr.Titulo"
	ColIssueDate      = "DT Emissao"
	ColDueDate        = "Vencimento"
	ColActualDueDate  = "Vencto Real"
)

// PayableColumns lists the headers a payables export must carry
var PayableColumns = []string{
	ColDocumentNumber, ColInstallment, ColType, ColNature, ColSupplier, ColSupplierName,
	ColAmount, ColIssueDate, ColDueDate, ColActualDueDate,
}

// ReceivableColumns lists the headers a receivables export must carry
var ReceivableColumns = []string{
	ColDocumentNumber, ColInstallment, ColType, ColNature, ColCustomer, ColStore, ColCustomerName,
	ColAmount, ColIssueDate, ColDueDate, ColActualDueDate,
}

// TitleReader turns ERP exports into warehouse batch rows
type TitleReader struct {
	opts      []ParserOption
	maxErrors int
}

// NewTitleReader creates a reader that parses with opts
func NewTitleReader(maxErrors int, opts ...ParserOption) *TitleReader {
	return &TitleReader{opts: opts, maxErrors: maxErrors}
}

// ReadPayables parses a payables export into batch.
// Row problems are collected and returned together as *RowErrors.
func (t *TitleReader) ReadPayables(r io.Reader, batch *warehouse.Batch) (int, error) {
	rows, err := t.open(r, PayableColumns)
	if err != nil {
		return 0, err
	}

	errs := NewErrorCollection(t.maxErrors)
	for _, row := range rows {
		title, ok := parseTitle(row, errs)
		if !ok {
			continue
		}
		supplier := row.Optional(ColSupplier)
		if supplier != nil {
			batch.Suppliers.Add(*supplier, row.Get(ColSupplierName))
		}
		addNature(batch, title.NatureID)
		batch.Payables = append(batch.Payables, warehouse.Payable{Title: title, SupplierID: supplier})
	}
	return len(rows), errs.Err()
}

// ReadReceivables parses a receivables export into batch
func (t *TitleReader) ReadReceivables(r io.Reader, batch *warehouse.Batch) (int, error) {
	rows, err := t.open(r, ReceivableColumns)
	if err != nil {
		return 0, err
	}

	errs := NewErrorCollection(t.maxErrors)
	for _, row := range rows {
		title, ok := parseTitle(row, errs)
		if !ok {
			continue
		}
		customer := row.Optional(ColCustomer)
		if customer != nil {
			batch.Customers.Add(*customer, row.Get(ColCustomerName))
		}
		store := row.Optional(ColStore)
		if store != nil {
			// The export carries only the store code.
			batch.Stores.Add(*store, *store)
		}
		addNature(batch, title.NatureID)
		batch.Receivables = append(batch.Receivables, warehouse.Receivable{
			Title:      title,
			CustomerID: customer,
			StoreID:    store,
		})
	}
	return len(rows), errs.Err()
}

func (t *TitleReader) open(r io.Reader, required []string) ([]*Row, error) {
	parser, err := NewCSVParser(r, t.opts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMissingHeader, strings.Join(missing, ", "))
	}
	return parser.ReadAllRows()
}

func parseTitle(row *Row, errs *ErrorCollection) (warehouse.Title, bool) {
	before := errs.TotalCount()

	doc := row.Get(ColDocumentNumber)
	if doc == "" {
		errs.AddRequiredError(row.LineNumber, ColDocumentNumber)
	}

	amountText := row.Get(ColAmount)
	amount, err := valueobject.ParseCurrency(amountText)
	if err != nil {
		errs.AddFormatError(row.LineNumber, ColAmount, ErrCodeInvalidAmount, "invalid amount", amountText)
	}

	title := warehouse.Title{
		DocumentNumber: doc,
		Installment:    row.Optional(ColInstallment),
		Type:           row.Get(ColType),
		NatureID:       row.Optional(ColNature),
		Amount:         amount,
		IssueDate:      parseDateColumn(row, ColIssueDate, errs),
		DueDate:        parseDateColumn(row, ColDueDate, errs),
		ActualDueDate:  parseDateColumn(row, ColActualDueDate, errs),
	}
	return title, errs.TotalCount() == before
}

// parseDateColumn returns nil for an empty cell and records an error for unreadable text.
func parseDateColumn(row *Row, column string, errs *ErrorCollection) *time.Time {
	text := row.Get(column)
	if text == "" {
		return nil
	}
	d := cashflow.ParseDate(text)
	if d == nil {
		errs.AddFormatError(row.LineNumber, column, ErrCodeInvalidDate, "invalid date, expected dd/mm/yyyy", text)
	}
	return d
}

func addNature(batch *warehouse.Batch, id *string) {
	if id != nil {
		batch.Natures.Add(*id, "")
	}
}
