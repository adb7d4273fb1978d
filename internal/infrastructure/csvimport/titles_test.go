package csvimport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cashflow/backend/internal/domain/warehouse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payablesCSV = "No. Titulo;Parcela;Tipo;Natureza;Fornecedor;Nome Fornece;Vlr.Titulo;DT Emissao;Vencimento;Vencto Real\n" +
	"26947;;NF;201006;120;MARC ETIQUETAS;525,00;08/10/2024;05/11/2024;05/11/2024\n" +
	"26967;;NF;201006;120;MARC ETIQUETAS;973,90;16/10/2024;14/11/2024;14/11/2024\n"

const receivablesCSV = "No. Titulo;Parcela;Tipo;Natureza;Cliente;Loja;Nome Cliente;Vlr.Titulo;DT Emissao;Vencimento;Vencto Real\n" +
	"13246;;NF;101001;5057;1;SINGULAR PHARMA FEIR;1.089,27;25/09/2024;25/10/2024;25/10/2024\n" +
	"13252;;NF;101001;6186;1;FIOLASER SSA SHOPING;237,30;30/09/2024;28/10/2024;28/10/2024\n"

func TestTitleReader_ReadPayables(t *testing.T) {
	var batch warehouse.Batch
	reader := NewTitleReader(10)

	n, err := reader.ReadPayables(strings.NewReader(payablesCSV), &batch)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, batch.Payables, 2)

	first := batch.Payables[0]
	assert.Equal(t, "26947", first.DocumentNumber)
	assert.Nil(t, first.Installment)
	assert.Equal(t, "NF", first.Type)
	assert.True(t, decimal.NewFromInt(525).Equal(first.Amount))
	require.NotNil(t, first.IssueDate)
	assert.Equal(t, time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC), *first.IssueDate)
	require.NotNil(t, first.SupplierID)
	assert.Equal(t, "120", *first.SupplierID)
	assert.True(t, decimal.RequireFromString("973.9").Equal(batch.Payables[1].Amount))

	assert.Equal(t, []warehouse.Member{{ID: "120", Name: "MARC ETIQUETAS"}}, batch.Suppliers.Members())
	assert.Equal(t, []warehouse.Member{{ID: "201006"}}, batch.Natures.Members())
}

func TestTitleReader_ReadReceivables(t *testing.T) {
	var batch warehouse.Batch
	reader := NewTitleReader(10)

	_, err := reader.ReadReceivables(strings.NewReader(receivablesCSV), &batch)

	require.NoError(t, err)
	require.Len(t, batch.Receivables, 2)
	assert.True(t, decimal.RequireFromString("1089.27").Equal(batch.Receivables[0].Amount))
	assert.Equal(t, "5057", *batch.Receivables[0].CustomerID)
	assert.Equal(t, "1", *batch.Receivables[0].StoreID)
	assert.Equal(t, 2, batch.Customers.Len())
	assert.Equal(t, []warehouse.Member{{ID: "1", Name: "1"}}, batch.Stores.Members())
}

func TestTitleReader_RowErrors(t *testing.T) {
	csv := "No. Titulo;Parcela;Tipo;Natureza;Fornecedor;Nome Fornece;Vlr.Titulo;DT Emissao;Vencimento;Vencto Real\n" +
		"26947;;NF;201006;120;MARC;abc;08/10/2024;;\n" +
		";;NF;201006;120;MARC;10,00;2024-13-45;;\n" +
		"26999;;NF;201006;120;MARC;10,00;;;\n"
	var batch warehouse.Batch

	_, err := NewTitleReader(10).ReadPayables(strings.NewReader(csv), &batch)

	var rowErrs *RowErrors
	require.True(t, errors.As(err, &rowErrs))
	errs := rowErrs.Collection.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, RowError{Row: 2, Column: ColAmount, Code: ErrCodeInvalidAmount, Message: "invalid amount", Value: "abc"}, errs[0])
	assert.Equal(t, 3, errs[1].Row)
	assert.Equal(t, ErrCodeRequiredField, errs[1].Code)
	assert.Equal(t, ErrCodeInvalidDate, errs[2].Code)
	assert.Contains(t, err.Error(), "3 error(s) found")

	// Good rows still parse; an empty issue date is allowed.
	require.Len(t, batch.Payables, 1)
	assert.Nil(t, batch.Payables[0].IssueDate)
}

func TestTitleReader_MissingColumns(t *testing.T) {
	var batch warehouse.Batch

	_, err := NewTitleReader(10).ReadReceivables(strings.NewReader(payablesCSV), &batch)

	assert.ErrorIs(t, err, ErrMissingHeader)
	assert.Contains(t, err.Error(), "Cliente")
}

func TestErrorCollection_Truncates(t *testing.T) {
	ec := NewErrorCollection(2)
	for i := 0; i < 5; i++ {
		ec.AddRequiredError(i+2, ColDocumentNumber)
	}

	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, 5, ec.TotalCount())
	assert.True(t, ec.IsTruncated())
	assert.Contains(t, ec.String(), "(showing first 2)")
	assert.Nil(t, NewErrorCollection(0).Err())
}
