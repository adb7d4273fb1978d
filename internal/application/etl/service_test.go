package etl

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/cashflow/backend/internal/domain/warehouse"
	"github.com/cashflow/backend/internal/infrastructure/csvimport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const payablesCSV = "No. Titulo;Parcela;Tipo;Natureza;Fornecedor;Nome Fornece;Vlr.Titulo;DT Emissao;Vencimento;Vencto Real\n" +
	"26947;;NF;201006;120;MARC ETIQUETAS;525,00;08/10/2024;05/11/2024;05/11/2024\n" +
	"26967;;NF;201006;120;MARC ETIQUETAS;973,90;16/10/2024;14/11/2024;14/11/2024\n"

const receivablesCSV = "No. Titulo;Parcela;Tipo;Natureza;Cliente;Loja;Nome Cliente;Vlr.Titulo;DT Emissao;Vencimento;Vencto Real\n" +
	"13246;;NF;101001;5057;1;SINGULAR PHARMA FEIR;1.089,27;25/09/2024;25/10/2024;25/10/2024\n" +
	"13252;;NF;101001;6186;1;FIOLASER SSA SHOPING;237,30;30/09/2024;28/10/2024;28/10/2024\n"

// memOpener serves inputs from memory
type memOpener map[string]string

func (m memOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	body, ok := m[location]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// MockWriter is a mock implementation of warehouse.Writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Replace(ctx context.Context, batch *warehouse.Batch) (warehouse.LoadStats, error) {
	args := m.Called(ctx, batch)
	return args.Get(0).(warehouse.LoadStats), args.Error(1)
}

func newService(opener SourceOpener, writer warehouse.Writer, log *zap.Logger) *Service {
	return NewService(opener, csvimport.NewTitleReader(10), writer, nil, log)
}

var input = Input{PayablesPath: "apagar.csv", ReceivablesPath: "areceber.csv"}

func TestService_Run(t *testing.T) {
	writer := new(MockWriter)
	stats := warehouse.LoadStats{Suppliers: 1, Customers: 2, Stores: 1, Natures: 2, Payables: 2, Receivables: 2}
	writer.On("Replace", mock.Anything, mock.MatchedBy(func(b *warehouse.Batch) bool {
		return len(b.Payables) == 2 && len(b.Receivables) == 2 && b.Natures.Len() == 2
	})).Return(stats, nil).Once()

	svc := newService(memOpener{"apagar.csv": payablesCSV, "areceber.csv": receivablesCSV}, writer, nil)

	result, err := svc.Run(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 2, result.PayableRows)
	assert.Equal(t, 2, result.ReceivableRows)
	require.NotNil(t, result.Loaded)
	assert.Equal(t, stats, *result.Loaded)
	assert.Empty(t, result.Errors)
	writer.AssertExpectations(t)
}

func TestService_Run_RejectsBadRows(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	writer := new(MockWriter)
	bad := payablesCSV + "26999;;NF;201006;120;MARC ETIQUETAS;abc;31/02/2024;;\n" +
		";;NF;201006;120;MARC ETIQUETAS;10,00;01/10/2024;;\n"

	svc := newService(memOpener{"apagar.csv": bad, "areceber.csv": receivablesCSV}, writer, zap.New(core))

	result, err := svc.Run(context.Background(), input)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRowsRejected)
	require.NotNil(t, result)
	assert.Nil(t, result.Loaded)
	assert.Equal(t, 3, result.TotalErrors)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, csvimport.ErrCodeInvalidAmount, result.Errors[0].Code)
	assert.Equal(t, 4, result.Errors[0].Row)
	assert.Equal(t, csvimport.ErrCodeInvalidDate, result.Errors[1].Code)
	assert.Equal(t, csvimport.ErrCodeRequiredField, result.Errors[2].Code)
	assert.True(t, strings.HasPrefix(result.Errors[0].Message, "apagar.csv: "))
	assert.Equal(t, 1, recorded.FilterMessage("ETL rejected input rows").Len())
	writer.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestService_Run_MissingInput(t *testing.T) {
	writer := new(MockWriter)
	svc := newService(memOpener{"apagar.csv": payablesCSV}, writer, nil)

	t.Run("blank path", func(t *testing.T) {
		_, err := svc.Run(context.Background(), Input{PayablesPath: "apagar.csv"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unopenable input", func(t *testing.T) {
		_, err := svc.Run(context.Background(), input)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "areceber.csv")
	})

	t.Run("missing columns", func(t *testing.T) {
		svc := newService(memOpener{"apagar.csv": "No. Titulo;Tipo\n1;NF\n", "areceber.csv": receivablesCSV}, writer, nil)
		_, err := svc.Run(context.Background(), input)
		assert.ErrorIs(t, err, csvimport.ErrMissingHeader)
	})

	writer.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestService_Run_WriterFailure(t *testing.T) {
	writer := new(MockWriter)
	writer.On("Replace", mock.Anything, mock.Anything).Return(warehouse.LoadStats{}, errors.New("deadlock detected")).Once()
	svc := newService(memOpener{"apagar.csv": payablesCSV, "areceber.csv": receivablesCSV}, writer, nil)

	result, err := svc.Run(context.Background(), input)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	writer.AssertExpectations(t)
}
