package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	cashflowapp "github.com/cashflow/backend/internal/application/cashflow"
	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/infrastructure/fixture"
	"github.com/cashflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingLoader struct{}

func (failingLoader) Name() string { return "database" }

func (failingLoader) LoadRecords(context.Context, cashflow.DateRange) (cashflow.RecordSet, cashflow.RecordSet, error) {
	return cashflow.RecordSet{}, cashflow.RecordSet{}, cashflow.NewLoadError("database", errors.New("dial tcp: connection refused"))
}

func newCashflowRouter(t *testing.T, loader cashflow.RecordLoader) *gin.Engine {
	t.Helper()
	r, err := cashflow.ParseDateRange("2024-09-01", "2024-10-31")
	require.NoError(t, err)
	h := NewCashflowHandler(cashflowapp.NewDashboardService(loader, r, nil, zap.NewNop()))

	router := gin.New()
	router.GET("/dashboard", h.Dashboard)
	router.GET("/records", h.Records)
	router.GET("/weekly", h.Weekly)
	return router
}

func get(router *gin.Engine, path string, q url.Values) *httptest.ResponseRecorder {
	target := path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestCashflowHandler_Dashboard(t *testing.T) {
	router := newCashflowRouter(t, fixture.NewLoader())

	w := get(router, "/dashboard", url.Values{"initial_balance": {"R$ 195.584,85"}})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)

	assert.Equal(t, "fixture", data["source"])
	summary := data["summary"].(map[string]any)
	assert.Equal(t, "R$ 195.412,52", summary["final_balance"].(map[string]any)["formatted"])
	assert.Equal(t, "1498.90", summary["total_payable"].(map[string]any)["amount"])
	assert.Equal(t, "1326.57", summary["total_receivable"].(map[string]any)["amount"])

	assert.Len(t, data["weekly"], 4)
	cumulative := data["cumulative"].([]any)
	require.Len(t, cumulative, 4)
	last := cumulative[3].(map[string]any)
	assert.Equal(t, "-172.33", last["running_total"].(map[string]any)["amount"])
}

func TestCashflowHandler_Dashboard_Errors(t *testing.T) {
	tests := []struct {
		name   string
		loader cashflow.RecordLoader
		query  url.Values
		status int
		code   string
	}{
		{"missing balance", fixture.NewLoader(), url.Values{}, http.StatusBadRequest, dto.ErrCodeInvalidBalance},
		{"garbage balance", fixture.NewLoader(), url.Values{"initial_balance": {"abc"}}, http.StatusBadRequest, dto.ErrCodeInvalidBalance},
		{"malformed date", fixture.NewLoader(), url.Values{"initial_balance": {"100"}, "start_date": {"01/09/2024"}}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"reversed range", fixture.NewLoader(), url.Values{"initial_balance": {"100"}, "start_date": {"2024-10-31"}, "end_date": {"2024-09-01"}}, http.StatusBadRequest, dto.ErrCodeInvalidDateRange},
		{"source down", failingLoader{}, url.Values{"initial_balance": {"100"}}, http.StatusServiceUnavailable, dto.ErrCodeSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newCashflowRouter(t, tt.loader), "/dashboard", tt.query)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCashflowHandler_Dashboard_ValidationDetails(t *testing.T) {
	w := get(newCashflowRouter(t, fixture.NewLoader()), "/dashboard", url.Values{"end_date": {"tomorrow"}})

	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "end_date", resp.Error.Details[0].Field)
	assert.Equal(t, "isodate", resp.Error.Details[0].Tag)
}

func TestCashflowHandler_Records(t *testing.T) {
	router := newCashflowRouter(t, fixture.NewLoader())

	w := get(router, "/records", url.Values{"start_date": {"2024-10-01"}, "end_date": {"2024-10-31"}})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	payable := data["payable"].([]any)
	require.Len(t, payable, 2)
	first := payable[0].(map[string]any)
	assert.Equal(t, "26947", first["document_number"])
	assert.Equal(t, "08/10/2024", first["issue_date"])
	assert.Empty(t, data["receivable"])
}

func TestCashflowHandler_Weekly(t *testing.T) {
	router := newCashflowRouter(t, fixture.NewLoader())

	w := get(router, "/weekly", nil)

	require.Equal(t, http.StatusOK, w.Code)
	buckets := decodeResponse(t, w).Data.([]any)
	require.Len(t, buckets, 4)
	var weeks []string
	for _, b := range buckets {
		weeks = append(weeks, b.(map[string]any)["week_start"].(string))
	}
	assert.Equal(t, []string{"2024-09-23", "2024-09-30", "2024-10-07", "2024-10-14"}, weeks)

	w = get(router, "/weekly", url.Values{"start_date": {"2024-10-31"}, "end_date": {"2024-10-01"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
