package handler

import (
	cashflowapp "github.com/cashflow/backend/internal/application/cashflow"
	"github.com/gin-gonic/gin"
)

// RangeQuery is the date range of a dashboard request. Empty dates take the
// configured default.
type RangeQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,isodate"`
	EndDate   string `form:"end_date" binding:"omitempty,isodate"`
}

// DashboardQuery adds the starting balance, in BRL notation ("R$ 195.584,85")
type DashboardQuery struct {
	RangeQuery
	InitialBalance string `form:"initial_balance"`
}

func (q RangeQuery) toInput() cashflowapp.RangeInput {
	return cashflowapp.RangeInput{StartDate: q.StartDate, EndDate: q.EndDate}
}

// CashflowHandler serves the dashboard views
type CashflowHandler struct {
	BaseHandler
	service *cashflowapp.DashboardService
}

// NewCashflowHandler creates a new cashflow handler
func NewCashflowHandler(service *cashflowapp.DashboardService) *CashflowHandler {
	return &CashflowHandler{service: service}
}

// Dashboard returns the summary, charts and listings for a range
//
// @Summary      Cash-flow dashboard
// @Description  Summary cards, weekly buckets, cumulative and daily series, distributions and listings
// @Tags         cashflow
// @Produce      json
// @Security     BearerAuth
// @Param        start_date       query string false "Range start (YYYY-MM-DD)"
// @Param        end_date         query string false "Range end (YYYY-MM-DD)"
// @Param        initial_balance  query string false "Starting balance, e.g. R$ 195.584,85"
// @Success      200 {object} dto.Response{data=cashflowapp.DashboardReport}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cashflow/dashboard [get]
func (h *CashflowHandler) Dashboard(c *gin.Context) {
	var q DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleBindError(c, err)
		return
	}

	report, err := h.service.Dashboard(c.Request.Context(), cashflowapp.DashboardInput{
		RangeInput:     q.toInput(),
		InitialBalance: q.InitialBalance,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Records returns both listings without any balance math
//
// @Summary      Receivable and payable listings
// @Tags         cashflow
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query string false "Range start (YYYY-MM-DD)"
// @Param        end_date    query string false "Range end (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=cashflowapp.RecordListing}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cashflow/records [get]
func (h *CashflowHandler) Records(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleBindError(c, err)
		return
	}

	listing, err := h.service.Records(c.Request.Context(), q.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listing)
}

// Weekly returns the weekly buckets only
//
// @Summary      Weekly buckets
// @Tags         cashflow
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query string false "Range start (YYYY-MM-DD)"
// @Param        end_date    query string false "Range end (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]cashflowapp.WeeklyBucketDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cashflow/weekly [get]
func (h *CashflowHandler) Weekly(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleBindError(c, err)
		return
	}

	buckets, err := h.service.Weekly(c.Request.Context(), q.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, buckets)
}
