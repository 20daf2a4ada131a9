package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
)

type ReportHandler struct {
	reports  *service.ReportService
	branches BranchResolver
}

func NewReportHandler(reports *service.ReportService, branches BranchResolver) *ReportHandler {
	return &ReportHandler{reports: reports, branches: branches}
}

func (h *ReportHandler) scope(c *gin.Context) (service.Scope, bool) {
	scope, err := branchScope(c, h.branches, c.Query("branch"))
	if err != nil {
		respondError(c, err)
		return scope, false
	}
	return scope, true
}

func yearParam(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		badRequest(c, "year must be a four digit number")
		return 0, false
	}
	return year, true
}

// reply writes v or the mapped error.
func reply[T any](c *gin.Context, v T, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	r, err := h.reports.Dashboard(c.Request.Context(), scope)
	reply(c, r, err)
}

func (h *ReportHandler) Daily(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format(domain.DateLayout)
	}
	r, err := h.reports.Daily(c.Request.Context(), scope, date)
	reply(c, r, err)
}

func (h *ReportHandler) Custom(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	f := domain.SalesFilter{From: c.Query("from"), To: c.Query("to"), Branch: scope.Branch}
	r, err := h.reports.Custom(c.Request.Context(), scope, f)
	reply(c, r, err)
}

func (h *ReportHandler) Monthly(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	year, ok := yearParam(c)
	if !ok {
		return
	}
	r, err := h.reports.Monthly(c.Request.Context(), scope, year)
	reply(c, r, err)
}

func (h *ReportHandler) Yearly(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	year, ok := yearParam(c)
	if !ok {
		return
	}
	r, err := h.reports.Yearly(c.Request.Context(), scope, year)
	reply(c, r, err)
}

func (h *ReportHandler) Branches(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	f := domain.SalesFilter{From: c.Query("from"), To: c.Query("to"), Branch: scope.Branch}
	r, err := h.reports.Branches(c.Request.Context(), f)
	reply(c, r, err)
}

func (h *ReportHandler) BranchDetail(c *gin.Context) {
	scope, err := branchScope(c, h.branches, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	f := domain.SalesFilter{From: c.Query("from"), To: c.Query("to")}
	r, err := h.reports.BranchDetail(c.Request.Context(), scope.Branch, f)
	reply(c, r, err)
}

func (h *ReportHandler) Peak(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	r, err := h.reports.Peak(c.Request.Context(), scope)
	reply(c, r, err)
}

func (h *ReportHandler) BranchTrends(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	r, err := h.reports.BranchTrends(c.Request.Context(), scope)
	reply(c, r, err)
}

func (h *ReportHandler) Matrix(c *gin.Context) {
	var q analytics.MatrixQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	scope, err := branchScope(c, h.branches, q.Branch)
	if err != nil {
		respondError(c, err)
		return
	}
	r, err := h.reports.Matrix(c.Request.Context(), scope, q)
	reply(c, r, err)
}

func (h *ReportHandler) Products(c *gin.Context) {
	r, err := h.reports.Products(c.Request.Context())
	reply(c, r, err)
}

func (h *ReportHandler) Categories(c *gin.Context) {
	r, err := h.reports.Categories(c.Request.Context())
	reply(c, r, err)
}

func (h *ReportHandler) Analysis(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	r, err := h.reports.Analysis(c.Request.Context(), scope)
	reply(c, r, err)
}

func (h *ReportHandler) Scenario(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	pct, err := strconv.ParseFloat(c.DefaultQuery("percentage", "0"), 64)
	if err != nil {
		badRequest(c, "percentage must be a number")
		return
	}
	r, err := h.reports.Scenario(c.Request.Context(), scope, pct)
	reply(c, r, err)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *ReportHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		badRequest(c, "question is required")
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	r, err := h.reports.Ask(c.Request.Context(), scope, req.Question)
	reply(c, r, err)
}
