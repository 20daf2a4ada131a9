package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/drive"
	"github.com/andresuchdata/salesledger/internal/service"
)

type SalesHandler struct {
	sales    *service.SalesService
	branches BranchResolver
}

func NewSalesHandler(sales *service.SalesService, branches BranchResolver) *SalesHandler {
	return &SalesHandler{sales: sales, branches: branches}
}

func (h *SalesHandler) List(c *gin.Context) {
	var f domain.SalesFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err.Error())
		return
	}
	scope, err := branchScope(c, h.branches, f.Branch)
	if err != nil {
		respondError(c, err)
		return
	}
	f.Branch = scope.Branch

	sales, err := h.sales.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales, "count": len(sales)})
}

// owned loads a sale and checks the caller may touch its branch.
func (h *SalesHandler) owned(c *gin.Context) (domain.SaleRecord, bool) {
	sale, err := h.sales.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return sale, false
	}
	if _, err := branchScope(c, h.branches, sale.Branch); err != nil {
		respondError(c, err)
		return sale, false
	}
	return sale, true
}

func (h *SalesHandler) Get(c *gin.Context) {
	sale, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *SalesHandler) Create(c *gin.Context) {
	var in service.SaleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := branchScope(c, h.branches, in.Branch); err != nil {
		respondError(c, err)
		return
	}
	saved, err := h.sales.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *SalesHandler) Update(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}
	var in service.SaleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := branchScope(c, h.branches, in.Branch); err != nil {
		respondError(c, err)
		return
	}
	saved, err := h.sales.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *SalesHandler) Delete(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}
	res, err := h.sales.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"write": res})
}

// Import accepts a CSV or XLSX upload in the "file" form field.
func (h *SalesHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	overwrite, _ := strconv.ParseBool(c.PostForm("overwrite"))

	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	sheet, err := drive.ParseSales(f, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	scope, err := branchScope(c, h.branches, "")
	if err != nil {
		respondError(c, err)
		return
	}
	if scope.Branch != "" {
		own := domain.NormalizeBranchName(scope.Branch)
		sheet = sheet.Keep(func(r domain.SaleRecord) bool {
			return domain.NormalizeBranchName(r.Branch) == own
		}, "no access to this branch")
	}

	rep, err := drive.ImportSheet(c.Request.Context(), h.sales, header.Filename, sheet, service.ImportOptions{Overwrite: overwrite})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
