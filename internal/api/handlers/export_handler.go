package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
	"github.com/andresuchdata/salesledger/internal/service"
)

type ExportHandler struct {
	exports  *service.ExportService
	branches BranchResolver
}

func NewExportHandler(exports *service.ExportService, branches BranchResolver) *ExportHandler {
	return &ExportHandler{exports: exports, branches: branches}
}

// deliver streams the workbook, or uploads it when ?upload=true.
func (h *ExportHandler) deliver(c *gin.Context, a *service.Artifact, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if upload, _ := strconv.ParseBool(c.Query("upload")); upload {
		up, err := h.exports.Upload(c.Request.Context(), a)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, up)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

func (h *ExportHandler) Sales(c *gin.Context) {
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
	a, err := h.exports.Sales(c.Request.Context(), f)
	h.deliver(c, a, err)
}

func (h *ExportHandler) Matrix(c *gin.Context) {
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
	a, err := h.exports.Matrix(c.Request.Context(), scope, q)
	h.deliver(c, a, err)
}

func (h *ExportHandler) Treasury(c *gin.Context) {
	var q reconciliation.TreasuryReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.exports.Treasury(c.Request.Context(), q)
	h.deliver(c, a, err)
}

func (h *ExportHandler) POS(c *gin.Context) {
	var f service.POSFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.exports.POS(c.Request.Context(), f)
	h.deliver(c, a, err)
}

func (h *ExportHandler) Uploaded(c *gin.Context) {
	objects, err := h.exports.Uploaded(c.Request.Context())
	list(c, objects, err)
}
