package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
	"github.com/andresuchdata/salesledger/internal/service"
)

type ReconciliationHandler struct {
	recon *service.ReconciliationService
}

func NewReconciliationHandler(recon *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon}
}

func (h *ReconciliationHandler) PreviewPOS(c *gin.Context) {
	var in reconciliation.POSInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, h.recon.PreviewPOS(in))
}

func (h *ReconciliationHandler) ListPOS(c *gin.Context) {
	var f service.POSFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err.Error())
		return
	}
	recs, err := h.recon.ListPOS(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.recon.POSSummary(c.Request.Context(), f.From, f.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliations": recs, "summary": summary})
}

func (h *ReconciliationHandler) DailyPOS(c *gin.Context) {
	totals, err := h.recon.DailyPOS(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *ReconciliationHandler) SavePOS(c *gin.Context) {
	save(c, h.recon.SavePOS, func(r *domain.POSReconciliation, id string) { r.ID = id })
}

func (h *ReconciliationHandler) DeletePOS(c *gin.Context) { remove(c, h.recon.DeletePOS) }

func (h *ReconciliationHandler) PreviewTreasury(c *gin.Context) {
	var in reconciliation.TreasuryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, h.recon.PreviewTreasury(in))
}

func (h *ReconciliationHandler) ListTreasury(c *gin.Context) {
	days, err := h.recon.ListTreasury(c.Request.Context(), c.Query("from"), c.Query("to"))
	list(c, days, err)
}

func (h *ReconciliationHandler) GetTreasury(c *gin.Context) {
	day, err := h.recon.GetTreasury(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// DraftTreasury pre-fills a treasury day from the POS closings and the
// previous day's counted cash.
func (h *ReconciliationHandler) DraftTreasury(c *gin.Context) {
	draft, err := h.recon.DraftTreasury(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *ReconciliationHandler) SuggestOpening(c *gin.Context) {
	s, err := h.recon.SuggestOpening(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *ReconciliationHandler) SaveTreasury(c *gin.Context) {
	save(c, h.recon.SaveTreasury, func(r *domain.TreasuryReconciliation, id string) { r.ID = id })
}

func (h *ReconciliationHandler) DeleteTreasury(c *gin.Context) { remove(c, h.recon.DeleteTreasury) }

func (h *ReconciliationHandler) ChainBreaks(c *gin.Context) {
	breaks, err := h.recon.ChainBreaks(c.Request.Context())
	list(c, breaks, err)
}

func (h *ReconciliationHandler) TreasuryReport(c *gin.Context) {
	var q reconciliation.TreasuryReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.recon.TreasuryReport(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
