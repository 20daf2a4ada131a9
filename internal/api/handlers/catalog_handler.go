package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/api/middleware"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
	"github.com/andresuchdata/salesledger/internal/store"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// save binds a JSON body into T, forces the path id when present and runs
// the service save.
func save[T any](c *gin.Context, fn func(context.Context, T) (*service.Saved[T], error), setID func(*T, string)) {
	var rec T
	if err := c.ShouldBindJSON(&rec); err != nil {
		badRequest(c, err.Error())
		return
	}
	status := http.StatusCreated
	if id := c.Param("id"); id != "" {
		setID(&rec, id)
		status = http.StatusOK
	}
	saved, err := fn(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, saved)
}

func remove(c *gin.Context, fn func(context.Context, string) (store.WriteResult, error)) {
	res, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"write": res})
}

func list[T any](c *gin.Context, records []T, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []T{}
	}
	c.JSON(http.StatusOK, records)
}

// ListBranches returns the branches visible to the caller.
func (h *CatalogHandler) ListBranches(c *gin.Context) {
	branches, err := h.catalog.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	u, _ := middleware.CurrentUser(c)
	visible := make([]domain.Branch, 0, len(branches))
	for _, b := range branches {
		if u.HasBranchAccess(b.ID) {
			visible = append(visible, b)
		}
	}
	c.JSON(http.StatusOK, visible)
}

func (h *CatalogHandler) SaveBranch(c *gin.Context) {
	save(c, h.catalog.SaveBranch, func(b *domain.Branch, id string) { b.ID = id })
}

func (h *CatalogHandler) DeleteBranch(c *gin.Context) { remove(c, h.catalog.DeleteBranch) }

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	list(c, products, err)
}

func (h *CatalogHandler) SaveProduct(c *gin.Context) {
	save(c, h.catalog.SaveProduct, func(p *domain.Product, id string) { p.ID = id })
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) { remove(c, h.catalog.DeleteProduct) }

func (h *CatalogHandler) ListUnits(c *gin.Context) {
	units, err := h.catalog.ListUnits(c.Request.Context())
	list(c, units, err)
}

func (h *CatalogHandler) SaveUnit(c *gin.Context) {
	save(c, h.catalog.SaveUnit, func(u *domain.Unit, id string) { u.ID = id })
}

func (h *CatalogHandler) DeleteUnit(c *gin.Context) { remove(c, h.catalog.DeleteUnit) }

func (h *CatalogHandler) ListProductLists(c *gin.Context) {
	lists, err := h.catalog.ListProductLists(c.Request.Context(), domain.ListCategory(c.Query("category")))
	list(c, lists, err)
}

func (h *CatalogHandler) SaveProductList(c *gin.Context) {
	save(c, h.catalog.SaveProductList, func(l *domain.ProductList, id string) { l.ID = id })
}

func (h *CatalogHandler) DeleteProductList(c *gin.Context) { remove(c, h.catalog.DeleteProductList) }

func (h *CatalogHandler) ListPOS(c *gin.Context) {
	terminals, err := h.catalog.ListPOS(c.Request.Context())
	list(c, terminals, err)
}

func (h *CatalogHandler) SavePOS(c *gin.Context) {
	save(c, h.catalog.SavePOS, func(p *domain.POSTerminal, id string) { p.ID = id })
}

func (h *CatalogHandler) DeletePOS(c *gin.Context) { remove(c, h.catalog.DeletePOS) }

func (h *CatalogHandler) ListCashiers(c *gin.Context) {
	cashiers, err := h.catalog.ListCashiers(c.Request.Context())
	list(c, cashiers, err)
}

func (h *CatalogHandler) SaveCashier(c *gin.Context) {
	save(c, h.catalog.SaveCashier, func(x *domain.Cashier, id string) { x.ID = id })
}

func (h *CatalogHandler) DeleteCashier(c *gin.Context) { remove(c, h.catalog.DeleteCashier) }

func (h *CatalogHandler) TreasuryDefinitions(c *gin.Context) {
	defs, err := h.catalog.TreasuryDefinitions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, defs)
}

func (h *CatalogHandler) SaveTreasuryDefinitions(c *gin.Context) {
	var defs domain.TreasuryDefinitions
	if err := c.ShouldBindJSON(&defs); err != nil {
		badRequest(c, err.Error())
		return
	}
	saved, err := h.catalog.SaveTreasuryDefinitions(c.Request.Context(), defs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
