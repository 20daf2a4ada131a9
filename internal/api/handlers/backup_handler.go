package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/salesledger/internal/api/middleware"
	"github.com/andresuchdata/salesledger/internal/service"
)

type BackupHandler struct {
	backups *service.BackupService
}

func NewBackupHandler(backups *service.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups}
}

func (h *BackupHandler) Download(c *gin.Context) {
	b, err := h.backups.Backup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("salesledger_backup_%s.json", b.CreatedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.JSON(http.StatusOK, b)
}

func (h *BackupHandler) Restore(c *gin.Context) {
	var b service.Backup
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.backups.Restore(c.Request.Context(), &b)
	if err != nil {
		respondError(c, err)
		return
	}
	actor, _ := middleware.CurrentUser(c)
	log.Info().Str("user", actor.Username).Interface("counts", res.Counts).Msg("backup restored")
	c.JSON(http.StatusOK, res)
}
