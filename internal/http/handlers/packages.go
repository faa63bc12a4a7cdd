package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/modules/catalog"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
)

type PackagesHandler struct {
	Logger *slog.Logger
	Repo   *catalog.Repo
}

func NewPackagesHandler(logger *slog.Logger, repo *catalog.Repo) *PackagesHandler {
	return &PackagesHandler{Logger: logger, Repo: repo}
}

// GET /api/packages?siteType=SHOPPING_MALL&siteNo=S001
func (h *PackagesHandler) List(c *gin.Context) {
	pkgs, err := h.Repo.List(c.Request.Context(), c.Query("siteType"), c.Query("siteNo"))
	if err != nil {
		respondAppErr(c, apperr.Wrap(err))
		return
	}
	respondOK(c, pkgs)
}
