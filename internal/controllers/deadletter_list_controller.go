package controllers

import (
	"net/http"
	"strconv"

	"github.com/obaidsafi51/GigStream-sub003/internal/middleware"
	"github.com/obaidsafi51/GigStream-sub003/internal/services"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/gin-gonic/gin"
)

type deadLetterListController struct{ svc services.DeadLetterService }

func NewDeadLetterListController(svc services.DeadLetterService) *deadLetterListController {
	return &deadLetterListController{svc}
}

// Handle lists the caller's own dead-letter entries, newest first. The
// platform scoping is the ownership check: other platforms' entries are
// unreachable through this path.
func (h *deadLetterListController) Handle(c *gin.Context) {
	platform, ok := middleware.PlatformFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "MISSING_AUTH_HEADERS", "platform identity missing")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.svc.List(c.Request.Context(), platform.ID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DLQ_UNAVAILABLE", err.Error())
		return
	}
	if entries == nil {
		entries = []domain.DeadLetterEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"limit":   limit,
		"offset":  offset,
	})
}
