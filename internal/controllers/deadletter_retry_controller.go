package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/obaidsafi51/GigStream-sub003/internal/middleware"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/internal/services"

	"github.com/gin-gonic/gin"
)

type deadLetterRetryController struct{ svc services.DeadLetterService }

func NewDeadLetterRetryController(svc services.DeadLetterService) *deadLetterRetryController {
	return &deadLetterRetryController{svc}
}

// Handle replays one dead-lettered claim as a fresh cycle and reports its
// terminal result. Entries owned by other platforms come back as not-found.
func (h *deadLetterRetryController) Handle(c *gin.Context) {
	platform, ok := middleware.PlatformFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "MISSING_AUTH_HEADERS", "platform identity missing")
		return
	}
	entryID := strings.TrimSpace(c.Param("id"))
	if entryID == "" {
		respondError(c, http.StatusBadRequest, "MISSING_ENTRY_ID", "entry id is required")
		return
	}

	result, err := h.svc.Replay(c.Request.Context(), platform, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			respondError(c, http.StatusNotFound, "ENTRY_NOT_FOUND", "no such dead-letter entry")
			return
		}
		respondError(c, http.StatusInternalServerError, "REPLAY_FAILED", err.Error())
		return
	}
	// The replay ran to a terminal state either way; the body says which.
	c.JSON(http.StatusOK, cycleResponse(*result))
}
