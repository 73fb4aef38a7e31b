package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/b2bwholesale/ordering-sync/internal/core/realtime"
)

// SyncCore is the part of the sync core exposed to operators.
type SyncCore interface {
	Stats() realtime.Stats
	FlushRetries(ctx context.Context) (realtime.TickResult, bool)
}

type SyncHandler struct {
	core SyncCore
}

func NewSyncHandler(core SyncCore) *SyncHandler {
	return &SyncHandler{core: core}
}

// Stats handles GET /v1/sync/stats.
//
// @Summary      Connection counts and retry queue depth
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  realtime.Stats
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/sync/stats [get]
func (h *SyncHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.core.Stats())
}

// FlushRetries handles POST /v1/sync/retry/flush by running one retry tick now.
//
// @Summary      Run a retry tick immediately
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  flushResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/sync/retry/flush [post]
func (h *SyncHandler) FlushRetries(c echo.Context) error {
	res, ran := h.core.FlushRetries(c.Request().Context())
	if !ran {
		return c.JSON(http.StatusConflict, errorResponse{Error: "retry tick already in progress"})
	}
	return c.JSON(http.StatusOK, flushResponse{
		Delivered: res.Delivered,
		Requeued:  res.Requeued,
		Dropped:   res.Dropped,
	})
}
