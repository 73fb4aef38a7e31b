package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
	"github.com/b2bwholesale/ordering-sync/internal/core/service"
)

// maxBatch bounds a single batch request.
const maxBatch = 500

// EventDispatcher is the interface the handler uses to enqueue events.
type EventDispatcher interface {
	Enqueue(ctx context.Context, event ports.SyncEventInput) error
	EnqueueBatch(ctx context.Context, events []ports.SyncEventInput) error
}

// SyncEventHandler accepts domain-change events from the write side.
type SyncEventHandler struct {
	dispatcher EventDispatcher
	log        zerolog.Logger
}

// NewSyncEventHandler creates a SyncEventHandler backed by the given dispatcher.
func NewSyncEventHandler(dispatcher EventDispatcher, log zerolog.Logger) *SyncEventHandler {
	return &SyncEventHandler{dispatcher: dispatcher, log: log}
}

// Receive handles POST /v1/sync/events: validates and enqueues a single event, returns 202.
//
// @Summary      Broadcast a single domain event
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      syncEventRequest  true  "Domain event"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/sync/events [post]
func (h *SyncEventHandler) Receive(c echo.Context) error {
	who, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req syncEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	in, err := h.validate(c, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.dispatcher.Enqueue(c.Request().Context(), in); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "intake unavailable")
	}
	h.log.Debug().Str("user_id", who.UserID).Str("kind", in.Kind).Msg("event accepted")
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "event accepted"})
}

// ReceiveBatch handles POST /v1/sync/events/batch: validates every event
// before enqueuing any of them, returns 202.
//
// @Summary      Broadcast a batch of domain events
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []syncEventRequest  true  "Array of domain events"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/sync/events/batch [post]
func (h *SyncEventHandler) ReceiveBatch(c echo.Context) error {
	who, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var reqs []syncEventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatch {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch exceeds %d events", maxBatch))
	}

	inputs := make([]ports.SyncEventInput, 0, len(reqs))
	for i, req := range reqs {
		in, err := h.validate(c, req)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("event[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, in)
	}

	if err := h.dispatcher.EnqueueBatch(c.Request().Context(), inputs); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "intake unavailable")
	}
	h.log.Debug().Str("user_id", who.UserID).Int("count", len(inputs)).Msg("batch accepted")
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "events accepted",
		Count:   len(inputs),
	})
}

// validate runs the struct tags, then the same checks the sync core applies,
// so malformed events are rejected before they are queued.
func (h *SyncEventHandler) validate(c echo.Context, req syncEventRequest) (ports.SyncEventInput, error) {
	if err := c.Validate(&req); err != nil {
		return ports.SyncEventInput{}, err
	}
	in := toEventInput(req)
	if _, err := service.BuildEvent(in); err != nil {
		return ports.SyncEventInput{}, err
	}
	return in, nil
}

// toEventInput maps the HTTP request to the service DTO.
func toEventInput(r syncEventRequest) ports.SyncEventInput {
	return ports.SyncEventInput{
		ID:        r.ID,
		Kind:      r.Kind,
		Full:      r.Full,
		Redacted:  r.Redacted,
		Targets:   r.Targets,
		PartnerID: r.PartnerID,
		Timestamp: r.Timestamp,
	}
}
