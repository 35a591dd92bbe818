package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/redis"
	"github.com/prohmpiriya/nejat-client/pkg/response"
)

// EventHandler serves the Nejat routes
type EventHandler struct {
	repo EventRepository
	log  *logger.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(repo EventRepository, log *logger.Logger) *EventHandler {
	if log == nil {
		log = logger.Get()
	}
	return &EventHandler{repo: repo, log: log.Named("handler")}
}

// List handles GET /nejat
func (h *EventHandler) List(c *gin.Context) {
	params, err := dto.ParseListEventsParams(c.Request.URL.Query())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := domain.Validate(params); err != nil {
		h.validationError(c, err)
		return
	}

	events, total, err := h.repo.List(c.Request.Context(), params)
	if err != nil {
		h.internalError(c, "list events", err)
		return
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	response.List(c, events, dto.PageMeta{Total: total, Page: params.Page, TotalPages: totalPages})
}

// GetByID handles GET /nejat/:id. Unknown ids get a 200 with an empty body.
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "get event", err)
		return
	}
	if event == nil {
		response.Empty(c)
		return
	}
	response.JSON(c, event)
}

// ListPerformers handles GET /nejat/performers
func (h *EventHandler) ListPerformers(c *gin.Context) {
	performers, err := h.repo.ListPerformers(c.Request.Context())
	if err != nil {
		h.internalError(c, "list performers", err)
		return
	}
	response.JSON(c, performers)
}

// ListTicketEvents handles GET /nejat/ticketEvents
func (h *EventHandler) ListTicketEvents(c *gin.Context) {
	events, err := h.repo.ListTicketEvents(c.Request.Context())
	if err != nil {
		h.internalError(c, "list ticket events", err)
		return
	}
	response.JSON(c, events)
}

// Vote handles PATCH /nejat/performerVote/:id
func (h *EventHandler) Vote(c *gin.Context) {
	votes, err := h.repo.VotePerformer(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPerformerNotFound) {
			response.NotFound(c, "Performer not found")
			return
		}
		h.internalError(c, "vote performer", err)
		return
	}

	h.log.Debug("vote recorded", zap.String("performer_id", c.Param("id")), zap.Int("votes", votes))
	response.Success(c, "Vote recorded")
}

// CreateSubscription handles POST /subscribers/createSubscription
func (h *EventHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := domain.Validate(&req); err != nil {
		h.validationError(c, err)
		return
	}

	err := h.repo.CreateSubscription(c.Request.Context(), &req)
	switch {
	case errors.Is(err, ErrVenueNotFound):
		response.NotFound(c, "Venue not found")
	case errors.Is(err, ErrAlreadySubscribed):
		response.Error(c, http.StatusConflict, "CONFLICT", "Already subscribed", "")
	case err != nil:
		h.internalError(c, "create subscription", err)
	default:
		response.Created(c, "Subscribed")
	}
}

// CreateTicket handles POST /nejat/createTicket
func (h *EventHandler) CreateTicket(c *gin.Context) {
	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := domain.Validate(&req); err != nil {
		h.validationError(c, err)
		return
	}
	if req.Base64Data != nil {
		if _, err := decodeDataURI(req.Base64Data.Base64); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	id, err := h.repo.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, "Event not found")
			return
		}
		h.internalError(c, "create ticket", err)
		return
	}

	h.log.Info("ticket created", zap.String("ticket_id", id))
	response.Created(c, "Ticket created")
}

func (h *EventHandler) validationError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		response.BadRequest(c, err.Error())
		return
	}
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	response.ValidationError(c, fields)
}

func (h *EventHandler) internalError(c *gin.Context, op string, err error) {
	h.log.Error(op+" failed", zap.Error(err))
	response.InternalError(c, err)
}

// HealthHandler reports liveness and cache health
type HealthHandler struct {
	redis *redis.Client
}

// NewHealthHandler creates a HealthHandler; redis may be nil
func NewHealthHandler(cache *redis.Client) *HealthHandler {
	return &HealthHandler{redis: cache}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "cache": "disabled"}
	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = err.Error()
		} else {
			status["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, status)
}
