package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yinan077/PassGate/internal/app/model"
	"github.com/yinan077/PassGate/internal/app/repository"
	"github.com/yinan077/PassGate/internal/app/service"
	httpUtil "github.com/yinan077/PassGate/internal/http/util"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the management API handlers.
type APIDeps struct {
	Logger   *zap.Logger
	Visitors service.VisitorService
	Events   repository.VisitEventRepository
	Known    *service.KnownPasses
}

// APIHandler implements the pass management endpoints.
type APIHandler struct {
	logger   *zap.Logger
	visitors service.VisitorService
	events   repository.VisitEventRepository
	known    *service.KnownPasses
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:   logger,
		visitors: deps.Visitors,
		events:   deps.Events,
		known:    deps.Known,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		visitors := api.Group("/visitors")
		{
			visitors.Post("/", h.CreateVisitor)
			visitors.Get("/", h.ListVisitors)
			visitors.Get("/:vuid", h.GetVisitor)
			visitors.Patch("/:vuid", h.UpdateVisitor)
			visitors.Post("/:vuid/deactivate", h.Deactivate)
			visitors.Post("/:vuid/reactivate", h.Reactivate)
			visitors.Post("/:vuid/visits", h.AddVisit)
			visitors.Get("/:vuid/visits", h.ListVisits)
		}
	}
}

// CreateVisitorRequest represents the request body for issuing a pass.
type CreateVisitorRequest struct {
	Email         string     `json:"email,omitempty" validate:"omitempty,email"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	NeverExpires  bool       `json:"never_expires,omitempty"`
	MaximumVisits *int       `json:"maximum_visits,omitempty" validate:"omitempty,min=0"`
}

// VisitorResponse is the wire form of a pass.
type VisitorResponse struct {
	UUID          string     `json:"uuid"`
	Email         string     `json:"email,omitempty"`
	IsActive      bool       `json:"is_active"`
	IsValid       bool       `json:"is_valid"`
	ExpiresAt     *time.Time `json:"expires_at"`
	MaximumVisits *int       `json:"maximum_visits"`
	VisitsCount   int        `json:"visits_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

func visitorResponse(v *model.Visitor) VisitorResponse {
	return VisitorResponse{
		UUID:          v.UUID,
		Email:         v.Email,
		IsActive:      v.IsActive,
		IsValid:       v.IsValid(),
		ExpiresAt:     v.ExpiresAt,
		MaximumVisits: v.MaximumVisits,
		VisitsCount:   v.VisitsCount,
		CreatedAt:     v.CreatedAt,
	}
}

// CreateVisitor handles POST /api/visitors
func (h *APIHandler) CreateVisitor(c *fiber.Ctx) error {
	var req CreateVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := httpUtil.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if req.NeverExpires && req.ExpiresAt != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "expires_at and never_expires are mutually exclusive",
		})
	}

	ctx := userContext(c)

	visitor, err := h.visitors.CreateVisitor(ctx, service.CreateVisitorInput{
		Email:         req.Email,
		ExpiresAt:     req.ExpiresAt,
		NeverExpires:  req.NeverExpires,
		MaximumVisits: req.MaximumVisits,
	})
	if err != nil {
		h.logger.Error("failed to create visitor", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create visitor",
		})
	}

	if h.known != nil {
		h.known.Add(visitor.UUID)
	}

	return c.Status(fiber.StatusCreated).JSON(visitorResponse(visitor))
}

// ListVisitors handles GET /api/visitors
func (h *APIHandler) ListVisitors(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed := c.QueryInt("offset"); parsed >= 0 {
			offset = parsed
		}
	}

	ctx := userContext(c)

	visitors, err := h.visitors.ListVisitors(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list visitors", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list visitors",
		})
	}

	response := make([]VisitorResponse, len(visitors))
	for i := range visitors {
		response[i] = visitorResponse(&visitors[i])
	}

	return c.JSON(fiber.Map{
		"visitors": response,
		"limit":    limit,
		"offset":   offset,
		"count":    len(response),
	})
}

// GetVisitor handles GET /api/visitors/:vuid
func (h *APIHandler) GetVisitor(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	if vuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "vuid is required",
		})
	}

	visitor, err := h.visitors.GetVisitor(userContext(c), vuid)
	if err != nil {
		return h.notFoundOrError(c, err, vuid, "failed to get visitor")
	}

	return c.JSON(visitorResponse(visitor))
}

// UpdateVisitorRequest represents the request body for updating a pass.
type UpdateVisitorRequest struct {
	Email         *string    `json:"email,omitempty" validate:"omitempty,email"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	NeverExpires  bool       `json:"never_expires,omitempty"`
	MaximumVisits *int       `json:"maximum_visits,omitempty" validate:"omitempty,min=0"`
}

// UpdateVisitor handles PATCH /api/visitors/:vuid
func (h *APIHandler) UpdateVisitor(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	if vuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "vuid is required",
		})
	}

	var req UpdateVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := httpUtil.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	visitor, err := h.visitors.UpdateVisitor(userContext(c), vuid, service.UpdateVisitorInput{
		Email:         req.Email,
		ExpiresAt:     req.ExpiresAt,
		NeverExpires:  req.NeverExpires,
		MaximumVisits: req.MaximumVisits,
	})
	if err != nil {
		return h.notFoundOrError(c, err, vuid, "failed to update visitor")
	}

	return c.JSON(visitorResponse(visitor))
}

// Deactivate handles POST /api/visitors/:vuid/deactivate
func (h *APIHandler) Deactivate(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	visitor, err := h.visitors.Deactivate(userContext(c), vuid)
	if err != nil {
		return h.notFoundOrError(c, err, vuid, "failed to deactivate visitor")
	}
	return c.JSON(visitorResponse(visitor))
}

// Reactivate handles POST /api/visitors/:vuid/reactivate
func (h *APIHandler) Reactivate(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	visitor, err := h.visitors.Reactivate(userContext(c), vuid)
	if err != nil {
		return h.notFoundOrError(c, err, vuid, "failed to reactivate visitor")
	}
	return c.JSON(visitorResponse(visitor))
}

// AddVisit handles POST /api/visitors/:vuid/visits for integrations that
// count visits without going through the gate.
func (h *APIHandler) AddVisit(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	visitor, err := h.visitors.AddVisit(userContext(c), vuid)
	if err != nil {
		return h.notFoundOrError(c, err, vuid, "failed to add visit")
	}
	return c.JSON(visitorResponse(visitor))
}

// ListVisits handles GET /api/visitors/:vuid/visits
func (h *APIHandler) ListVisits(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	if vuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "vuid is required",
		})
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := h.events.ListByVisitor(userContext(c), vuid, limit)
	if err != nil {
		h.logger.Error("failed to list visits", zap.Error(err), zap.String("vuid", vuid))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list visits",
		})
	}

	return c.JSON(fiber.Map{
		"visits": events,
		"count":  len(events),
	})
}

func (h *APIHandler) notFoundOrError(c *fiber.Ctx, err error, vuid, msg string) error {
	if errors.Is(err, repository.ErrVisitorNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "visitor not found",
		})
	}
	h.logger.Error(msg, zap.Error(err), zap.String("vuid", vuid))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
