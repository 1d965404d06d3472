package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yinan077/PassGate/internal/app/model"
	"github.com/yinan077/PassGate/internal/app/repository"
	"github.com/yinan077/PassGate/internal/app/service"
	httpUtil "github.com/yinan077/PassGate/internal/http/util"
	"github.com/yinan077/PassGate/internal/http/view"
	infraProm "github.com/yinan077/PassGate/internal/infra/prometheus"
	"go.uber.org/zap"
)

// GrantHeader carries the minted grant token on gate redirects.
const GrantHeader = "X-PassGate-Grant"

// GateDeps groups dependencies required by the access gate handlers.
type GateDeps struct {
	Logger    *zap.Logger
	Visitors  service.VisitorService
	Known     *service.KnownPasses
	Signer    *httpUtil.GrantSigner
	Publisher *service.VisitPublisher
}

// GateHandler implements the access gate: pass validation, visit counting
// and the grant-token handshake.
type GateHandler struct {
	logger    *zap.Logger
	visitors  service.VisitorService
	known     *service.KnownPasses
	signer    *httpUtil.GrantSigner
	publisher *service.VisitPublisher
}

// NewGateHandler creates a gate handler with the provided dependencies.
func NewGateHandler(deps GateDeps) *GateHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateHandler{
		logger:    logger,
		visitors:  deps.Visitors,
		known:     deps.Known,
		signer:    deps.Signer,
		publisher: deps.Publisher,
	}
}

// Register wires gate routes onto the provided router.
func (h *GateHandler) Register(router fiber.Router) {
	router.Get("/pass/:vuid", h.Enter)
	router.Get("/pass/:vuid/grant/:token", h.VerifyGrant)
}

// EnterResponse is returned when the gate is called without a next URL.
type EnterResponse struct {
	UUID        string     `json:"uuid"`
	Grant       string     `json:"grant"`
	ExpiresAt   *time.Time `json:"expires_at"`
	VisitsCount int        `json:"visits_count"`
}

// Enter handles GET /pass/:vuid. It validates the pass, counts the visit,
// publishes a visit event and either redirects to the tokenised next URL or
// returns the grant as JSON.
func (h *GateHandler) Enter(c *fiber.Ctx) error {
	start := time.Now()
	defer func() { infraProm.GateDuration.Observe(time.Since(start).Seconds()) }()

	vuid := c.Params("vuid")
	if vuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing pass identifier",
		})
	}

	// Definite bloom misses never belong to an issued pass, so skip the lookup.
	if h.known != nil && !h.known.MightContain(vuid) {
		infraProm.GateRequests.WithLabelValues(infraProm.OutcomeUnknown).Inc()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "pass not found",
		})
	}

	ctx := userContext(c)

	visitor, err := h.visitors.GetVisitor(ctx, vuid)
	if err != nil {
		if errors.Is(err, repository.ErrVisitorNotFound) {
			infraProm.GateRequests.WithLabelValues(infraProm.OutcomeUnknown).Inc()
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "pass not found",
			})
		}
		infraProm.GateRequests.WithLabelValues(infraProm.OutcomeError).Inc()
		h.logger.Error("failed to load pass", zap.Error(err), zap.String("vuid", vuid))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if err := visitor.Validate(); err != nil {
		infraProm.GateRequests.WithLabelValues(infraProm.OutcomeDenied).Inc()
		return h.renderDenied(c, visitor)
	}

	// Count the visit before handing out access so capped passes cannot be
	// replayed past their ceiling without it showing up in the counter.
	visitor, err = h.visitors.AddVisit(ctx, vuid)
	if err != nil {
		infraProm.GateRequests.WithLabelValues(infraProm.OutcomeError).Inc()
		h.logger.Error("failed to record visit", zap.Error(err), zap.String("vuid", vuid))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if h.publisher != nil {
		go h.publishVisit(vuid, c.IP(), c.Get("User-Agent"))
	}

	grant, err := h.signer.Issue(vuid)
	if err != nil {
		infraProm.GateRequests.WithLabelValues(infraProm.OutcomeError).Inc()
		h.logger.Error("failed to issue grant token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to issue grant",
		})
	}

	infraProm.GateRequests.WithLabelValues(infraProm.OutcomeGranted).Inc()

	if next := c.Query("next"); next != "" {
		c.Set(GrantHeader, grant)
		h.logger.Debug("pass granted, redirecting",
			zap.String("vuid", vuid), zap.String("next", next))
		return c.Redirect(visitor.Tokenise(next), fiber.StatusFound)
	}

	return c.JSON(EnterResponse{
		UUID:        visitor.UUID,
		Grant:       grant,
		ExpiresAt:   visitor.ExpiresAt,
		VisitsCount: visitor.VisitsCount,
	})
}

// VerifyGrant handles GET /pass/:vuid/grant/:token so downstream services can
// confirm a grant the gate minted.
func (h *GateHandler) VerifyGrant(c *fiber.Ctx) error {
	vuid := c.Params("vuid")
	token := c.Params("token")
	if vuid == "" || token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing pass identifier or token",
		})
	}

	if err := h.signer.Validate(vuid, token); err != nil {
		if errors.Is(err, httpUtil.ErrInvalidGrant) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"valid": false,
				"error": err.Error(),
			})
		}
		h.logger.Error("failed to validate grant token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to validate grant",
		})
	}

	return c.JSON(fiber.Map{"valid": true})
}

func (h *GateHandler) renderDenied(c *fiber.Ctx, visitor *model.Visitor) error {
	reason := "The pass is no longer valid."
	switch {
	case !visitor.IsActive:
		reason = "The pass has been deactivated."
	case visitor.HasExpired():
		reason = "The pass has expired."
	case visitor.HasExceededMaximumVisits():
		reason = "The pass has used up all of its visits."
	}

	html, err := view.RenderDeniedPage(view.DeniedPageData{
		Reason: reason,
		Email:  visitor.Email,
	})
	if err != nil {
		h.logger.Error("failed to render denial page", zap.Error(err))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": reason,
		})
	}

	return c.Status(fiber.StatusForbidden).
		Type("html", "utf-8").
		SendString(html)
}

func (h *GateHandler) publishVisit(vuid, ip, userAgent string) {
	if err := h.publisher.Publish(vuid, ip, userAgent); err != nil {
		h.logger.Error("failed to publish visit event", zap.Error(err), zap.String("vuid", vuid))
		return
	}
	infraProm.VisitsPublished.Inc()
}
