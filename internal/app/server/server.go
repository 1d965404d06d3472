package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/yinan077/PassGate/internal/app/repository"
	"github.com/yinan077/PassGate/internal/app/service"
	inthttp "github.com/yinan077/PassGate/internal/http/handler"
	"github.com/yinan077/PassGate/internal/http/middleware"
	httpUtil "github.com/yinan077/PassGate/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext
	Visitors  service.VisitorService
	Events    repository.VisitEventRepository
	Known     *service.KnownPasses
	Publisher *service.VisitPublisher

	GrantSecret        []byte
	GrantTTL           time.Duration
	RateLimitPerMinute int
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	// Only the public gate is rate limited; the management API sits behind
	// the deployment's own perimeter.
	if s.deps.Redis != nil && s.deps.RateLimitPerMinute > 0 {
		s.app.Use("/pass", middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
			MaxRequests: s.deps.RateLimitPerMinute,
			Window:      time.Minute,
			KeyPrefix:   "ratelimit:gate",
		}, s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.Health)
	s.app.Get("/health", s.Health)

	gateHandler := inthttp.NewGateHandler(inthttp.GateDeps{
		Logger:    s.deps.Logger,
		Visitors:  s.deps.Visitors,
		Known:     s.deps.Known,
		Signer:    httpUtil.NewGrantSigner(s.deps.GrantSecret, s.deps.GrantTTL),
		Publisher: s.deps.Publisher,
	})
	gateHandler.Register(s.app)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:   s.deps.Logger,
		Visitors: s.deps.Visitors,
		Events:   s.deps.Events,
		Known:    s.deps.Known,
	})
	apiHandler.Register(s.app)
}

// Health reports service liveness and database reachability.
func (s *Server) Health(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"

	if s.deps.Postgres != nil {
		parent := c.UserContext()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, 2*time.Second)
		defer cancel()
		if err := s.deps.Postgres.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		}
	}

	return c.JSON(fiber.Map{
		"service":  "PassGate",
		"status":   status,
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
