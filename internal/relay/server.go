// Package relay is the delegated upload service. Clients hand it files too
// large for a reliable direct-to-storage upload; it authenticates the
// caller, streams the object into storage and returns the durable URL.
package relay

import (
	"context"
	"log"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"worklink/internal/config"
	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/upload"
)

// Server holds the relay's dependencies and handlers.
type Server struct {
	config         *config.Config
	redis          *redis.Client
	storage        platform.ObjectStorage
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
}

// NewServer creates a relay server with its own storage and Redis clients.
func NewServer(cfg *config.Config) (*Server, error) {
	storage, err := platform.NewS3Storage(platform.S3Config{
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Endpoint:  cfg.StorageEndpoint,
	})
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	}

	srv := NewServerWithDeps(cfg, storage, rdb)
	srv.promMiddleware = fiberprometheus.New("worklink-relay")
	return srv, nil
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies and no metrics middleware. Use this in tests; the
// Prometheus collectors register globally and cannot be created twice.
func NewServerWithDeps(cfg *config.Config, storage platform.ObjectStorage, rdb *redis.Client) *Server {
	return &Server{
		config:  cfg,
		redis:   rdb,
		storage: storage,
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	// CORS before the limiter so browser clients still receive CORS headers
	// on throttled responses.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global per-IP ceiling; the upload route has a tighter per-user limit
	// on top of this.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all relay routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Post("/upload",
		s.AuthRequired(),
		s.RateLimit(20, 10*time.Minute, "delegated_upload"),
		s.HandleUpload,
	)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Storage is not probed
// per request; a broken bucket surfaces on the first upload instead.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// Start runs the relay until the listener fails.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Worklink Upload Relay",
		// Multipart overhead on top of the hard file ceiling.
		BodyLimit: upload.MaxFileSize + (10 << 20),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Relay starting on port %s...", s.config.RelayPort)
	return app.Listen(":" + s.config.RelayPort)
}

// Shutdown gracefully shuts down the relay.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}
	log.Println("Relay shutdown complete")
	return nil
}
