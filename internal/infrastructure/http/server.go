package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/shop-settlement/internal/adapter/handler/http"
	"github.com/wekeepgrowing/shop-settlement/internal/config"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/auth"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/metrics"
	"github.com/wekeepgrowing/shop-settlement/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Dependencies are the usecases the HTTP routes call into.
type Dependencies struct {
	Initiator handlers.PaymentInitiator
	Verifier  handlers.CallbackVerifier
	Carts     handlers.CartService
	// Ping reports database health for /health. Optional.
	Ping func(ctx context.Context) error
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	s := &Server{
		config: cfg,
		logger: logger,
		echo:   e,
		deps:   deps,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) setupMiddleware() {
	logger.WithEchoLogger(s.echo, s.logger)

	s.echo.Use(middleware.RequestID())
	s.echo.Use(logger.NewEchoRequestLogger(s.logger))
	s.echo.Use(metrics.Middleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.config.Service.ClientURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(s.echo, s.config.Service.Name),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(c.Request().Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": s.config.Service.Name,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.config.Service.Name,
	})
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", metrics.Handler())

	paymentHandler := handlers.NewPaymentHandler(s.deps.Initiator, s.logger)
	callbackHandler := handlers.NewCallbackHandler(
		s.deps.Verifier,
		s.config.Flutterwave.WebhookHash,
		s.config.Stripe.WebhookSecret,
		s.logger,
	)
	cartHandler := handlers.NewCartHandler(s.deps.Carts, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	v1 := s.echo.Group("/api/v1")

	// Cart routes are addressed by the client generated cart code
	v1.POST("/cart/items", cartHandler.AddItem)
	v1.GET("/cart", cartHandler.GetCart)

	// Provider redirects land here; the payer carries no token
	callbackMethods := []string{http.MethodGet, http.MethodPost}
	v1.Match(callbackMethods, "/payments/callback", callbackHandler.FlutterwaveCallback)
	v1.Match(callbackMethods, "/payments/paypal/callback", callbackHandler.PayPalCallback)
	v1.Match(callbackMethods, "/payments/stripe/callback", callbackHandler.StripeCallback)

	// Server to server notifications
	v1.POST("/payments/webhook/flutterwave", callbackHandler.FlutterwaveWebhook)
	v1.POST("/payments/webhook/stripe", callbackHandler.StripeWebhook)

	v1.POST("/payments/initiate", paymentHandler.InitiatePayment, auth.JWTMiddleware(jwtConfig))
}
