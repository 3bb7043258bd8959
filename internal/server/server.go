package server

import (
	"context"
	"log/slog"
	"net/http"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/handler"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

type Server struct {
	echo              *echo.Echo
	checkoutHandler   *handler.CheckoutHandler
	catalogHandler    *handler.CatalogHandler
	orderHandler      *handler.OrderHandler
	ownerTokens       *middleware.OwnerTokens
	metricsHandler    http.Handler
	checkoutRateLimit float64
}

func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	checkoutService service.CheckoutService,
	reconcileService service.ReconcileService,
	catalogService service.CatalogService,
	ledger service.LedgerService,
	gatherer prometheus.Gatherer,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(requestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:              e,
		checkoutHandler:   handler.NewCheckoutHandler(log, checkoutService, reconcileService, cfg.BaseURL),
		catalogHandler:    handler.NewCatalogHandler(catalogService),
		orderHandler:      handler.NewOrderHandler(ledger),
		ownerTokens:       middleware.NewOwnerTokens(cfg.Owner, cfg.IsProduction()),
		metricsHandler:    metrics.Handler(gatherer),
		checkoutRateLimit: cfg.CheckoutRateLimit,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api.GET("/products", s.catalogHandler.ListProducts)

	owner := middleware.Owner(s.ownerTokens)
	api.GET("/orders", s.orderHandler.ListOrders, owner)
	api.GET("/orders/:id", s.orderHandler.GetOrder, owner)

	// -------- checkout --------
	checkout := api.Group("/checkout")
	checkout.POST("", s.checkoutHandler.CreateCheckout, s.checkoutMiddleware(owner)...)
	checkout.GET("/success", s.checkoutHandler.HandleSuccess)

	// -------- provider callbacks --------
	checkout.POST("/webhook", s.checkoutHandler.Webhook, echomw.BodyLimit("1M"))
}

func (s *Server) checkoutMiddleware(owner echo.MiddlewareFunc) []echo.MiddlewareFunc {
	mws := []echo.MiddlewareFunc{}
	if s.checkoutRateLimit > 0 {
		store := echomw.NewRateLimiterMemoryStore(rate.Limit(s.checkoutRateLimit))
		mws = append(mws, echomw.RateLimiter(store))
	}
	return append(mws, owner)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				log.LogAttrs(context.Background(), slog.LevelError, "request", attrs...)
				return nil
			}
			log.LogAttrs(context.Background(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
