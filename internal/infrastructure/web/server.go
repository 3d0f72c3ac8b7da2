package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/usecase"
)

// ArticleService is the article use case consumed by the handlers.
type ArticleService interface {
	Add(ctx context.Context, in usecase.AddArticleInput) (domain.Article, error)
	List(ctx context.Context, page, pageSize int) (usecase.Page, error)
	Get(ctx context.Context, id string) (domain.Article, error)
	Delete(ctx context.Context, id string) error
}

// SourceService is the source use case consumed by the handlers.
type SourceService interface {
	List(ctx context.Context) ([]domain.Source, error)
	Add(ctx context.Context, name, url string) (domain.Source, error)
	Delete(ctx context.Context, id string) error
}

// FetchTrigger starts a fetch cycle on demand.
type FetchTrigger interface {
	TryRunCycle(ctx context.Context) (usecase.Report, error)
}

// Deps wires the HTTP surface.
type Deps struct {
	Address  string
	Articles ArticleService
	Sources  SourceService
	Fetch    FetchTrigger
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Server exposes the JSON API over echo.
type Server struct {
	echo    *echo.Echo
	address string
	logger  *slog.Logger
}

// NewServer registers middleware and routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	h := &handlers{
		articles: deps.Articles,
		sources:  deps.Sources,
		fetch:    deps.Fetch,
		logger:   logger,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	api := e.Group("/api")
	api.GET("/articles", h.listArticles)
	api.POST("/articles", h.addArticle)
	api.GET("/articles/:id", h.getArticle)
	api.DELETE("/articles/:id", h.deleteArticle)
	api.GET("/sources", h.listSources)
	api.POST("/sources", h.addSource)
	api.DELETE("/sources/:id", h.deleteSource)
	api.POST("/fetch", h.triggerFetch)

	return &Server{echo: e, address: deps.Address, logger: logger}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "address", s.address)
	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
