package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/llm"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/infrastructure/ml"
	"NewsAggregator/internal/infrastructure/parser"
	"NewsAggregator/internal/infrastructure/scheduler"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/infrastructure/web"
	"NewsAggregator/internal/logging"
	"NewsAggregator/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	articles  *storage.ArticleRepository
	sources   *storage.SourceRepository
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *web.Server
}

// New builds the application graph. Nothing touches disk or network until Run or FetchOnce.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	m := metrics.New()
	storeOpts := func(component string) storage.Options {
		return storage.Options{
			Debounce: cfg.Storage.WriteDebounce,
			Logger:   baseLogger.With("component", component),
			Metrics:  m,
		}
	}

	articles := storage.NewArticleRepository(cfg.Storage.ArticlesPath(), storeOpts("storage.articles"))
	sources := storage.NewSourceRepository(cfg.Storage.SourcesPath(), defaultSources(cfg.DefaultSources), storeOpts("storage.sources"))

	fetcher := parser.NewRSSFetcher(parser.FetcherDeps{
		Timeout:   cfg.Fetch.FeedTimeout,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    baseLogger.With("component", "parser.rss"),
		Metrics:   m,
	})
	aggregator := parser.NewFeedAggregator(fetcher, baseLogger.With("component", "aggregator"))

	generator, err := llm.New(ctx, cfg.AI)
	switch {
	case err != nil:
		baseLogger.Error("ai provider unavailable, enrichment disabled", "provider", cfg.AI.Provider, "error", err)
		generator = nil
	case generator == nil:
		baseLogger.Warn("no ai credentials configured, articles will not be classified or scored")
	}
	enricher := ml.NewEnricher(ml.Deps{
		Generator:         generator,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Timeout:           cfg.AI.Timeout,
		Logger:            baseLogger.With("component", "ml.enricher"),
		Metrics:           m,
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:       sources,
		Articles:      articles,
		Candidates:    aggregator,
		Enricher:      enricher,
		MaxCandidates: cfg.Fetch.MaxCandidates,
		Logger:        baseLogger.With("component", "pipeline"),
		Metrics:       m,
	})

	var sched *usecase.Scheduler
	if cfg.Fetch.Interval > 0 {
		sched = usecase.NewScheduler(
			scheduler.NewIntervalScheduler(cfg.Fetch.Interval),
			pipeline,
			baseLogger.With("component", "scheduler"),
		)
	}

	server := web.NewServer(web.Deps{
		Address:  cfg.Server.Address,
		Articles: usecase.NewArticleService(articles, fetcher.CleanText),
		Sources:  usecase.NewSourceService(sources),
		Fetch:    pipeline,
		Metrics:  m,
		Logger:   baseLogger.With("component", "http"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		articles:  articles,
		sources:   sources,
		pipeline:  pipeline,
		scheduler: sched,
		server:    server,
	}
}

func defaultSources(cfg []config.SourceConfig) []domain.Source {
	out := make([]domain.Source, 0, len(cfg))
	for _, s := range cfg {
		out = append(out, domain.Source{Name: s.Name, URL: s.URL})
	}
	return out
}

// prepare creates the data directory and loads both repositories.
func (a *Application) prepare(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", a.cfg.Storage.DataDir, err)
	}
	if err := a.sources.Initialize(ctx); err != nil {
		return fmt.Errorf("init sources: %w", err)
	}
	if err := a.articles.Initialize(ctx); err != nil {
		return fmt.Errorf("init articles: %w", err)
	}
	return nil
}

// Run loads state, performs the startup fetch and serves HTTP until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.prepare(ctx); err != nil {
		return err
	}

	if a.cfg.Fetch.RunOnStartup() {
		a.logger.Info("performing initial fetch")
		if _, err := a.pipeline.RunCycle(ctx); err != nil {
			a.logger.Error("initial fetch failed", "error", err)
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			a.closeStores()
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("periodic fetch enabled", "interval", a.cfg.Fetch.Interval)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// FetchOnce runs a single cycle and flushes both stores.
func (a *Application) FetchOnce(ctx context.Context) (usecase.Report, error) {
	if err := a.prepare(ctx); err != nil {
		return usecase.Report{}, err
	}

	report, err := a.pipeline.RunCycle(ctx)
	return report, errors.Join(err, a.closeStores())
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	errs = append(errs, a.closeStores())
	return errors.Join(errs...)
}

func (a *Application) closeStores() error {
	return errors.Join(a.articles.Close(), a.sources.Close())
}
