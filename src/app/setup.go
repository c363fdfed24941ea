// Package app assembles the pipeline from configuration. Both binaries under
// cmd/ start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"product-filter/src/analysis"
	"product-filter/src/cache"
	"product-filter/src/config"
	datasource "product-filter/src/data_source"
	"product-filter/src/grouping"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/network"
	"product-filter/src/normalizer"
	"product-filter/src/pipeline"
	"product-filter/src/storage"
	"product-filter/src/validation"
	"product-filter/src/validation/classifier"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Registry

	Store      interfaces.IProductStore
	Cache      *cache.PriceCache
	Sources    []*datasource.GRPCSourceClient
	Aggregator *datasource.Aggregator
	Registry   *validation.Registry
	Engine     *validation.Engine
	Detector   *analysis.AnomalyDetector
	Trends     *analysis.TrendAnalyzer
	Prices     *pipeline.PriceUpdater

	Orchestrator *pipeline.Orchestrator
	deps         pipeline.Dependencies
}

// -----------------------------------------------------------------------------

// Setup builds every component. On error, whatever was opened is closed.
func Setup(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, Metrics: metrics.NewRegistry()}
	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg, log := a.Config, a.Logger
	var err error

	if a.Store, err = setupDatabase(cfg, log); err != nil {
		return err
	}
	if err := seedRecommendedPrices(context.Background(), cfg, a.Store, log); err != nil {
		return err
	}
	if cfg.Cache.Enabled {
		a.Cache = cache.NewPriceCache(cfg.Cache, a.Metrics, log.Named("PriceCache"))
	}
	if a.Sources, err = setupSources(cfg, log); err != nil {
		return err
	}
	clients := make([]interfaces.ISourceClient, len(a.Sources))
	for i, s := range a.Sources {
		clients[i] = s
	}
	a.Aggregator = datasource.NewAggregator(clients, cfg, cfg.Network, a.Metrics, log.Named("Aggregator"))

	if a.Registry, err = setupRegistry(cfg, log); err != nil {
		return err
	}
	a.Engine = validation.NewEngine(a.Registry, setupClassifier(cfg, log), a.Metrics, log.Named("Validation"))

	a.Detector = analysis.NewAnomalyDetector(cfg.Anomaly, log.Named("Anomaly"))
	a.Trends = analysis.NewTrendAnalyzer(a.Store, log.Named("Trend"))
	if cfg.PriceUpdate.WindowDays > 0 {
		a.Trends.WindowDays = cfg.PriceUpdate.WindowDays
	}
	a.Prices = pipeline.NewPriceUpdater(a.Store, a.Trends, cfg, a.Metrics, log.Named("PriceUpdate"))

	a.deps = pipeline.Dependencies{
		Fetcher:    a.Aggregator,
		Engine:     a.Engine,
		Registry:   a.Registry,
		Detector:   a.Detector,
		Grouper:    grouping.NewGrouper(a.Detector, a.Registry, a.Metrics, log.Named("Grouper")),
		Normalizer: normalizer.NewNormalizer(),
		Store:      a.Store,
		Metrics:    a.Metrics,
		Settings:   cfg.Pipeline,
		Logger:     log.Named("Pipeline"),
	}
	if a.Cache != nil {
		a.deps.Cache = a.Cache
	}
	a.Orchestrator = pipeline.NewOrchestrator(a.deps)
	return nil
}

// AttachExchanger rebuilds the orchestrator so every search is pushed to ex.
func (a *App) AttachExchanger(ex interfaces.IDataExchanger) {
	a.deps.Exchanger = ex
	a.Orchestrator = pipeline.NewOrchestrator(a.deps)
}

// Close releases storage, cache and source connections.
func (a *App) Close() error {
	var errs []error
	for _, s := range a.Sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %s: %w", s.Name(), err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------

// setupDatabase opens and migrates the configured store.
func setupDatabase(cfg *config.Config, log *logger.Logger) (interfaces.IProductStore, error) {
	var db interfaces.IProductStore
	var err error

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresStore(cfg.MConfig, log.Named("PostgresDB"))
	default:
		db, err = storage.NewSQLiteStore(cfg.MConfig, log.Named("SQLiteDB"))
	}
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// seedRecommendedPrices stores the configured starting prices of queries that
// have none yet. Stored prices are left as the price updater moved them.
func seedRecommendedPrices(ctx context.Context, cfg *config.Config, store interfaces.IProductStore, log *logger.Logger) error {
	seeded := 0
	for _, category := range cfg.Categories() {
		for query, price := range cfg.RecommendedPrices(category) {
			_, ok, err := store.GetRecommendedPrice(ctx, category, query)
			if err != nil {
				return fmt.Errorf("seed recommended prices: %w", err)
			}
			if ok {
				continue
			}
			if err := store.UpdateRecommendedPrice(ctx, category, query, price); err != nil {
				return fmt.Errorf("seed recommended prices: %w", err)
			}
			seeded++
		}
	}
	if seeded > 0 {
		log.Info("Seeded %d recommended prices from config", seeded)
	}
	return nil
}

// -----------------------------------------------------------------------------

// setupSources connects one gRPC client per configured marketplace.
func setupSources(cfg *config.Config, log *logger.Logger) ([]*datasource.GRPCSourceClient, error) {
	var sources []*datasource.GRPCSourceClient
	for _, srcCfg := range cfg.Sources {
		c, err := datasource.NewGRPCSourceClient(srcCfg, log.Named("Source."+srcCfg.Name))
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return nil, err
		}
		log.Info("Added source %s at %s", srcCfg.Name, srcCfg.Address)
		sources = append(sources, c)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid data sources")
	}
	return sources, nil
}

// -----------------------------------------------------------------------------

// setupRegistry loads the built-in rule sets plus the optional overrides file.
func setupRegistry(cfg *config.Config, log *logger.Logger) (*validation.Registry, error) {
	registry := validation.NewRegistry()
	for _, key := range cfg.Categories() {
		if _, ok := registry.Lookup(key); !ok {
			log.Warning("Category %s has no validation rules; its searches will be rejected", key)
		}
	}
	if cfg.RulesOverridePath == "" {
		return registry, nil
	}

	overrides, err := validation.LoadOverrides(cfg.RulesOverridePath)
	if err != nil {
		return nil, err
	}
	if err := registry.ApplyOverrides(overrides); err != nil {
		return nil, err
	}
	log.Info("Applied rule overrides from %s", cfg.RulesOverridePath)
	return registry, nil
}

// -----------------------------------------------------------------------------

// setupClassifier returns nil when the classifier is disabled or has no key.
func setupClassifier(cfg *config.Config, log *logger.Logger) interfaces.IExternalClassifier {
	if !cfg.Classifier.Enabled {
		log.Info("Classifier disabled; inconclusive listings will be rejected")
		return nil
	}
	if cfg.Classifier.APIKey == "" {
		log.Warning("Classifier enabled but no API key set; inconclusive listings will be rejected")
		return nil
	}
	nm := network.NewNetworkManager(cfg.MConfig, log.Named("NetworkManager"))
	return classifier.NewOpenAIClassifier(cfg.Classifier, nm, log.Named("Classifier"))
}
