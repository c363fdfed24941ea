package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"product-filter/src/helpers"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const defaultConcurrency = 8

// Aggregator fans a search out to every configured marketplace client and
// merges what comes back.
type Aggregator struct {
	Sources  map[string]interfaces.ISourceClient
	Logger   *logger.Logger
	mu       sync.RWMutex
	order    []string
	limiters map[string]*rate.Limiter

	configs interfaces.IQueryConfigProvider
	policy  helpers.RetryPolicy
	sem     *semaphore.Weighted
	rps     float64
	metrics *metrics.Registry

	newID func() string
	now   func() time.Time
}

// -----------------------------------------------------------------------------

func NewAggregator(sources []interfaces.ISourceClient, configs interfaces.IQueryConfigProvider, netCfg models.MNetworkConfig, m *metrics.Registry, log *logger.Logger) *Aggregator {
	concurrency := netCfg.ConcurrentRequests
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	a := &Aggregator{
		Sources:  make(map[string]interfaces.ISourceClient),
		Logger:   log,
		limiters: make(map[string]*rate.Limiter),
		configs:  configs,
		policy:   helpers.DefaultSourcePolicy,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		rps:      netCfg.RatePerSecond,
		metrics:  m,
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}

	for _, s := range sources {
		if err := a.AddSource(s); err != nil {
			log.Warning("Skipping source: %v", err)
		}
	}
	return a
}

// -----------------------------------------------------------------------------

// SetRetryPolicy replaces the per-fetch retry policy.
func (a *Aggregator) SetRetryPolicy(p helpers.RetryPolicy) {
	a.policy = p
}

// -----------------------------------------------------------------------------

// AddSource registers a marketplace client
func (a *Aggregator) AddSource(source interfaces.ISourceClient) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := source.Name()
	if _, exists := a.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	limit := rate.Inf
	if a.rps > 0 {
		limit = rate.Limit(a.rps)
	}
	a.Sources[name] = source
	a.limiters[name] = rate.NewLimiter(limit, 1)
	a.order = append(a.order, name)
	a.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource unregisters a marketplace client
func (a *Aggregator) RemoveSource(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}
	delete(a.Sources, name)
	delete(a.limiters, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
	a.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (a *Aggregator) GetSource(name string) (interfaces.ISourceClient, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	source, exists := a.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns the sources in registration order
func (a *Aggregator) GetAllSources() []interfaces.ISourceClient {
	a.mu.RLock()
	defer a.mu.RUnlock()

	list := make([]interfaces.ISourceClient, 0, len(a.order))
	for _, name := range a.order {
		list = append(list, a.Sources[name])
	}
	return list
}

// -----------------------------------------------------------------------------

type fetchJob struct {
	query   string
	source  interfaces.ISourceClient
	limiter *rate.Limiter
	req     models.MSourceRequest
}

type fetchOutcome struct {
	items []models.MRawListing
	err   error
}

// -----------------------------------------------------------------------------

// plan expands queries into one job per configured (query, platform) pair.
// A query without any platform config goes to every registered source.
func (a *Aggregator) plan(queries []string, category string) []fetchJob {
	var configs []models.MQueryConfig
	ids := map[string]string{}
	if a.configs != nil {
		configs = a.configs.GetQueryConfigs(category)
		if got, ok := a.configs.GetCategoryIDs(category); ok {
			ids = got
		}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var jobs []fetchJob
	for _, query := range queries {
		matched := false
		for _, cfg := range configs {
			if !strings.EqualFold(strings.TrimSpace(cfg.Query), strings.TrimSpace(query)) {
				continue
			}
			matched = true
			src, ok := a.Sources[cfg.Platform]
			if !ok {
				a.Logger.Warning("Query %q configured for unknown platform %s", query, cfg.Platform)
				continue
			}
			jobs = append(jobs, fetchJob{
				query:   query,
				source:  src,
				limiter: a.limiters[cfg.Platform],
				req:     models.MSourceRequest{Query: query, Category: category, PlatformID: cfg.PlatformID, ModelFilter: cfg.ModelFilter},
			})
		}
		if matched {
			continue
		}
		for _, name := range a.order {
			jobs = append(jobs, fetchJob{
				query:   query,
				source:  a.Sources[name],
				limiter: a.limiters[name],
				req:     models.MSourceRequest{Query: query, Category: category, PlatformID: ids[name]},
			})
		}
	}
	return jobs
}

// -----------------------------------------------------------------------------

// FetchAll returns the merged listings of every successful fetch.
func (a *Aggregator) FetchAll(ctx context.Context, queries []string, category string) []models.MListing {
	listings, _ := a.FetchAllWithReport(ctx, queries, category)
	return listings
}

// -----------------------------------------------------------------------------

// FetchAllWithReport runs all fetches concurrently. Failed fetches are logged
// and reported, never returned as an error.
func (a *Aggregator) FetchAllWithReport(ctx context.Context, queries []string, category string) ([]models.MListing, models.MFetchReport) {
	jobs := a.plan(queries, category)
	outcomes := make([]fetchOutcome, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job fetchJob) {
			defer wg.Done()
			outcomes[i] = a.run(ctx, job)
		}(i, job)
	}
	wg.Wait()

	report := models.MFetchReport{
		Counts:   make(map[string]map[string]int),
		Failures: make(map[string][]string),
	}
	var listings []models.MListing
	createdAt := a.now()

	for i, job := range jobs {
		name := job.source.Name()
		out := outcomes[i]
		if out.err != nil {
			a.Logger.Warning("Skipping %s for %q: %v", name, job.query, out.err)
			report.Failures[job.query] = append(report.Failures[job.query], name)
			continue
		}
		if report.Counts[job.query] == nil {
			report.Counts[job.query] = make(map[string]int)
		}
		report.Counts[job.query][name] += len(out.items)

		for _, raw := range out.items {
			listings = append(listings, a.tag(raw, name, category, job.query, createdAt))
		}
	}

	a.Logger.Info("Fetched %d listings for %d queries in %s (%d fetches, %d failed)", len(listings), len(queries), category, len(jobs), countFailures(report))
	return listings, report
}

// -----------------------------------------------------------------------------

// run performs one fetch under the concurrency bound, rate limit and retry
// policy.
func (a *Aggregator) run(ctx context.Context, job fetchJob) fetchOutcome {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return fetchOutcome{err: err}
	}
	defer a.sem.Release(1)

	var (
		mu    sync.Mutex
		items []models.MRawListing
	)
	start := time.Now()
	op := fmt.Sprintf("fetch %s %q", job.source.Name(), job.query)

	err := helpers.Retry(ctx, op, a.policy, a.Logger, func(attemptCtx context.Context) error {
		if job.limiter != nil {
			if err := job.limiter.Wait(attemptCtx); err != nil {
				return err
			}
		}
		got, err := job.source.Fetch(attemptCtx, job.req)
		if err != nil {
			return helpers.NewSourceError(job.source.Name(), err)
		}
		if len(got) == 0 {
			return helpers.NewSourceError(job.source.Name()+": empty response", nil)
		}
		mu.Lock()
		items = got
		mu.Unlock()
		return nil
	})
	a.metrics.ObserveFetch(job.source.Name(), err, time.Since(start))
	if err != nil {
		return fetchOutcome{err: err}
	}

	mu.Lock()
	defer mu.Unlock()
	return fetchOutcome{items: items}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) tag(raw models.MRawListing, source, category, query string, createdAt time.Time) models.MListing {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = a.newID()
	}
	return models.MListing{
		ID:         id,
		Name:       raw.Name,
		Price:      raw.Price,
		ImageURL:   raw.ImageURL,
		ProductURL: raw.ProductURL,
		Source:     source,
		Category:   category,
		Query:      query,
		CreatedAt:  createdAt,
	}
}

func countFailures(r models.MFetchReport) int {
	n := 0
	for _, f := range r.Failures {
		n += len(f)
	}
	return n
}
