package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/services/cache"
	"sjsage522/goldpriceworker/services/metrics"
	"sjsage522/goldpriceworker/services/publisher"
	"sjsage522/goldpriceworker/services/store"
)

// SnapshotSource produces the best snapshot it can get for a weight class
type SnapshotSource interface {
	FetchBestSnapshot(ctx context.Context, weight gold.WeightClass) *gold.Snapshot
}

// Worker runs the scrape, merge and persist pipeline
type Worker struct {
	ctx             context.Context
	source          SnapshotSource
	store           store.Store
	cache           *cache.SeriesCache
	publisher       publisher.Publisher
	metrics         metrics.Recorder
	refreshInterval time.Duration

	// serialises every read-modify-write of the tables
	mu sync.Mutex
}

// NewWorker creates a new worker. pub may be nil when no stream is configured.
func NewWorker(
	ctx context.Context,
	source SnapshotSource,
	st store.Store,
	seriesCache *cache.SeriesCache,
	pub publisher.Publisher,
	rec metrics.Recorder,
	refreshInterval time.Duration,
) *Worker {
	if seriesCache == nil {
		seriesCache = cache.NewSeriesCache()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Worker{
		ctx:             ctx,
		source:          source,
		store:           st,
		cache:           seriesCache,
		publisher:       pub,
		metrics:         rec,
		refreshInterval: refreshInterval,
	}
}

// Start refreshes every weight class each refresh interval until the worker's
// context is cancelled. It returns immediately when the interval is zero.
func (w *Worker) Start() error {
	log := logger.ForWorker()
	if w.refreshInterval <= 0 {
		log.Info().Msg("Periodic refresh disabled")
		return nil
	}

	for {
		select {
		case <-w.ctx.Done():
			log.Info().Msg("Periodic refresh stopped")
			return nil
		case <-time.After(w.refreshInterval):
		}

		start := time.Now()
		if err := w.RefreshAll(w.ctx); err != nil {
			log.Error().Err(err).Msg("Periodic refresh failed")
		}
		log.Info().Dur("elapsed", time.Since(start)).Msg("Periodic refresh finished")
	}
}

// RefreshAll runs an admissible refresh of every weight class concurrently,
// waits for all of them and then trims the event streams
func (w *Worker) RefreshAll(ctx context.Context) error {
	log := logger.ForWorker()
	log.Info().Msg("Updating data for all weights")

	errs := make([]error, len(gold.Weights))
	var wg sync.WaitGroup
	for i, weight := range gold.Weights {
		wg.Add(1)
		go func(i int, weight gold.WeightClass) {
			defer wg.Done()
			if _, err := w.Refresh(ctx, weight, false); err != nil {
				errs[i] = fmt.Errorf("refresh %sg: %w", weight, err)
			}
		}(i, weight)
	}
	wg.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			logger.LogError("publisher", err, "Stream trimming failed")
		}
	}

	log.Info().Msg("All data updates completed")
	return errors.Join(errs...)
}

// Refresh scrapes one weight class and merges the result into its table.
//
// An admissible refresh (force false) appends only complete snapshots and
// never fails: on any error it logs and returns the last known-good series.
// A forced refresh appends whatever was scraped and returns its errors.
func (w *Worker) Refresh(ctx context.Context, weight gold.WeightClass, force bool) (series gold.Series, err error) {
	log := logger.ForWorker().WithField("weight", string(weight))
	start := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	defer func() {
		w.metrics.ObserveRefreshDuration(string(weight), time.Since(start))

		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panic: %v", r)
		}
		if err != nil && !force {
			log.Error().Err(err).Msg("Refresh failed, serving last known-good data")
			series, err = w.lastKnownGood(weight), nil
		}
	}()

	log.Info().Bool("force", force).Msg("Refreshing gold prices")

	existing, err := w.load(weight)
	if err != nil {
		return nil, err
	}

	snap := w.source.FetchBestSnapshot(ctx, weight)
	if snap == nil {
		return nil, fmt.Errorf("no snapshot produced for %sg", weight)
	}

	if force {
		series = gold.ForceMerge(existing, snap)
	} else {
		var appended bool
		series, appended = gold.Merge(existing, snap)
		if !appended {
			missing := make([]string, 0, len(gold.Vendors))
			for _, v := range snap.MissingSell() {
				missing = append(missing, v.Name())
			}
			log.Warn().
				Int("score", snap.Score()).
				Strs("missing_vendors", missing).
				Msg("Incomplete data, no row appended")
			w.metrics.IncSkippedSaves(string(weight))
			w.cache.Set(weight, existing)
			return existing, nil
		}
	}

	row := series[len(series)-1]
	if werr := w.store.WriteAll(weight, series); werr != nil {
		if force {
			return nil, werr
		}
		logger.LogError("store", werr, "Saving %sg table failed", weight)
	} else {
		logSavedRow(log, row, force)
	}

	w.metrics.IncRowsAppended(string(weight), force)
	w.metrics.SetSeriesRows(string(weight), len(series))
	w.cache.Set(weight, series)
	w.publish(weight, row, force)

	return series, nil
}

// ChartData projects the weight's series for the dashboard
func (w *Worker) ChartData(weight gold.WeightClass) gold.ChartData {
	if series, ok := w.cache.Get(weight); ok {
		return gold.Project(weight, series)
	}

	series, err := w.store.ReadAll(weight)
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		return gold.EmptyChart(weight, fmt.Sprintf("Data for %s gram is not available yet.", weight))
	case err != nil:
		logger.LogError("store", err, "Reading %sg table failed", weight)
		return gold.EmptyChart(weight, fmt.Sprintf("Error reading data: %v", err))
	}

	w.cache.Set(weight, series)
	return gold.Project(weight, series)
}

// load reads the weight's table; a table that does not exist yet is empty
func (w *Worker) load(weight gold.WeightClass) (gold.Series, error) {
	series, err := w.store.ReadAll(weight)
	if errors.Is(err, store.ErrTableNotFound) {
		return gold.Series{}, nil
	}
	return series, err
}

// lastKnownGood returns the cached series, falling back to the stored table
func (w *Worker) lastKnownGood(weight gold.WeightClass) gold.Series {
	if series, ok := w.cache.Get(weight); ok {
		return series
	}
	series, err := w.load(weight)
	if err != nil {
		logger.LogError("store", err, "Reading %sg table failed", weight)
		return gold.Series{}
	}
	return series
}

func (w *Worker) publish(weight gold.WeightClass, row gold.Row, force bool) {
	if w.publisher == nil {
		return
	}

	data, err := publisher.NewRowEvent(weight, row, force).Marshal()
	if err != nil {
		logger.LogError("publisher", err, "Encoding %sg row failed", weight)
		return
	}
	if err := w.publisher.Publish(string(weight), data); err != nil {
		logger.LogError("publisher", err, "Publishing %sg row failed", weight)
	}
}

func logSavedRow(log *logger.Logger, row gold.Row, force bool) {
	event := log.Info().
		Bool("forced", force).
		Str("date", row.Date).
		Str("time", row.Time)
	for _, v := range gold.Vendors {
		event = event.
			Interface(v.ColumnPrefix()+"_Sell", row.Sell[v]).
			Interface(v.ColumnPrefix()+"_Buyback", row.Buyback[v])
	}
	event.Msg("Row saved")
}
