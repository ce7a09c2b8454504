package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/services/metrics"
)

const allAttemptsFailed = "All attempts failed"

// RetryPolicy calls a Scraper until every vendor has a sell price or the
// attempt budget runs out, keeping the most complete snapshot seen
type RetryPolicy struct {
	scraper     Scraper
	maxAttempts int
	backoff     time.Duration
	metrics     metrics.Recorder

	sleep func(time.Duration)
	now   func() time.Time
}

// NewRetryPolicy creates a policy. Between attempt n and n+1 it sleeps n*backoff.
func NewRetryPolicy(scraper Scraper, maxAttempts int, backoff time.Duration, rec metrics.Recorder) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &RetryPolicy{
		scraper:     scraper,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		metrics:     rec,
		sleep:       time.Sleep,
		now:         func() time.Time { return time.Now().In(gold.Location) },
	}
}

// FetchBestSnapshot returns the first complete snapshot, or else the highest
// scoring one (earliest on ties), stamped with the current WIB time
func (p *RetryPolicy) FetchBestSnapshot(ctx context.Context, weight gold.WeightClass) *gold.Snapshot {
	log := logger.ForScraper(string(weight))

	var best *gold.Snapshot
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		log.Info().Int("attempt", attempt).Int("max_attempts", p.maxAttempts).Msg("Fetching snapshot")

		snap, err := p.attempt(ctx, weight)
		// failed attempts count with a zero score
		score := 0
		if err == nil {
			score = snap.Score()
		}
		p.metrics.ObserveAttempt(string(weight), score)

		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("Attempt failed")
		} else {
			log.Info().
				Int("attempt", attempt).
				Int("score", score).
				Msgf("Data score: %d/%d", score, len(gold.Vendors))

			if best == nil || score > best.Score() {
				best = snap
			}
			if snap.Complete() {
				log.Info().Int("attempt", attempt).Msg("Got complete data")
				break
			}
		}

		if attempt < p.maxAttempts {
			wait := time.Duration(attempt) * p.backoff
			log.Debug().Dur("wait", wait).Msg("Waiting before next attempt")
			p.sleep(wait)
		}
	}

	if best == nil {
		best = gold.FailedSnapshot(weight, allAttemptsFailed)
	}
	best.Weight = weight
	best.Stamp(p.now())

	log.Info().Int("score", best.Score()).Msg("Final snapshot selected")
	return best
}

// attempt runs one scrape, turning panics into errors
func (p *RetryPolicy) attempt(ctx context.Context, weight gold.WeightClass) (snap *gold.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("scraper panic: %v", r)
		}
	}()

	snap, err = p.scraper.Scrape(ctx, weight)
	if err == nil && snap == nil {
		err = fmt.Errorf("scraper returned no snapshot")
	}
	return snap, err
}
