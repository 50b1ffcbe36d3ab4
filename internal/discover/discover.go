// Package discover orchestrates catalog discovery runs. A run executes
// every strategy against one provider under a shared deadline, merges the
// results with first-seen priority, and persists them idempotently.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/econgraph/econcrawl/internal/classify"
	"github.com/econgraph/econcrawl/internal/config"
	"github.com/econgraph/econcrawl/internal/database"
	"github.com/econgraph/econcrawl/internal/fetch"
	"github.com/econgraph/econcrawl/internal/normalize"
	"github.com/econgraph/econcrawl/internal/provider"
)

// Runner executes discovery runs against configured providers.
type Runner struct {
	cfg *config.Config
	db  *database.DB
	log *slog.Logger

	// fetchOpts are appended to every run's client, mainly for tests.
	fetchOpts []fetch.Option
}

// NewRunner creates a Runner. log may be nil.
func NewRunner(cfg *config.Config, db *database.DB, log *slog.Logger, fetchOpts ...fetch.Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, db: db, log: log, fetchOpts: fetchOpts}
}

// Run executes one discovery run against p. extraIDs are additional
// candidate indicator IDs for the direct-lookup strategy. Strategy failures
// and the run deadline never abort the run: completed strategies' results
// are persisted and the run row records what went wrong. Run itself only
// errors on storage problems.
func (r *Runner) Run(ctx context.Context, p provider.Provider, extraIDs []string) (*database.DiscoveryRun, error) {
	session := &Session{}

	opts := append([]fetch.Option{fetch.WithRequestHook(session.CountRequest)}, r.fetchOpts...)
	client := fetch.NewClient(p.Key(), r.cfg.MinDelay(), r.cfg.Crawl.MaxAttempts, r.log, opts...)

	sc := &Context{
		Provider:          p,
		Client:            client,
		Normalizer:        normalize.New(r.log, session.CountDrop),
		Classifier:        classify.New(p.IDPrefixes()),
		Session:           session,
		Log:               r.log.With("source", p.Key()),
		MaxSweepPages:     r.cfg.Crawl.MaxSweepPages,
		ExtraIndicatorIDs: extraIDs,
	}

	runID, err := r.db.InsertRun(p.Key())
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}
	startedAt := time.Now().UTC()

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout())
	defer cancel()

	strategies := Strategies()
	results := make([][]classify.Indicator, len(strategies))
	outcomes := make([]StrategyOutcome, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			found, err := s.Run(runCtx, sc)
			results[i] = found
			outcomes[i] = StrategyOutcome{Name: s.Name, Found: len(found), Err: err}
			if err != nil {
				session.countStrategyFailure()
				sc.Log.Error("strategy failed", "strategy", s.Name, "error", err)
			}
		}(i, s)
	}
	wg.Wait()

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		sc.Log.Warn("run deadline reached, persisting partial results")
	}

	merged := Merge(results, session)

	src, err := r.db.GetOrCreateSource(p.Name(), p.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("resolving data source: %w", err)
	}

	for _, ind := range merged {
		outcome, err := r.db.UpsertSeries(seriesFromIndicator(src.ID, ind))
		if err != nil {
			session.countFailedUpsert()
			sc.Log.Warn("upsert failed", "id", ind.ExternalID, "error", err)
			continue
		}
		if outcome == database.OutcomeCreated {
			session.countCreated()
		} else {
			session.countUpdated()
		}
	}

	run := &database.DiscoveryRun{
		ID:               runID,
		SourceName:       p.Key(),
		StartedAt:        startedAt,
		TimedOut:         timedOut,
		Requests:         session.Requests(),
		Classified:       session.Classified(),
		Dropped:          session.Dropped(),
		Duplicates:       session.Duplicates(),
		Created:          session.Created(),
		Updated:          session.Updated(),
		FailedUpserts:    session.FailedUpserts(),
		StrategyFailures: session.StrategyFailures(),
	}
	report := buildReport(p.Name(), run, outcomes)
	run.ReportMarkdown = &report

	if err := r.db.FinishRun(run); err != nil {
		return nil, fmt.Errorf("recording run finish: %w", err)
	}

	sc.Log.Info("discovery run finished",
		"run", run.ID,
		"requests", run.Requests,
		"created", run.Created,
		"updated", run.Updated,
		"timed_out", run.TimedOut)

	return run, nil
}

func seriesFromIndicator(sourceID int64, ind classify.Indicator) *database.Series {
	freq := string(ind.Frequency)
	if freq == "" {
		freq = string(normalize.FreqUnknown)
	}
	return &database.Series{
		SourceID:       sourceID,
		ExternalID:     ind.ExternalID,
		Title:          ind.Name,
		Description:    optional(ind.Description),
		Unit:           optional(ind.Unit),
		Frequency:      freq,
		GeographyScope: optional(ind.GeographyScope),
		TopicHint:      optional(ind.TopicHint),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
