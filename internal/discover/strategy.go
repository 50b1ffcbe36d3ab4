package discover

import (
	"context"
	"log/slog"
	"slices"

	"github.com/econgraph/econcrawl/internal/classify"
	"github.com/econgraph/econcrawl/internal/fetch"
	"github.com/econgraph/econcrawl/internal/normalize"
	"github.com/econgraph/econcrawl/internal/provider"
)

// Context carries the shared machinery one run's strategies operate on.
// The fetch client is shared so the politeness floor applies across all
// strategies, not per strategy.
type Context struct {
	Provider   provider.Provider
	Client     *fetch.Client
	Normalizer *normalize.Normalizer
	Classifier *classify.Classifier
	Session    *Session
	Log        *slog.Logger

	MaxSweepPages int
	// ExtraIndicatorIDs are candidate IDs from outside the provider's
	// curated list, e.g. spotted in a release announcement feed. The
	// direct-lookup strategy tries them alongside the curated set.
	ExtraIndicatorIDs []string
}

// Strategy is one way of finding series in a provider's catalog. A strategy
// that fails partway still returns what it found, and the run merges it
// alongside the recorded failure. A strategy cut off by the run deadline
// returns nothing: only strategies that finished contribute to the merge.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, sc *Context) ([]classify.Indicator, error)
}

// Strategies returns all strategies in merge-priority order. Curated topic
// results are most trusted, then direct lookups, then geography probes,
// with the broad catalog sweep last.
func Strategies() []Strategy {
	return []Strategy{
		{Name: "topic", Run: runTopics},
		{Name: "direct", Run: runDirectLookups},
		{Name: "country", Run: runCountryProbes},
		{Name: "sweep", Run: runCatalogSweep},
	}
}

// runTopics pulls the indicator list for each curated topic. One failing
// topic does not stop the others; the strategy only fails as a whole when
// no topic produced anything.
func runTopics(ctx context.Context, sc *Context) ([]classify.Indicator, error) {
	var found []classify.Indicator
	var firstErr error
	succeeded := 0

	for _, topic := range sc.Provider.Topics() {
		if ctx.Err() != nil {
			return nil, nil
		}

		raw, err := sc.Client.Get(ctx, sc.Provider.TopicURL(topic))
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			sc.Log.Warn("topic fetch failed", "topic", topic.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		batch, err := sc.Normalizer.Indicators(raw, sc.Provider.Shapes().Topic)
		if err != nil {
			sc.Log.Warn("topic payload unparseable", "topic", topic.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		accepted := sc.Classifier.ClassifyBatch(batch)
		sc.Session.countClassified(len(accepted))
		found = append(found, accepted...)
		succeeded++
	}

	if succeeded == 0 && firstErr != nil {
		return found, firstErr
	}
	return found, nil
}

// runDirectLookups fetches each known key indicator individually. A 404 or
// other client rejection means the indicator does not exist anymore and is
// skipped quietly. An empty 204 response likewise.
func runDirectLookups(ctx context.Context, sc *Context) ([]classify.Indicator, error) {
	ids := sc.Provider.KeyIndicatorIDs()
	for _, id := range sc.ExtraIndicatorIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	var found []classify.Indicator
	var firstErr error
	succeeded := 0

	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, nil
		}

		raw, err := sc.Client.Get(ctx, sc.Provider.IndicatorURL(id))
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			if kind, ok := fetch.ErrorKind(err); ok && kind == fetch.KindBadRequest {
				sc.Log.Debug("indicator not found", "id", id)
				continue
			}
			sc.Log.Warn("indicator lookup failed", "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if raw == nil {
			sc.Log.Debug("indicator lookup returned no content", "id", id)
			continue
		}

		batch, err := sc.Normalizer.Indicators(raw, sc.Provider.Shapes().Lookup)
		if err != nil {
			sc.Log.Warn("indicator payload unparseable", "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		accepted := sc.Classifier.ClassifyBatch(batch)
		sc.Session.countClassified(len(accepted))
		found = append(found, accepted...)
		succeeded++
	}

	if succeeded == 0 && firstErr != nil {
		return found, firstErr
	}
	return found, nil
}

// runCountryProbes tests each probe indicator against each major geography
// and keeps only indicators whose probe returned actual data rows. Metadata
// for a confirmed indicator is fetched once and reused across geographies.
func runCountryProbes(ctx context.Context, sc *Context) ([]classify.Indicator, error) {
	var found []classify.Indicator
	var firstErr error
	succeeded := 0
	lookups := make(map[string][]classify.Indicator)

	for _, geo := range probeGeographies(ctx, sc) {
		for _, id := range sc.Provider.ProbeIndicatorIDs() {
			if ctx.Err() != nil {
				return nil, nil
			}

			raw, err := sc.Client.Get(ctx, sc.Provider.ProbeURL(geo, id))
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil
				}
				if kind, ok := fetch.ErrorKind(err); ok && kind == fetch.KindBadRequest {
					sc.Log.Debug("probe rejected", "geo", geo, "id", id)
					continue
				}
				sc.Log.Warn("probe failed", "geo", geo, "id", id, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !probeHasData(raw, sc.Provider.Shapes().Probe) {
				continue
			}

			meta, ok := lookups[id]
			if !ok {
				meta, err = fetchIndicatorMeta(ctx, sc, id)
				if err != nil {
					if ctx.Err() != nil {
						return nil, nil
					}
					sc.Log.Warn("metadata lookup failed after positive probe",
						"geo", geo, "id", id, "error", err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				lookups[id] = meta
			}

			for _, ind := range meta {
				if ind.GeographyScope == "" {
					ind.GeographyScope = geo
				}
				found = append(found, ind)
			}
			succeeded++
		}
	}

	if succeeded == 0 && firstErr != nil {
		return found, firstErr
	}
	return found, nil
}

// maxProbeGeographies bounds the probe grid when a geography catalog
// returns more levels than the curated fallback list.
const maxProbeGeographies = 20

// probeGeographies resolves the geography list for probing. Providers with
// a geography catalog get it refreshed from upstream; any failure falls
// back to the curated list.
func probeGeographies(ctx context.Context, sc *Context) []string {
	fallback := sc.Provider.Geographies()

	gl, ok := sc.Provider.(provider.GeographyLister)
	if !ok || gl.GeographyURL() == "" {
		return fallback
	}

	raw, err := sc.Client.Get(ctx, gl.GeographyURL())
	if err != nil || raw == nil {
		sc.Log.Debug("geography catalog unavailable, using curated list", "error", err)
		return fallback
	}
	entries, err := sc.Normalizer.Indicators(raw, gl.GeographyShape())
	if err != nil || len(entries) == 0 {
		sc.Log.Debug("geography catalog unparseable, using curated list", "error", err)
		return fallback
	}

	geos := make([]string, 0, len(entries))
	for _, e := range entries {
		geos = append(geos, e.ExternalID)
		if len(geos) == maxProbeGeographies {
			break
		}
	}
	return geos
}

func fetchIndicatorMeta(ctx context.Context, sc *Context, id string) ([]classify.Indicator, error) {
	raw, err := sc.Client.Get(ctx, sc.Provider.IndicatorURL(id))
	if err != nil {
		return nil, err
	}
	batch, err := sc.Normalizer.Indicators(raw, sc.Provider.Shapes().Lookup)
	if err != nil {
		return nil, err
	}
	accepted := sc.Classifier.ClassifyBatch(batch)
	sc.Session.countClassified(len(accepted))
	return accepted, nil
}

// probeHasData decides data presence per envelope shape. A nil body (204)
// always means no data.
func probeHasData(raw []byte, shape normalize.Shape) bool {
	if raw == nil {
		return false
	}
	switch shape {
	case normalize.ShapeRowTable:
		return normalize.HasDataRows(raw)
	case normalize.ShapeArrayEnvelope:
		return normalize.EnvelopeHasData(raw)
	}
	return true
}

// runCatalogSweep walks the provider's paginated full catalog, stopping at
// the page cap, at an empty page, or when the provider reports no more
// pages. Sweep failures abort the sweep but keep earlier pages.
func runCatalogSweep(ctx context.Context, sc *Context) ([]classify.Indicator, error) {
	var found []classify.Indicator

	for page := 1; page <= sc.MaxSweepPages; page++ {
		if ctx.Err() != nil {
			return nil, nil
		}

		url := sc.Provider.CatalogURL(page)
		if url == "" {
			break
		}

		raw, err := sc.Client.Get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return found, err
		}

		batch, err := sc.Normalizer.Indicators(raw, sc.Provider.Shapes().Catalog)
		if err != nil {
			return found, err
		}
		if len(batch) == 0 {
			break
		}

		accepted := sc.Classifier.ClassifyBatch(batch)
		sc.Session.countClassified(len(accepted))
		found = append(found, accepted...)
	}

	return found, nil
}
