// Package provider defines the external statistical catalogs econcrawl can
// discover against. A Provider carries the endpoint construction, curated
// topic/indicator/geography lists, and envelope shape hints one upstream API
// needs; the discovery strategies themselves are provider-agnostic.
package provider

import (
	"regexp"

	"github.com/econgraph/econcrawl/internal/config"
	"github.com/econgraph/econcrawl/internal/normalize"
)

// Topic is one curated catalog subdivision known to map to economic domains.
type Topic struct {
	ID   string
	Name string
}

// Shapes holds the envelope shape each endpoint family returns.
type Shapes struct {
	Topic   normalize.Shape
	Catalog normalize.Shape
	Lookup  normalize.Shape
	Probe   normalize.Shape
}

// Provider describes one upstream catalog.
type Provider interface {
	// Key is the short config/CLI name, e.g. "worldbank".
	Key() string
	// Name is the canonical source name persisted with every series.
	Name() string
	// BaseURL is the configured API root, persisted with the data source.
	BaseURL() string

	Topics() []Topic
	TopicURL(topic Topic) string

	// KeyIndicatorIDs are known-critical external IDs fetched individually
	// by the direct-lookup strategy.
	KeyIndicatorIDs() []string
	IndicatorURL(id string) string

	// Geographies are the major country or region codes probed by the
	// geography strategy, and ProbeIndicatorIDs the candidate set tested
	// for each of them.
	Geographies() []string
	ProbeIndicatorIDs() []string
	ProbeURL(geo, id string) string

	// CatalogURL returns the paginated full-catalog URL for a 1-based
	// page, or "" when the provider has no further pages.
	CatalogURL(page int) string

	// IDPrefixes are lowercase external-ID prefixes denoting economic
	// domains, fed to the classifier.
	IDPrefixes() []string

	// IDPattern matches indicator IDs embedded in free text. Used by the
	// release-feed watcher; may be nil for providers without a usable
	// ID syntax.
	IDPattern() *regexp.Regexp

	// ReleaseFeedURL is the optional announcement feed, "" when unset.
	ReleaseFeedURL() string

	Shapes() Shapes
}

// GeographyLister is implemented by providers whose geography levels can
// be refreshed from a catalog endpoint before probing. Geographies() stays
// the fallback when the catalog is unreachable.
type GeographyLister interface {
	GeographyURL() string
	GeographyShape() normalize.Shape
}

// Registry returns the providers enabled in cfg, in fixed order.
func Registry(cfg *config.Config) []Provider {
	var out []Provider
	if cfg.Providers.WorldBank.Enabled {
		out = append(out, NewWorldBank(cfg.Providers.WorldBank))
	}
	if cfg.Providers.Census.Enabled {
		out = append(out, NewCensus(cfg.Providers.Census))
	}
	return out
}

// ByKey returns the enabled provider with the given key, or nil.
func ByKey(cfg *config.Config, key string) Provider {
	for _, p := range Registry(cfg) {
		if p.Key() == key {
			return p
		}
	}
	return nil
}
