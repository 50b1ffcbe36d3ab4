package provider

import (
	"fmt"
	"regexp"

	"github.com/econgraph/econcrawl/internal/config"
	"github.com/econgraph/econcrawl/internal/normalize"
)

// WorldBank is the World Bank Indicators API (api.worldbank.org/v2). All
// catalog endpoints return the two-element array envelope: element 0 is
// pagination metadata, element 1 the record array.
type WorldBank struct {
	baseURL     string
	releaseFeed string
}

// Indicator IDs look like NY.GDP.MKTP.CD: dotted uppercase segments.
var worldBankIDPattern = regexp.MustCompile(`\b[A-Z]{2}\.[A-Z]{3}(?:\.[A-Z0-9]{2,6})+\b`)

func NewWorldBank(cfg config.ProviderConfig) *WorldBank {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.worldbank.org/v2"
	}
	return &WorldBank{baseURL: base, releaseFeed: cfg.ReleaseFeed}
}

func (w *WorldBank) Key() string  { return "worldbank" }
func (w *WorldBank) Name() string { return "World Bank Open Data" }

func (w *WorldBank) BaseURL() string { return w.baseURL }

func (w *WorldBank) Topics() []Topic {
	return []Topic{
		{ID: "3", Name: "Economy & Growth"},
		{ID: "7", Name: "Financial Sector"},
		{ID: "11", Name: "Trade"},
	}
}

func (w *WorldBank) TopicURL(topic Topic) string {
	return fmt.Sprintf("%s/topic/%s/indicator?format=json&per_page=1000", w.baseURL, topic.ID)
}

func (w *WorldBank) KeyIndicatorIDs() []string {
	return []string{
		"NY.GDP.MKTP.CD",    // GDP (current US$)
		"NY.GDP.MKTP.KD.ZG", // GDP growth (annual %)
		"FP.CPI.TOTL.ZG",    // Inflation, consumer prices (annual %)
		"SL.UEM.TOTL.ZS",    // Unemployment, total (% of labor force)
		"FR.INR.RINR",       // Real interest rate (%)
		"NE.TRD.GNFS.ZS",    // Trade (% of GDP)
		"GC.DOD.TOTL.GD.ZS", // Central government debt (% of GDP)
		"GC.REV.XGRT.GD.ZS", // Tax revenue (% of GDP)
		"GC.XPN.TOTL.GD.ZS", // Expense (% of GDP)
		"BN.CAB.XOKA.GD.ZS", // Current account balance (% of GDP)
	}
}

func (w *WorldBank) IndicatorURL(id string) string {
	return fmt.Sprintf("%s/indicator/%s?format=json", w.baseURL, id)
}

func (w *WorldBank) Geographies() []string {
	return []string{
		"US", "CN", "DE", "JP", "GB", "FR", "IT", "CA",
		"AU", "BR", "IN", "RU", "ZA", "MX", "KR",
	}
}

func (w *WorldBank) ProbeIndicatorIDs() []string {
	return []string{
		"NY.GDP.MKTP.CD",
		"FP.CPI.TOTL.ZG",
		"SL.UEM.TOTL.ZS",
		"NE.TRD.GNFS.ZS",
		"GC.DOD.TOTL.GD.ZS",
	}
}

func (w *WorldBank) ProbeURL(geo, id string) string {
	return fmt.Sprintf("%s/country/%s/indicator/%s?format=json&per_page=1", w.baseURL, geo, id)
}

func (w *WorldBank) CatalogURL(page int) string {
	if page < 1 {
		return ""
	}
	return fmt.Sprintf("%s/indicator?format=json&per_page=100&page=%d", w.baseURL, page)
}

func (w *WorldBank) IDPrefixes() []string {
	return []string{
		"ny.gdp", "ny.gnp", "fp.cpi", "sl.uem", "sl.emp", "fr.inr",
		"ne.trd", "ne.exp", "ne.imp", "gc.dod", "gc.rev", "gc.xpn",
		"bn.cab", "dt.dod", "pa.nus", "fm.lbl", "ic.tax", "ic.bus",
	}
}

func (w *WorldBank) IDPattern() *regexp.Regexp { return worldBankIDPattern }

func (w *WorldBank) ReleaseFeedURL() string { return w.releaseFeed }

func (w *WorldBank) Shapes() Shapes {
	return Shapes{
		Topic:   normalize.ShapeArrayEnvelope,
		Catalog: normalize.ShapeArrayEnvelope,
		Lookup:  normalize.ShapeArrayEnvelope,
		Probe:   normalize.ShapeArrayEnvelope,
	}
}
