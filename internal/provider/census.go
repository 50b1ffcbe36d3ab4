package provider

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/econgraph/econcrawl/internal/config"
	"github.com/econgraph/econcrawl/internal/normalize"
)

const bdsDataset = "timeseries/bds"

// Census is the Census Bureau Data API, scoped to the Business Dynamics
// Statistics timeseries dataset. The variable catalog lives in
// variables.json (keyed object), geography levels in geography.json
// ("fips" list), and data queries return header-row string tables.
type Census struct {
	baseURL     string
	releaseFeed string
}

// BDS variable names are bare uppercase tokens like ESTAB or JOB_CREATION.
var censusIDPattern = regexp.MustCompile(`\b[A-Z][A-Z_]{3,30}\b`)

func NewCensus(cfg config.ProviderConfig) *Census {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.census.gov/data"
	}
	return &Census{baseURL: base, releaseFeed: cfg.ReleaseFeed}
}

func (c *Census) Key() string  { return "census" }
func (c *Census) Name() string { return "U.S. Census Bureau" }

func (c *Census) BaseURL() string { return c.baseURL }

// Topics for Census are dataset paths rather than numeric topic IDs.
func (c *Census) Topics() []Topic {
	return []Topic{
		{ID: bdsDataset, Name: "Business Dynamics Statistics"},
	}
}

func (c *Census) TopicURL(topic Topic) string {
	return fmt.Sprintf("%s/%s/variables.json", c.baseURL, topic.ID)
}

func (c *Census) KeyIndicatorIDs() []string {
	return []string{
		"ESTAB",            // establishments
		"FIRM",             // firms
		"EMP",              // employment
		"JOB_CREATION",     // gross job creation
		"JOB_DESTRUCTION",  // gross job destruction
		"NET_JOB_CREATION", // net job creation
		"ESTABS_ENTRY",     // establishment births
		"ESTABS_EXIT",      // establishment deaths
	}
}

// IndicatorURL builds a one-variable national data query; the header row
// names the variable, which is all the direct lookup needs.
func (c *Census) IndicatorURL(id string) string {
	q := BDSQuery{Variables: []string{id}, ForGeography: "us:*", Years: []int{2021}}
	url, _ := q.BuildURL(c.baseURL)
	return url
}

// Geographies are BDS summary levels, not country codes. They double as
// the fallback when geography.json is unreachable.
func (c *Census) Geographies() []string {
	return []string{"us", "state", "county", "metropolitan statistical area/micropolitan statistical area"}
}

// GeographyURL is the dataset's geography catalog, refreshed before probing.
func (c *Census) GeographyURL() string {
	return fmt.Sprintf("%s/%s/geography.json", c.baseURL, bdsDataset)
}

func (c *Census) GeographyShape() normalize.Shape { return normalize.ShapeFIPSList }

func (c *Census) ProbeIndicatorIDs() []string {
	return []string{"ESTAB", "FIRM", "EMP", "JOB_CREATION"}
}

func (c *Census) ProbeURL(geo, id string) string {
	q := BDSQuery{Variables: []string{id}, ForGeography: geo + ":*", Years: []int{2020, 2021}}
	url, _ := q.BuildURL(c.baseURL)
	return url
}

// CatalogURL treats variables.json as a one-page catalog.
func (c *Census) CatalogURL(page int) string {
	if page != 1 {
		return ""
	}
	return fmt.Sprintf("%s/%s/variables.json", c.baseURL, bdsDataset)
}

func (c *Census) IDPrefixes() []string {
	return []string{
		"estab", "firm", "emp", "job_", "net_job", "reallocation",
		"denom", "dhrate",
	}
}

func (c *Census) IDPattern() *regexp.Regexp { return censusIDPattern }

func (c *Census) ReleaseFeedURL() string { return c.releaseFeed }

func (c *Census) Shapes() Shapes {
	return Shapes{
		Topic:   normalize.ShapeVariableMap,
		Catalog: normalize.ShapeVariableMap,
		Lookup:  normalize.ShapeRowTable,
		Probe:   normalize.ShapeRowTable,
	}
}

// BDSQuery builds Census data-query URLs: get=VAR1,VAR2&for=<geo>&YEAR=....
type BDSQuery struct {
	Variables    []string
	ForGeography string
	InGeography  string
	Years        []int
}

// BuildURL renders the query against base. At least one variable is
// required.
func (q BDSQuery) BuildURL(base string) (string, error) {
	if len(q.Variables) == 0 {
		return "", fmt.Errorf("census query requires at least one variable")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s?get=%s", base, bdsDataset, strings.Join(q.Variables, ","))

	if q.ForGeography != "" {
		fmt.Fprintf(&b, "&for=%s", escapeGeo(q.ForGeography))
	}
	if q.InGeography != "" {
		fmt.Fprintf(&b, "&in=%s", escapeGeo(q.InGeography))
	}
	if len(q.Years) > 0 {
		b.WriteString("&YEAR=")
		for i, y := range q.Years {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d", y)
		}
	}
	return b.String(), nil
}

func escapeGeo(geo string) string {
	// Census accepts spaces in summary-level names only when encoded.
	return strings.ReplaceAll(geo, " ", "%20")
}
