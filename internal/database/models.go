package database

import "time"

// DataSource is an upstream statistics provider whose catalog we index.
type DataSource struct {
	ID        int64
	Name      string
	BaseURL   string
	CreatedAt time.Time
}

// Series is one indicator's metadata as stored locally. A series is
// identified by its source together with the provider-assigned external ID.
type Series struct {
	ID             int64
	SourceID       int64
	ExternalID     string
	Title          string
	Description    *string
	Unit           *string
	Frequency      string
	GeographyScope *string
	TopicHint      *string
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
}

// DiscoveryRun records the outcome of one discovery invocation against
// one source, including its counters and a rendered report.
type DiscoveryRun struct {
	ID               string
	SourceName       string
	StartedAt        time.Time
	FinishedAt       *time.Time
	TimedOut         bool
	Requests         int
	Classified       int
	Dropped          int
	Duplicates       int
	Created          int
	Updated          int
	FailedUpserts    int
	StrategyFailures int
	ReportMarkdown   *string
}

// Stats summarizes the catalog for the status pages.
type Stats struct {
	TotalSeries    int
	TotalSources   int
	TotalRuns      int
	SeriesBySource map[string]int
	LastRunAt      *time.Time
}
