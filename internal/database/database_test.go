package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestGetOrCreateSource(t *testing.T) {
	db := openTestDB(t)

	src, err := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")
	if err != nil {
		t.Fatalf("creating source: %v", err)
	}
	if src.ID == 0 {
		t.Error("expected non-zero source ID")
	}

	again, err := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")
	if err != nil {
		t.Fatalf("fetching source: %v", err)
	}
	if again.ID != src.ID {
		t.Errorf("expected same source ID %d, got %d", src.ID, again.ID)
	}

	sources, err := db.ListSources()
	if err != nil {
		t.Fatalf("listing sources: %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(sources))
	}
}

func TestUpsertSeriesCreateThenUpdate(t *testing.T) {
	db := openTestDB(t)
	src, err := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")
	if err != nil {
		t.Fatalf("creating source: %v", err)
	}

	s := &Series{
		SourceID:    src.ID,
		ExternalID:  "NY.GDP.MKTP.CD",
		Title:       "GDP (current US$)",
		Description: ptr("GDP at purchaser's prices"),
		Frequency:   "annual",
	}
	outcome, err := db.UpsertSeries(s)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("expected created, got %s", outcome)
	}
	if s.ID == 0 {
		t.Error("expected series ID to be set")
	}

	second := &Series{
		SourceID:   src.ID,
		ExternalID: "NY.GDP.MKTP.CD",
		Title:      "GDP (current US$)",
		Unit:       ptr("current US$"),
	}
	outcome, err = db.UpsertSeries(second)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("expected updated, got %s", outcome)
	}
	if second.ID != s.ID {
		t.Errorf("expected same row %d, got %d", s.ID, second.ID)
	}

	stored, err := db.GetSeries(s.ID)
	if err != nil {
		t.Fatalf("fetching series: %v", err)
	}
	if stored.Description == nil || *stored.Description != "GDP at purchaser's prices" {
		t.Error("expected description to survive an update that omitted it")
	}
	if stored.Unit == nil || *stored.Unit != "current US$" {
		t.Error("expected unit from the second upsert")
	}
	if stored.Frequency != "annual" {
		t.Errorf("expected frequency to survive, got %q", stored.Frequency)
	}
}

func TestUpsertSeriesEmptyFieldsDoNotClobber(t *testing.T) {
	db := openTestDB(t)
	src, _ := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")

	first := &Series{
		SourceID:   src.ID,
		ExternalID: "FP.CPI.TOTL.ZG",
		Title:      "Inflation, consumer prices (annual %)",
		Unit:       ptr("%"),
		Frequency:  "annual",
	}
	if _, err := db.UpsertSeries(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	sparse := &Series{
		SourceID:   src.ID,
		ExternalID: "FP.CPI.TOTL.ZG",
		Frequency:  "unknown",
	}
	if _, err := db.UpsertSeries(sparse); err != nil {
		t.Fatalf("sparse upsert: %v", err)
	}

	stored, err := db.GetSeries(first.ID)
	if err != nil {
		t.Fatalf("fetching series: %v", err)
	}
	if stored.Title != "Inflation, consumer prices (annual %)" {
		t.Errorf("title clobbered: %q", stored.Title)
	}
	if stored.Unit == nil || *stored.Unit != "%" {
		t.Error("unit clobbered by empty upsert")
	}
	if stored.Frequency != "annual" {
		t.Errorf("frequency clobbered: %q", stored.Frequency)
	}
	if !stored.LastSeenAt.After(stored.FirstSeenAt) && !stored.LastSeenAt.Equal(stored.FirstSeenAt) {
		t.Error("expected last_seen_at at or after first_seen_at")
	}
}

func TestSeriesScopedPerSource(t *testing.T) {
	db := openTestDB(t)
	wb, _ := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")
	census, _ := db.GetOrCreateSource("U.S. Census Bureau", "https://api.census.gov/data")

	a := &Series{SourceID: wb.ID, ExternalID: "EMP", Title: "Employment"}
	b := &Series{SourceID: census.ID, ExternalID: "EMP", Title: "Number of employees"}

	if out, err := db.UpsertSeries(a); err != nil || out != OutcomeCreated {
		t.Fatalf("first insert: outcome=%v err=%v", out, err)
	}
	if out, err := db.UpsertSeries(b); err != nil || out != OutcomeCreated {
		t.Fatalf("same ID under another source should create: outcome=%v err=%v", out, err)
	}

	counts, err := db.CountSeriesBySource()
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if counts["World Bank"] != 1 || counts["U.S. Census Bureau"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestListSeries(t *testing.T) {
	db := openTestDB(t)
	src, _ := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")

	for _, id := range []string{"SL.UEM.TOTL.ZS", "FP.CPI.TOTL.ZG", "NY.GDP.MKTP.CD"} {
		if _, err := db.UpsertSeries(&Series{SourceID: src.ID, ExternalID: id, Title: id}); err != nil {
			t.Fatalf("upserting %s: %v", id, err)
		}
	}

	all, err := db.ListSeries(src.ID, 0)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 series, got %d", len(all))
	}
	if all[0].ExternalID != "FP.CPI.TOTL.ZG" {
		t.Errorf("expected ordering by external ID, got %q first", all[0].ExternalID)
	}

	limited, err := db.ListSeries(src.ID, 2)
	if err != nil {
		t.Fatalf("listing limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 series with limit, got %d", len(limited))
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertRun("worldbank")
	if err != nil {
		t.Fatalf("inserting run: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run ID")
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("fetching run: %v", err)
	}
	if run.FinishedAt != nil {
		t.Error("expected unfinished run")
	}

	run.Requests = 42
	run.Classified = 10
	run.Duplicates = 3
	run.Created = 7
	run.Updated = 3
	run.TimedOut = true
	run.ReportMarkdown = ptr("# Discovery run\n\n42 requests")
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("finishing run: %v", err)
	}

	stored, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("refetching run: %v", err)
	}
	if stored.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
	if !stored.TimedOut {
		t.Error("expected timed_out flag")
	}
	if stored.Requests != 42 || stored.Created != 7 {
		t.Errorf("counters not persisted: %+v", stored)
	}
	if stored.ReportMarkdown == nil || *stored.ReportMarkdown == "" {
		t.Error("expected report markdown")
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	src, _ := db.GetOrCreateSource("World Bank", "https://api.worldbank.org/v2")
	db.UpsertSeries(&Series{SourceID: src.ID, ExternalID: "NY.GDP.MKTP.CD", Title: "GDP"})
	db.InsertRun("worldbank")

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSeries != 1 || stats.TotalSources != 1 || stats.TotalRuns != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastRunAt == nil {
		t.Error("expected last run time")
	}
	if stats.SeriesBySource["World Bank"] != 1 {
		t.Errorf("unexpected per-source counts: %v", stats.SeriesBySource)
	}
}
