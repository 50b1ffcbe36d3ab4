package discover

import (
	"testing"

	"github.com/econgraph/econcrawl/internal/classify"
	"github.com/econgraph/econcrawl/internal/normalize"
)

func ind(id, name string) classify.Indicator {
	return classify.Indicator{
		Indicator: normalize.Indicator{ExternalID: id, Name: name, Frequency: normalize.FreqUnknown},
		Economic:  true,
	}
}

func TestMergeFirstOccurrenceWins(t *testing.T) {
	session := &Session{}
	batches := [][]classify.Indicator{
		{ind("NY.GDP.MKTP.CD", "GDP (current US$)")},
		{ind("NY.GDP.MKTP.CD", "GDP renamed"), ind("FP.CPI.TOTL.ZG", "Inflation")},
	}

	merged := Merge(batches, session)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged indicators, got %d", len(merged))
	}
	if merged[0].Name != "GDP (current US$)" {
		t.Errorf("expected first occurrence to win, got %q", merged[0].Name)
	}
	if session.Duplicates() != 1 {
		t.Errorf("expected 1 duplicate, got %d", session.Duplicates())
	}
}

func TestMergeFillsMissingFields(t *testing.T) {
	session := &Session{}

	sparse := ind("SL.UEM.TOTL.ZS", "Unemployment")
	rich := ind("SL.UEM.TOTL.ZS", "Unemployment, total")
	rich.Description = "Share of the labor force without work"
	rich.Unit = "%"
	rich.Frequency = normalize.FreqAnnual
	rich.GeographyScope = "US"

	merged := Merge([][]classify.Indicator{{sparse}, {rich}}, session)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged indicator, got %d", len(merged))
	}
	got := merged[0]
	if got.Name != "Unemployment" {
		t.Errorf("name should keep first occurrence, got %q", got.Name)
	}
	if got.Description != "Share of the labor force without work" {
		t.Error("missing description should be filled from the later occurrence")
	}
	if got.Unit != "%" || got.GeographyScope != "US" {
		t.Errorf("missing fields not filled: %+v", got)
	}
	if got.Frequency != normalize.FreqAnnual {
		t.Errorf("unknown frequency should be upgraded, got %q", got.Frequency)
	}
}

func TestMergeDoesNotOverwriteKnownFrequency(t *testing.T) {
	session := &Session{}

	first := ind("EMP", "Employment")
	first.Frequency = normalize.FreqQuarterly
	second := ind("EMP", "Employment")
	second.Frequency = normalize.FreqAnnual

	merged := Merge([][]classify.Indicator{{first}, {second}}, session)
	if merged[0].Frequency != normalize.FreqQuarterly {
		t.Errorf("expected quarterly to survive, got %q", merged[0].Frequency)
	}
}
