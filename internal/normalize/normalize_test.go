package normalize

import (
	"errors"
	"testing"
)

func newTestNormalizer(drops *int) *Normalizer {
	return New(nil, func() { *drops++ })
}

func TestArrayEnvelope(t *testing.T) {
	raw := []byte(`[
		{"page": 1, "pages": 3, "per_page": 2, "total": 5},
		[
			{"id": "NY.GDP.MKTP.CD", "name": "GDP (current US$)", "sourceNote": "GDP at purchaser prices.", "unit": "", "source": {"id": "2", "value": "World Development Indicators"}},
			{"id": "FP.CPI.TOTL.ZG", "name": "Inflation, consumer prices (annual %)", "sourceNote": "", "unit": "", "source": {"id": "2", "value": "World Development Indicators"}}
		]
	]`)

	var drops int
	got, err := newTestNormalizer(&drops).Indicators(raw, ShapeArrayEnvelope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 indicators, got %d", len(got))
	}
	if got[0].ExternalID != "NY.GDP.MKTP.CD" {
		t.Errorf("unexpected external id %q", got[0].ExternalID)
	}
	if got[0].Description != "GDP at purchaser prices." {
		t.Errorf("unexpected description %q", got[0].Description)
	}
	if got[0].TopicHint != "World Development Indicators" {
		t.Errorf("unexpected topic hint %q", got[0].TopicHint)
	}
	if drops != 0 {
		t.Errorf("expected no drops, got %d", drops)
	}
}

func TestArrayEnvelopeDropsRecordWithoutID(t *testing.T) {
	raw := []byte(`[
		{"page": 1},
		[
			{"id": "NY.GDP.MKTP.CD", "name": "GDP"},
			{"id": "", "name": "nameless"},
			{"id": "SL.UEM.TOTL.ZS", "name": "Unemployment"}
		]
	]`)

	var drops int
	got, err := newTestNormalizer(&drops).Indicators(raw, ShapeArrayEnvelope)
	if err != nil {
		t.Fatalf("one malformed record must not abort the batch: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 surviving indicators, got %d", len(got))
	}
	if drops != 1 {
		t.Errorf("expected 1 drop, got %d", drops)
	}
}

func TestArrayEnvelopeMetadataOnly(t *testing.T) {
	var drops int
	got, err := newTestNormalizer(&drops).Indicators([]byte(`[{"page": 11, "total": 0}]`), ShapeArrayEnvelope)
	if err != nil {
		t.Fatalf("metadata-only envelope is an empty page, not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty batch, got %d", len(got))
	}
}

func TestVariableMap(t *testing.T) {
	raw := []byte(`{
		"variables": {
			"ESTAB": {"label": "Number of establishments", "concept": "Business Dynamics", "group": "N/A"},
			"JOB_CREATION": {"label": "Gross job creation", "concept": "Business Dynamics"}
		}
	}`)

	var drops int
	got, err := newTestNormalizer(&drops).Indicators(raw, ShapeVariableMap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 indicators, got %d", len(got))
	}
	byID := map[string]Indicator{}
	for _, ind := range got {
		byID[ind.ExternalID] = ind
	}
	if byID["ESTAB"].Name != "Number of establishments" {
		t.Errorf("unexpected label %q", byID["ESTAB"].Name)
	}
}

func TestVariableMapMissingField(t *testing.T) {
	var drops int
	_, err := newTestNormalizer(&drops).Indicators([]byte(`{"vars": {}}`), ShapeVariableMap)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for missing variables field, got %v", err)
	}
}

func TestFIPSList(t *testing.T) {
	raw := []byte(`{
		"fips": [
			{"name": "us", "geoLevelDisplay": "010"},
			{"name": "state", "geoLevelDisplay": "040"}
		]
	}`)

	var drops int
	got, err := newTestNormalizer(&drops).Indicators(raw, ShapeFIPSList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 geographies, got %d", len(got))
	}
	if got[0].GeographyScope != "us" {
		t.Errorf("unexpected geography scope %q", got[0].GeographyScope)
	}
}

func TestRowTable(t *testing.T) {
	raw := []byte(`[
		["ESTAB", "FIRM", "YEAR", "us"],
		["6190396", "5304274", "2020", "1"],
		["6274027", "5383814", "2021", "1"]
	]`)

	var drops int
	got, err := newTestNormalizer(&drops).Indicators(raw, ShapeRowTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 data columns, got %d", len(got))
	}
	if got[0].ExternalID != "ESTAB" || got[1].ExternalID != "FIRM" {
		t.Errorf("unexpected columns %v", got)
	}
}

func TestNotJSONIsParseError(t *testing.T) {
	var drops int
	_, err := newTestNormalizer(&drops).Indicators([]byte(`<html>maintenance</html>`), ShapeArrayEnvelope)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for non-JSON payload, got %v", err)
	}
}

func TestNilBodyYieldsEmptyBatch(t *testing.T) {
	var drops int
	got, err := newTestNormalizer(&drops).Indicators(nil, ShapeArrayEnvelope)
	if err != nil {
		t.Fatalf("204 body must normalize to an empty batch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty batch, got %d", len(got))
	}
}

func TestHasDataRows(t *testing.T) {
	if !HasDataRows([]byte(`[["ESTAB","YEAR","us"],["1","2020","1"]]`)) {
		t.Error("expected data rows detected")
	}
	if HasDataRows([]byte(`[["ESTAB","YEAR","us"]]`)) {
		t.Error("header-only table has no data")
	}
	if HasDataRows(nil) {
		t.Error("nil body has no data")
	}
}

func TestEnvelopeHasData(t *testing.T) {
	if !EnvelopeHasData([]byte(`[{"page":1},[{"id":"NY.GDP.MKTP.CD"}]]`)) {
		t.Error("expected data detected")
	}
	if EnvelopeHasData([]byte(`[{"page":1},[]]`)) {
		t.Error("empty data element has no data")
	}
	if EnvelopeHasData([]byte(`[{"page":1}]`)) {
		t.Error("metadata-only envelope has no data")
	}
}
