// Package normalize converts provider-specific JSON payloads into uniform
// indicator records. Providers wrap their catalogs in several undocumented
// envelope shapes; the caller states which shape to expect and unrecognized
// payloads fail with a ParseError instead of being format-sniffed.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Shape identifies a known provider envelope.
type Shape int

const (
	// ShapeArrayEnvelope is a top-level array whose first element is
	// pagination metadata and whose second element is the record array
	// (World Bank indicator endpoints).
	ShapeArrayEnvelope Shape = iota
	// ShapeVariableMap is an object whose "variables" field maps variable
	// names to metadata objects (Census variables.json).
	ShapeVariableMap
	// ShapeFIPSList is an object whose "fips" field holds a list of
	// geography descriptors (Census geography.json).
	ShapeFIPSList
	// ShapeRowTable is an array of string rows where row 0 is the column
	// header (Census data queries).
	ShapeRowTable
)

func (s Shape) String() string {
	switch s {
	case ShapeArrayEnvelope:
		return "array_envelope"
	case ShapeVariableMap:
		return "variable_map"
	case ShapeFIPSList:
		return "fips_list"
	case ShapeRowTable:
		return "row_table"
	}
	return "unknown"
}

// Frequency is the reporting cadence of a series, when the provider states one.
type Frequency string

const (
	FreqAnnual    Frequency = "annual"
	FreqQuarterly Frequency = "quarterly"
	FreqMonthly   Frequency = "monthly"
	FreqUnknown   Frequency = "unknown"
)

// Indicator is one normalized catalog entry. ExternalID is always non-empty;
// uniqueness is only established later by the merge step.
type Indicator struct {
	ExternalID     string
	Name           string
	Description    string
	Unit           string
	Frequency      Frequency
	GeographyScope string
	TopicHint      string
}

// ParseError means a payload could not be interpreted as the expected shape
// at all. Individually malformed records never produce a ParseError; they
// are dropped and logged.
type ParseError struct {
	Shape Shape
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s payload: %v", e.Shape, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalizer turns raw payloads into Indicator batches.
type Normalizer struct {
	log *slog.Logger

	// onDrop is called once per malformed record, for session accounting.
	onDrop func()
}

// New creates a Normalizer. dropHook may be nil.
func New(log *slog.Logger, dropHook func()) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{log: log, onDrop: dropHook}
}

// Indicators parses raw according to shape. Records missing an external ID
// are dropped and logged; only a structurally uninterpretable payload
// returns a ParseError. A nil raw body (HTTP 204 upstream) yields an empty
// batch.
func (n *Normalizer) Indicators(raw []byte, shape Shape) ([]Indicator, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch shape {
	case ShapeArrayEnvelope:
		return n.parseArrayEnvelope(raw)
	case ShapeVariableMap:
		return n.parseVariableMap(raw)
	case ShapeFIPSList:
		return n.parseFIPSList(raw)
	case ShapeRowTable:
		return n.parseRowTable(raw)
	default:
		return nil, &ParseError{Shape: shape, Err: fmt.Errorf("unrecognized shape %d", int(shape))}
	}
}

// arrayEnvelopeRecord mirrors one World Bank indicator entry.
type arrayEnvelopeRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SourceNote string `json:"sourceNote"`
	Unit       string `json:"unit"`
	Source     struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"source"`
}

func (n *Normalizer) parseArrayEnvelope(raw []byte) ([]Indicator, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ParseError{Shape: ShapeArrayEnvelope, Err: err}
	}
	if len(envelope) < 2 {
		// Metadata header with no data element: an empty catalog page.
		return nil, nil
	}

	var records []arrayEnvelopeRecord
	if err := json.Unmarshal(envelope[1], &records); err != nil {
		return nil, &ParseError{Shape: ShapeArrayEnvelope, Err: err}
	}

	out := make([]Indicator, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			n.drop("array_envelope", rec.Name)
			continue
		}
		out = append(out, Indicator{
			ExternalID:  rec.ID,
			Name:        strings.TrimSpace(rec.Name),
			Description: strings.TrimSpace(rec.SourceNote),
			Unit:        strings.TrimSpace(rec.Unit),
			Frequency:   FreqUnknown,
			TopicHint:   rec.Source.Value,
		})
	}
	return out, nil
}

// variableMapEnvelope mirrors Census variables.json.
type variableMapEnvelope struct {
	Variables map[string]struct {
		Label         string `json:"label"`
		Concept       string `json:"concept"`
		PredicateType string `json:"predicateType"`
		Group         string `json:"group"`
	} `json:"variables"`
}

func (n *Normalizer) parseVariableMap(raw []byte) ([]Indicator, error) {
	var envelope variableMapEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ParseError{Shape: ShapeVariableMap, Err: err}
	}
	if envelope.Variables == nil {
		return nil, &ParseError{Shape: ShapeVariableMap, Err: fmt.Errorf(`missing "variables" field`)}
	}

	out := make([]Indicator, 0, len(envelope.Variables))
	for name, v := range envelope.Variables {
		if strings.TrimSpace(name) == "" {
			n.drop("variable_map", v.Label)
			continue
		}
		out = append(out, Indicator{
			ExternalID:  name,
			Name:        strings.TrimSpace(v.Label),
			Description: strings.TrimSpace(v.Concept),
			Frequency:   FreqUnknown,
			TopicHint:   v.Group,
		})
	}
	return out, nil
}

// fipsListEnvelope mirrors Census geography.json.
type fipsListEnvelope struct {
	FIPS []struct {
		Name            string `json:"name"`
		GeoLevelDisplay string `json:"geoLevelDisplay"`
	} `json:"fips"`
}

func (n *Normalizer) parseFIPSList(raw []byte) ([]Indicator, error) {
	var envelope fipsListEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ParseError{Shape: ShapeFIPSList, Err: err}
	}
	if envelope.FIPS == nil {
		return nil, &ParseError{Shape: ShapeFIPSList, Err: fmt.Errorf(`missing "fips" field`)}
	}

	out := make([]Indicator, 0, len(envelope.FIPS))
	for _, g := range envelope.FIPS {
		if strings.TrimSpace(g.Name) == "" {
			n.drop("fips_list", g.GeoLevelDisplay)
			continue
		}
		out = append(out, Indicator{
			ExternalID:     g.Name,
			Name:           g.GeoLevelDisplay,
			Frequency:      FreqUnknown,
			GeographyScope: g.Name,
		})
	}
	return out, nil
}

// parseRowTable parses header-row tables. Each data column becomes one
// indicator; malformed rows are skipped. The table itself carries no
// per-indicator metadata beyond the column name.
func (n *Normalizer) parseRowTable(raw []byte) ([]Indicator, error) {
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &ParseError{Shape: ShapeRowTable, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Shape: ShapeRowTable, Err: fmt.Errorf("missing header row")}
	}

	header := rows[0]
	out := make([]Indicator, 0, len(header))
	for i, col := range header {
		name := strings.TrimSpace(col)
		if name == "" {
			n.drop("row_table", fmt.Sprintf("column %d", i))
			continue
		}
		if strings.EqualFold(name, "YEAR") || i == len(header)-1 {
			// YEAR and the trailing geography code are dimensions, not series.
			continue
		}
		out = append(out, Indicator{
			ExternalID: name,
			Name:       name,
			Frequency:  FreqAnnual,
		})
	}
	return out, nil
}

// HasDataRows reports whether a row-table payload contains at least one data
// row beyond the header. The country strategy accepts an indicator only if
// the provider returned actual data, not an empty table.
func HasDataRows(raw []byte) bool {
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return false
	}
	return len(rows) >= 2
}

// EnvelopeHasData reports whether an array-envelope payload carries a
// non-empty data element.
func EnvelopeHasData(raw []byte) bool {
	var envelope []json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false
	}
	if len(envelope) < 2 {
		return false
	}
	var records []json.RawMessage
	if err := json.Unmarshal(envelope[1], &records); err != nil {
		return false
	}
	return len(records) > 0
}

func (n *Normalizer) drop(shape, context string) {
	n.log.Warn("dropping record without external id", "shape", shape, "context", context)
	if n.onDrop != nil {
		n.onDrop()
	}
}
