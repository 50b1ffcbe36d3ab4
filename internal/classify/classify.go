// Package classify decides whether a normalized catalog entry describes an
// economic series. Two rules apply: a curated keyword vocabulary matched
// against name and description, and provider-specific external-ID coding
// prefixes. Either match accepts the entry; an entry with an empty name and
// a non-matching ID fails closed.
package classify

import (
	"strings"

	"github.com/econgraph/econcrawl/internal/normalize"
)

// vocabulary is the curated economic term list, grouped by domain category.
// Matching is a case-insensitive substring test against name + description.
var vocabulary = map[string][]string{
	"national-accounts": {
		"gdp", "gross domestic product", "gross national", "national income",
		"consumption", "investment", "savings",
	},
	"prices": {
		"inflation", "consumer price", "producer price", "price index",
		"deflator", "price level",
	},
	"labor": {
		"unemployment", "employment", "labor force", "wage", "earnings",
		"job creation", "job destruction", "payroll", "establishment",
	},
	"trade": {
		"trade", "export", "import", "balance of payments", "current account",
		"tariff", "terms of trade",
	},
	"monetary": {
		"interest rate", "exchange rate", "money supply", "monetary",
		"central bank", "credit", "lending rate",
	},
	"government-finance": {
		"debt", "revenue", "expenditure", "fiscal", "budget", "deficit",
		"surplus", "tax",
	},
	"business": {
		"retail sales", "manufacturing", "industrial production", "firm",
		"business formation", "new orders", "inventories",
	},
}

// Indicator is a classified catalog entry.
type Indicator struct {
	normalize.Indicator

	Economic bool
	// MatchReasons records which rules fired, e.g. "keyword/labor" or
	// "id-prefix/ny.gdp". Kept for run diagnostics, never persisted.
	MatchReasons []string
}

// Classifier applies the shared vocabulary plus one provider's ID prefixes.
// Classification is deterministic and touches neither network nor storage.
type Classifier struct {
	idPrefixes []string
}

// New creates a Classifier for a provider. idPrefixes are lowercase
// external-ID prefixes known to denote economic domains, e.g. "ny.gdp".
func New(idPrefixes []string) *Classifier {
	prefixes := make([]string, 0, len(idPrefixes))
	for _, p := range idPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Classifier{idPrefixes: prefixes}
}

// Classify evaluates one normalized entry.
func (c *Classifier) Classify(ind normalize.Indicator) Indicator {
	out := Indicator{Indicator: ind}

	text := strings.ToLower(ind.Name + " " + ind.Description)
	if strings.TrimSpace(text) != "" {
		for category, terms := range vocabulary {
			for _, term := range terms {
				if strings.Contains(text, term) {
					out.MatchReasons = append(out.MatchReasons, "keyword/"+category)
					break
				}
			}
		}
	}

	id := strings.ToLower(ind.ExternalID)
	for _, prefix := range c.idPrefixes {
		if strings.HasPrefix(id, prefix) || strings.Contains(id, prefix) {
			out.MatchReasons = append(out.MatchReasons, "id-prefix/"+prefix)
			break
		}
	}

	out.Economic = len(out.MatchReasons) > 0
	return out
}

// ClassifyBatch classifies a batch and returns only the economic entries.
func (c *Classifier) ClassifyBatch(batch []normalize.Indicator) []Indicator {
	var accepted []Indicator
	for _, ind := range batch {
		if classified := c.Classify(ind); classified.Economic {
			accepted = append(accepted, classified)
		}
	}
	return accepted
}
