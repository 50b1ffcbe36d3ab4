package discover

import (
	"github.com/econgraph/econcrawl/internal/classify"
	"github.com/econgraph/econcrawl/internal/normalize"
)

// Merge flattens per-strategy batches into one deduplicated list. Batches
// are visited in strategy-priority order; the first record seen for an
// external ID wins, and later occurrences only fill fields the kept record
// is missing. Every repeat occurrence counts as a duplicate.
func Merge(batches [][]classify.Indicator, session *Session) []classify.Indicator {
	index := make(map[string]int)
	var out []classify.Indicator

	for _, batch := range batches {
		for _, ind := range batch {
			if i, seen := index[ind.ExternalID]; seen {
				session.countDuplicate()
				fillMissing(&out[i], ind)
				continue
			}
			index[ind.ExternalID] = len(out)
			out = append(out, ind)
		}
	}

	return out
}

func fillMissing(dst *classify.Indicator, src classify.Indicator) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Unit == "" {
		dst.Unit = src.Unit
	}
	if dst.GeographyScope == "" {
		dst.GeographyScope = src.GeographyScope
	}
	if dst.TopicHint == "" {
		dst.TopicHint = src.TopicHint
	}
	if (dst.Frequency == "" || dst.Frequency == normalize.FreqUnknown) &&
		src.Frequency != "" && src.Frequency != normalize.FreqUnknown {
		dst.Frequency = src.Frequency
	}
}
