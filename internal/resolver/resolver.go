// Package resolver turns free-text chart requests into a chart.Instruction by
// deterministic keyword matching. It does no tokenisation and no I/O; the same
// query and columns always resolve to the same instruction.
package resolver

import (
	"strings"

	"github.com/chartmesh/chartmesh/internal/chart"
)

type Source string

const (
	SourceQuery    Source = "query"
	SourceFallback Source = "fallback"
	SourceOverride Source = "override"
	SourceNone     Source = "none"
)

// Resolution is an instruction plus a record of where each field came from.
type Resolution struct {
	Instruction   chart.Instruction `json:"instruction"`
	KindKeyword   string            `json:"kind_keyword,omitempty"`
	KindSource    Source            `json:"kind_source"`
	GroupBySource Source            `json:"group_by_source"`
	ValueSource   Source            `json:"value_source"`
}

// Resolve maps query text and the dataset's column names to an instruction.
// A non-nil override replaces only the chart kind.
//
// columns must be non-empty; with no columns the instruction is returned with
// empty column fields.
func Resolve(query string, columns []string, override *chart.Kind) chart.Instruction {
	return Explain(query, columns, override).Instruction
}

// Explain is Resolve with provenance.
func Explain(query string, columns []string, override *chart.Kind) Resolution {
	lower := strings.ToLower(query)

	kind, keyword := detectKind(lower)
	resolution := Resolution{
		Instruction: chart.Instruction{
			Kind:        kind,
			Aggregation: detectAggregation(lower),
		},
		KindKeyword:   keyword,
		KindSource:    SourceQuery,
		GroupBySource: SourceQuery,
		ValueSource:   SourceQuery,
	}
	if keyword == "" {
		resolution.KindSource = SourceFallback
	}

	instruction := &resolution.Instruction
	instruction.GroupBy = attributeGroupBy(lower, columns)
	instruction.Value = attributeValue(lower, columns)

	if instruction.GroupBy == "" {
		instruction.GroupBy = fallbackGroupBy(columns)
		resolution.GroupBySource = SourceFallback
	}

	if instruction.Value == "" {
		if instruction.Aggregation == chart.AggregationCount {
			resolution.ValueSource = SourceNone
		} else {
			instruction.Value = fallbackValue(columns)
			resolution.ValueSource = SourceFallback
		}
	}

	if override != nil {
		instruction.Kind = *override
		resolution.KindSource = SourceOverride
	}
	return resolution
}
