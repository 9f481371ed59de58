package resolver

import (
	"strings"

	"github.com/chartmesh/chartmesh/internal/chart"
)

// kindRule matches when every keyword occurs in the lower-cased query.
type kindRule struct {
	kind     chart.Kind
	keywords []string
}

func (r kindRule) match(lower string) bool {
	for _, keyword := range r.keywords {
		if !strings.Contains(lower, keyword) {
			return false
		}
	}
	return true
}

func (r kindRule) label() string {
	return strings.Join(r.keywords, "+")
}

// Order matters: several keywords are substrings of each other's phrasing
// ("stacked bar" contains "bar", "treemap" contains "tree"), so the first
// matching rule wins.
var kindRules = []kindRule{
	{kind: chart.KindHeatmap, keywords: []string{"heatmap"}},
	{kind: chart.KindGroupedBar, keywords: []string{"grouped"}},
	{kind: chart.KindStackedBar, keywords: []string{"stacked", "bar"}},
	{kind: chart.KindStackedLine, keywords: []string{"stacked", "line"}},
	{kind: chart.KindTreemap, keywords: []string{"tree"}},
	{kind: chart.KindSunburst, keywords: []string{"sunburst"}},
	{kind: chart.KindPie, keywords: []string{"pie"}},
	{kind: chart.KindLine, keywords: []string{"line"}},
	{kind: chart.KindBar, keywords: []string{"bar"}},
	{kind: chart.KindDoughnut, keywords: []string{"doughnut"}},
	{kind: chart.KindRadar, keywords: []string{"radar"}},
	{kind: chart.KindPolarArea, keywords: []string{"polar"}},
	{kind: chart.KindBubble, keywords: []string{"bubble"}},
}

const defaultKind = chart.KindBar

func detectKind(lower string) (chart.Kind, string) {
	for _, rule := range kindRules {
		if rule.match(lower) {
			return rule.kind, rule.label()
		}
	}
	return defaultKind, ""
}

type aggregationRule struct {
	aggregation chart.Aggregation
	keywords    []string
}

// Any keyword in a rule is enough; rules are tried in order.
var aggregationRules = []aggregationRule{
	{aggregation: chart.AggregationAverage, keywords: []string{"average", "avg"}},
	{aggregation: chart.AggregationCount, keywords: []string{"count"}},
}

func detectAggregation(lower string) chart.Aggregation {
	for _, rule := range aggregationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.aggregation
			}
		}
	}
	return chart.AggregationSum
}
