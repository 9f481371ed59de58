// Package chart holds the data shapes shared by the resolver, the aggregation
// engine and everything that feeds or consumes them.
package chart

// Kind is the chart type tag carried by an Instruction. The core only emits the
// tag; turning it into a widget is the job of a presentation adapter.
type Kind string

const (
	KindBar         Kind = "bar"
	KindGroupedBar  Kind = "groupedBar"
	KindStackedBar  Kind = "stackedBar"
	KindLine        Kind = "line"
	KindStackedLine Kind = "stackedLine"
	KindPie         Kind = "pie"
	KindDoughnut    Kind = "doughnut"
	KindRadar       Kind = "radar"
	KindPolarArea   Kind = "polarArea"
	KindBubble      Kind = "bubble"
	KindHeatmap     Kind = "heatmap"
	KindTreemap     Kind = "treemap"
	KindSunburst    Kind = "sunburst"
)

var allKinds = []Kind{
	KindBar,
	KindGroupedBar,
	KindStackedBar,
	KindLine,
	KindStackedLine,
	KindPie,
	KindDoughnut,
	KindRadar,
	KindPolarArea,
	KindBubble,
	KindHeatmap,
	KindTreemap,
	KindSunburst,
}

// Kinds returns every supported chart kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Shape reports which result structure the aggregation engine emits for k.
// Treemaps use the flat shape; the presentation layer nests them.
func (k Kind) Shape() Shape {
	if k == KindSunburst {
		return ShapeHierarchy
	}
	return ShapeFlat
}

type Aggregation string

const (
	AggregationSum     Aggregation = "sum"
	AggregationAverage Aggregation = "average"
	AggregationCount   Aggregation = "count"
)

// Sort is the optional ordering directive for flat results. The zero value
// keeps first-seen order.
type Sort string

const (
	SortNone       Sort = ""
	SortAscending  Sort = "ascending"
	SortDescending Sort = "descending"
)

type Shape string

const (
	ShapeFlat      Shape = "flat"
	ShapeHierarchy Shape = "hierarchy"
)

// Row maps a column name to its raw cell text. A missing key and an empty
// cell are different things: only the hierarchy path folds them together.
type Row map[string]string

// Dataset is a set of rows sharing one header-derived schema. Columns keeps the
// header order, which the resolver depends on for its positional fallbacks.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (d Dataset) Len() int {
	return len(d.Rows)
}

// Instruction is the fully resolved directive the engine executes.
// Value is empty only when Aggregation is count.
type Instruction struct {
	Kind        Kind        `json:"chart_kind"`
	GroupBy     string      `json:"group_by"`
	Value       string      `json:"value_column,omitempty"`
	Aggregation Aggregation `json:"aggregation"`
}
