// Package render converts engine output into widget-neutral chart payloads.
// It decides layout only; colors, sizes and animation belong to the client.
package render

import (
	"fmt"

	"github.com/chartmesh/chartmesh/internal/chart"
)

type Layout string

const (
	LayoutCategory  Layout = "category"
	LayoutGrid      Layout = "grid"
	LayoutHierarchy Layout = "hierarchy"
)

const (
	// HeatmapRowLabel is the single y-axis label of a heatmap grid.
	HeatmapRowLabel = "Metric"
	// TreemapRootName labels the root that wraps a flat treemap result.
	TreemapRootName = "root"
)

// categoryWidgets have a dedicated category-axis widget. Every other flat
// kind is drawn with the bar widget.
var categoryWidgets = map[chart.Kind]bool{
	chart.KindBar:       true,
	chart.KindLine:      true,
	chart.KindPie:       true,
	chart.KindDoughnut:  true,
	chart.KindRadar:     true,
	chart.KindPolarArea: true,
	chart.KindBubble:    true,
}

type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

type Category struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

type Grid struct {
	XLabels []string    `json:"x_labels"`
	YLabels []string    `json:"y_labels"`
	Cells   [][]float64 `json:"cells"`
}

type Payload struct {
	Kind     chart.Kind  `json:"chart_kind"`
	Widget   chart.Kind  `json:"widget"`
	Layout   Layout      `json:"layout"`
	Category *Category   `json:"category,omitempty"`
	Grid     *Grid       `json:"grid,omitempty"`
	Tree     *chart.Node `json:"tree,omitempty"`
}

// SeriesLabel names the single data series, e.g. "sum of Sales". Count
// instructions without a value column fall back to the group-by column.
func SeriesLabel(instruction chart.Instruction) string {
	column := instruction.Value
	if column == "" {
		column = instruction.GroupBy
	}
	return fmt.Sprintf("%s of %s", instruction.Aggregation, column)
}

// Build lays out output for instruction.Kind. A hierarchy output for a kind
// that expects flat data, or the reverse, is an error.
func Build(instruction chart.Instruction, output chart.Output) (Payload, error) {
	kind := instruction.Kind
	payload := Payload{Kind: kind, Widget: kind}

	if kind.Shape() == chart.ShapeHierarchy {
		if output.Shape != chart.ShapeHierarchy || output.Hierarchy == nil {
			return Payload{}, fmt.Errorf("chart kind %s needs hierarchy output, got %s", kind, output.Shape)
		}
		root := output.Hierarchy.Root
		payload.Layout = LayoutHierarchy
		payload.Tree = &root
		return payload, nil
	}
	if output.Shape != chart.ShapeFlat {
		return Payload{}, fmt.Errorf("chart kind %s needs flat output, got %s", kind, output.Shape)
	}

	switch kind {
	case chart.KindHeatmap:
		payload.Layout = LayoutGrid
		payload.Grid = &Grid{
			XLabels: output.Flat.Labels(),
			YLabels: []string{HeatmapRowLabel},
			Cells:   [][]float64{output.Flat.Values()},
		}
	case chart.KindTreemap:
		payload.Layout = LayoutHierarchy
		payload.Tree = treemap(output.Flat)
	default:
		if !categoryWidgets[kind] {
			payload.Widget = chart.KindBar
		}
		payload.Layout = LayoutCategory
		payload.Category = &Category{
			Labels: output.Flat.Labels(),
			Series: []Series{{Label: SeriesLabel(instruction), Values: output.Flat.Values()}},
		}
	}
	return payload, nil
}

func treemap(flat chart.Flat) *chart.Node {
	children := make([]chart.Node, 0, len(flat))
	for _, entry := range flat {
		children = append(children, chart.Node{Name: entry.Label, ID: entry.Label, Value: entry.Value})
	}
	return &chart.Node{Name: TreemapRootName, Children: children}
}
