package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartmesh/chartmesh/internal/chart"
)

var sampleFlat = chart.Output{
	Shape: chart.ShapeFlat,
	Flat:  chart.Flat{{Label: "East", Value: 15}, {Label: "West", Value: 0}},
}

func TestBuildCategoryChart(t *testing.T) {
	instruction := chart.Instruction{Kind: chart.KindPie, GroupBy: "Region", Value: "Sales", Aggregation: chart.AggregationSum}
	payload, err := Build(instruction, sampleFlat)
	require.NoError(t, err)

	assert.Equal(t, LayoutCategory, payload.Layout)
	assert.Equal(t, chart.KindPie, payload.Widget)
	require.NotNil(t, payload.Category)
	assert.Equal(t, []string{"East", "West"}, payload.Category.Labels)
	assert.Equal(t, []Series{{Label: "sum of Sales", Values: []float64{15, 0}}}, payload.Category.Series)
	assert.Nil(t, payload.Grid)
	assert.Nil(t, payload.Tree)
}

func TestBuildFallsBackToBarWidget(t *testing.T) {
	for _, kind := range []chart.Kind{chart.KindGroupedBar, chart.KindStackedBar, chart.KindStackedLine} {
		payload, err := Build(chart.Instruction{Kind: kind, GroupBy: "Region", Aggregation: chart.AggregationCount}, sampleFlat)
		require.NoError(t, err)
		assert.Equal(t, kind, payload.Kind)
		assert.Equal(t, chart.KindBar, payload.Widget)
		assert.Equal(t, "count of Region", payload.Category.Series[0].Label)
	}
}

func TestBuildHeatmap(t *testing.T) {
	payload, err := Build(chart.Instruction{Kind: chart.KindHeatmap, GroupBy: "Region", Value: "Sales", Aggregation: chart.AggregationAverage}, sampleFlat)
	require.NoError(t, err)
	assert.Equal(t, LayoutGrid, payload.Layout)
	assert.Equal(t, &Grid{
		XLabels: []string{"East", "West"},
		YLabels: []string{HeatmapRowLabel},
		Cells:   [][]float64{{15, 0}},
	}, payload.Grid)
}

func TestBuildTreemapWrapsFlatWithoutClamp(t *testing.T) {
	payload, err := Build(chart.Instruction{Kind: chart.KindTreemap, GroupBy: "Region", Value: "Sales", Aggregation: chart.AggregationSum}, sampleFlat)
	require.NoError(t, err)
	assert.Equal(t, LayoutHierarchy, payload.Layout)
	require.NotNil(t, payload.Tree)
	assert.Equal(t, TreemapRootName, payload.Tree.Name)
	assert.Equal(t, []chart.Node{
		{Name: "East", ID: "East", Value: 15},
		{Name: "West", ID: "West", Value: 0},
	}, payload.Tree.Children)
}

func TestBuildSunburstPassesHierarchyThrough(t *testing.T) {
	hierarchy := chart.Hierarchy{Root: chart.Node{Name: chart.RootName, Children: []chart.Node{{Name: "East", ID: "East", Value: 15}}}}
	payload, err := Build(chart.Instruction{Kind: chart.KindSunburst}, chart.Output{Shape: chart.ShapeHierarchy, Hierarchy: &hierarchy})
	require.NoError(t, err)
	assert.Equal(t, LayoutHierarchy, payload.Layout)
	assert.Equal(t, hierarchy.Root, *payload.Tree)

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"tree":{"name":"Root"`)
	assert.NotContains(t, string(encoded), `"category"`)
}

func TestBuildRejectsShapeMismatch(t *testing.T) {
	_, err := Build(chart.Instruction{Kind: chart.KindSunburst}, sampleFlat)
	require.Error(t, err)
	_, err = Build(chart.Instruction{Kind: chart.KindBar}, chart.Output{Shape: chart.ShapeHierarchy, Hierarchy: &chart.Hierarchy{}})
	require.Error(t, err)
}
