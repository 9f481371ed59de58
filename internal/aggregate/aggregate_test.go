package aggregate

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartmesh/chartmesh/internal/chart"
)

func baseRows() []chart.Row {
	return []chart.Row{
		{"Region": "East", "Sales": "10"},
		{"Region": "West", "Sales": "20"},
		{"Region": "East", "Sales": "5"},
	}
}

func instruction(kind chart.Kind, aggregation chart.Aggregation) chart.Instruction {
	return chart.Instruction{Kind: kind, GroupBy: "Region", Value: "Sales", Aggregation: aggregation}
}

func TestAggregateSumKeepsFirstSeenOrder(t *testing.T) {
	got := Aggregate(baseRows(), instruction(chart.KindBar, chart.AggregationSum), chart.SortNone)
	require.Equal(t, chart.ShapeFlat, got.Shape)
	assert.Nil(t, got.Hierarchy)
	assert.Equal(t, chart.Flat{{Label: "East", Value: 15}, {Label: "West", Value: 20}}, got.Flat)
}

func TestAggregateAverageDescending(t *testing.T) {
	got := AggregateFlat(baseRows(), instruction(chart.KindBar, chart.AggregationAverage), chart.SortDescending)
	assert.Equal(t, chart.Flat{{Label: "West", Value: 20}, {Label: "East", Value: 7.5}}, got)
}

func TestAggregateCount(t *testing.T) {
	instr := chart.Instruction{Kind: chart.KindBar, GroupBy: "Region", Aggregation: chart.AggregationCount}
	got := AggregateFlat(baseRows(), instr, chart.SortNone)
	assert.Equal(t, chart.Flat{{Label: "East", Value: 2}, {Label: "West", Value: 1}}, got)
}

func TestAggregateMalformedCellCoercesToZero(t *testing.T) {
	rows := []chart.Row{{"Region": "East", "Sales": "abc"}}
	got := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationSum), chart.SortNone)
	assert.Equal(t, chart.Flat{{Label: "East", Value: 0}}, got)
}

func TestAggregateNonFiniteCellsCoerceToZero(t *testing.T) {
	rows := []chart.Row{
		{"Region": "East", "Sales": "Infinity"},
		{"Region": "East", "Sales": "-Infinity"},
		{"Region": "West", "Sales": "1e999"},
		{"Region": "West", "Sales": "20"},
		{"Region": "North", "Sales": "1e308"},
		{"Region": "North", "Sales": "1e308"},
	}
	result, err := NewLocal().Execute(context.Background(), Request{
		Dataset:     chart.Dataset{Columns: []string{"Region", "Sales"}, Rows: rows},
		Instruction: instruction(chart.KindBar, chart.AggregationSum),
	})
	require.NoError(t, err)
	assert.Equal(t, chart.Flat{
		{Label: "East", Value: 0},
		{Label: "West", Value: 20},
		{Label: "North", Value: 0},
	}, result.Output.Flat)
	assert.Equal(t, 3, result.Stats.CoercedCells)

	hierarchy := AggregateHierarchy(rows, instruction(chart.KindSunburst, chart.AggregationAverage))
	for _, child := range hierarchy.Root.Children {
		assert.False(t, math.IsInf(child.Value, 0) || math.IsNaN(child.Value), child.Name)
	}
}

func TestAggregateMissingValueCellCountsTowardAverage(t *testing.T) {
	rows := []chart.Row{
		{"Region": "East", "Sales": "10"},
		{"Region": "East"},
	}
	got := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationAverage), chart.SortNone)
	assert.Equal(t, chart.Flat{{Label: "East", Value: 5}}, got)
}

func TestAggregateFlatUsesRawKeyForMissingGroup(t *testing.T) {
	rows := []chart.Row{
		{"Sales": "3"},
		{"Region": "", "Sales": "4"},
		{"Region": "East", "Sales": "1"},
	}
	got := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationSum), chart.SortNone)
	assert.Equal(t, chart.Flat{{Label: "", Value: 7}, {Label: "East", Value: 1}}, got)
}

func TestAggregateSunburst(t *testing.T) {
	got := Aggregate(baseRows(), instruction(chart.KindSunburst, chart.AggregationSum), chart.SortDescending)
	require.Equal(t, chart.ShapeHierarchy, got.Shape)
	require.NotNil(t, got.Hierarchy)
	assert.Empty(t, got.Flat)

	root := got.Hierarchy.Root
	assert.Equal(t, chart.RootName, root.Name)
	assert.Equal(t, []chart.Node{
		{Name: "East", ID: "East", Value: 15},
		{Name: "West", ID: "West", Value: 20},
	}, root.Children)
}

func TestAggregateHierarchyReusesResolvedAggregation(t *testing.T) {
	got := AggregateHierarchy(baseRows(), instruction(chart.KindSunburst, chart.AggregationAverage))
	assert.Equal(t, 7.5, got.Root.Children[0].Value)
	assert.Equal(t, 20.0, got.Root.Children[1].Value)
}

func TestAggregateHierarchyClampsAndLabelsUnknown(t *testing.T) {
	rows := []chart.Row{
		{"Region": "East", "Sales": "-4"},
		{"Sales": "0"},
		{"Region": "", "Sales": "2"},
	}
	got := AggregateHierarchy(rows, instruction(chart.KindSunburst, chart.AggregationSum))
	assert.Equal(t, []chart.Node{
		{Name: "East", ID: "East", Value: chart.MinSegmentValue},
		{Name: UnknownLabel, ID: UnknownLabel, Value: 2},
	}, got.Root.Children)
}

func TestAggregateEmptyDataset(t *testing.T) {
	flat := Aggregate(nil, instruction(chart.KindPie, chart.AggregationSum), chart.SortAscending)
	assert.Equal(t, 0, flat.Len())
	assert.Empty(t, flat.Flat)

	hierarchy := Aggregate(nil, instruction(chart.KindSunburst, chart.AggregationSum), chart.SortNone)
	require.NotNil(t, hierarchy.Hierarchy)
	assert.Equal(t, chart.RootName, hierarchy.Hierarchy.Root.Name)
	assert.Empty(t, hierarchy.Hierarchy.Root.Children)
}

func TestAggregateIsIdempotent(t *testing.T) {
	rows := baseRows()
	instr := instruction(chart.KindLine, chart.AggregationAverage)
	first := Aggregate(rows, instr, chart.SortAscending)
	second := Aggregate(rows, instr, chart.SortAscending)
	assert.Equal(t, first, second)
	assert.Equal(t, baseRows(), rows)
}

func TestAggregateSortIsStable(t *testing.T) {
	rows := []chart.Row{
		{"Region": "A", "Sales": "5"},
		{"Region": "B", "Sales": "1"},
		{"Region": "C", "Sales": "5"},
		{"Region": "D", "Sales": "1"},
		{"Region": "E", "Sales": "3"},
	}
	instr := instruction(chart.KindBar, chart.AggregationSum)

	ascending := AggregateFlat(rows, instr, chart.SortAscending)
	assert.Equal(t, []string{"B", "D", "E", "A", "C"}, ascending.Labels())
	assert.IsNonDecreasing(t, ascending.Values())

	descending := AggregateFlat(rows, instr, chart.SortDescending)
	assert.Equal(t, []string{"A", "C", "E", "B", "D"}, descending.Labels())
	assert.IsNonIncreasing(t, descending.Values())
}

func TestAggregateAverageTimesCountEqualsSum(t *testing.T) {
	rows := append(baseRows(), chart.Row{"Region": "West", "Sales": "2.25"}, chart.Row{"Region": "East", "Sales": "x"})
	sums := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationSum), chart.SortNone)
	averages := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationAverage), chart.SortNone)
	counts := AggregateFlat(rows, instruction(chart.KindBar, chart.AggregationCount), chart.SortNone)

	for _, entry := range sums {
		average, ok := averages.Lookup(entry.Label)
		require.True(t, ok)
		count, ok := counts.Lookup(entry.Label)
		require.True(t, ok)
		assert.InDelta(t, entry.Value, average*count, 1e-9, entry.Label)
	}
}

func TestAggregateCountIgnoresValueColumn(t *testing.T) {
	instr := instruction(chart.KindBar, chart.AggregationCount)
	rows := baseRows()
	before := AggregateFlat(rows, instr, chart.SortNone)
	for _, row := range rows {
		row["Sales"] = "garbage"
	}
	after := AggregateFlat(rows, instr, chart.SortNone)
	assert.Equal(t, before, after)
}

func TestLocalExecuteReportsStats(t *testing.T) {
	rows := append(baseRows(), chart.Row{"Region": "North", "Sales": "n/a"})
	result, err := NewLocal().Execute(context.Background(), Request{
		Dataset:     chart.Dataset{Columns: []string{"Region", "Sales"}, Rows: rows},
		Instruction: instruction(chart.KindBar, chart.AggregationSum),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, result.Stats.Backend)
	assert.Equal(t, 4, result.Stats.Rows)
	assert.Equal(t, 3, result.Stats.Groups)
	assert.Equal(t, 1, result.Stats.CoercedCells)
	assert.Equal(t, CountCoerced(rows, instruction(chart.KindBar, chart.AggregationSum)), result.Stats.CoercedCells)
	assert.Equal(t, chart.Flat{{Label: "East", Value: 15}, {Label: "West", Value: 20}, {Label: "North", Value: 0}}, result.Output.Flat)
}

func TestLocalExecuteHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal().Execute(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}
