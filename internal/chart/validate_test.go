package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKindAcceptsCanonicalAndAliases(t *testing.T) {
	cases := map[string]Kind{
		"bar":          KindBar,
		"BAR":          KindBar,
		"groupedBar":   KindGroupedBar,
		"grouped_bar":  KindGroupedBar,
		"stacked-bar":  KindStackedBar,
		"stacked line": KindStackedLine,
		"polarArea":    KindPolarArea,
		"polar":        KindPolarArea,
		"polar-area":   KindPolarArea,
		"tree":         KindTreemap,
		"treemap":      KindTreemap,
		"donut":        KindDoughnut,
		" sunburst ":   KindSunburst,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	_, err := ParseKind("scatter3d")
	require.ErrorIs(t, err, ErrInvalidInstruction)

	_, err = ParseKind("   ")
	require.ErrorIs(t, err, ErrInvalidInstruction)
}

func TestParseOptionalKindBlankIsNil(t *testing.T) {
	kind, err := ParseOptionalKind("")
	require.NoError(t, err)
	assert.Nil(t, kind)

	kind, err = ParseOptionalKind("pie")
	require.NoError(t, err)
	require.NotNil(t, kind)
	assert.Equal(t, KindPie, *kind)
}

func TestParseSort(t *testing.T) {
	for raw, want := range map[string]Sort{
		"":           SortNone,
		"none":       SortNone,
		"asc":        SortAscending,
		"Ascending":  SortAscending,
		"desc":       SortDescending,
		"descending": SortDescending,
	} {
		got, err := ParseSort(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSort("sideways")
	require.Error(t, err)
}

func TestParseAggregation(t *testing.T) {
	got, err := ParseAggregation("AVG")
	require.NoError(t, err)
	assert.Equal(t, AggregationAverage, got)

	_, err = ParseAggregation("median")
	require.ErrorIs(t, err, ErrInvalidInstruction)
}

func TestOnlySunburstIsHierarchical(t *testing.T) {
	for _, kind := range Kinds() {
		if kind == KindSunburst {
			assert.Equal(t, ShapeHierarchy, kind.Shape())
			continue
		}
		assert.Equal(t, ShapeFlat, kind.Shape(), kind)
	}
}

func TestInstructionValidate(t *testing.T) {
	columns := []string{"Region", "Sales"}

	valid := Instruction{Kind: KindBar, GroupBy: "Region", Value: "Sales", Aggregation: AggregationSum}
	require.NoError(t, valid.Validate(columns))

	countOnly := Instruction{Kind: KindPie, GroupBy: "Region", Aggregation: AggregationCount}
	require.NoError(t, countOnly.Validate(columns))

	for name, instruction := range map[string]Instruction{
		"unknown kind":        {Kind: "scatter", GroupBy: "Region", Value: "Sales", Aggregation: AggregationSum},
		"unknown aggregation": {Kind: KindBar, GroupBy: "Region", Value: "Sales", Aggregation: "median"},
		"missing group by":    {Kind: KindBar, Value: "Sales", Aggregation: AggregationSum},
		"unknown group by":    {Kind: KindBar, GroupBy: "Country", Value: "Sales", Aggregation: AggregationSum},
		"missing value":       {Kind: KindBar, GroupBy: "Region", Aggregation: AggregationAverage},
		"unknown value":       {Kind: KindBar, GroupBy: "Region", Value: "Profit", Aggregation: AggregationSum},
	} {
		err := instruction.Validate(columns)
		require.ErrorIs(t, err, ErrInvalidInstruction, name)
	}
}

func TestOutputLen(t *testing.T) {
	flat := Output{Shape: ShapeFlat, Flat: Flat{{Label: "a", Value: 1}, {Label: "b", Value: 2}}}
	assert.Equal(t, 2, flat.Len())
	assert.Equal(t, []string{"a", "b"}, flat.Flat.Labels())
	assert.Equal(t, []float64{1, 2}, flat.Flat.Values())

	value, ok := flat.Flat.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, value)

	hierarchy := Output{Shape: ShapeHierarchy, Hierarchy: &Hierarchy{Root: Node{Name: RootName, Children: []Node{{Name: "x"}}}}}
	assert.Equal(t, 1, hierarchy.Len())
	assert.Equal(t, 0, Output{Shape: ShapeHierarchy}.Len())
}
