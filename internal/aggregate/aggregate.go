// Package aggregate executes chart instructions over rows: group by one
// column, reduce another, and emit either a flat ordered mapping or a
// two-level hierarchy depending on the chart kind.
package aggregate

import (
	"math"
	"sort"

	"github.com/chartmesh/chartmesh/internal/chart"
)

// UnknownLabel replaces missing or empty group keys on the hierarchy path.
const UnknownLabel = "Unknown"

type accumulator struct {
	total float64
	count int
}

type grouping struct {
	order        []string
	groups       map[string]*accumulator
	coercedCells int
}

// Aggregate runs instruction over rows and returns the shape selected by the
// instruction's chart kind. sort only affects flat output.
func Aggregate(rows []chart.Row, instruction chart.Instruction, sortDirective chart.Sort) chart.Output {
	output, _ := aggregate(rows, instruction, sortDirective)
	return output
}

// AggregateFlat groups rows by instruction.GroupBy and orders the categories
// by first appearance, or by value when sortDirective asks for it. Ties keep
// first-seen order.
func AggregateFlat(rows []chart.Row, instruction chart.Instruction, sortDirective chart.Sort) chart.Flat {
	g := group(rows, instruction, flatKey)
	return finalizeFlat(g, instruction.Aggregation, sortDirective)
}

// AggregateHierarchy builds one child per group under a synthetic root. Child
// values are floored at chart.MinSegmentValue.
func AggregateHierarchy(rows []chart.Row, instruction chart.Instruction) chart.Hierarchy {
	g := group(rows, instruction, hierarchyKey)
	return finalizeHierarchy(g, instruction.Aggregation)
}

func aggregate(rows []chart.Row, instruction chart.Instruction, sortDirective chart.Sort) (chart.Output, grouping) {
	if instruction.Kind.Shape() == chart.ShapeHierarchy {
		g := group(rows, instruction, hierarchyKey)
		hierarchy := finalizeHierarchy(g, instruction.Aggregation)
		return chart.Output{Shape: chart.ShapeHierarchy, Hierarchy: &hierarchy}, g
	}
	g := group(rows, instruction, flatKey)
	return chart.Output{Shape: chart.ShapeFlat, Flat: finalizeFlat(g, instruction.Aggregation, sortDirective)}, g
}

type keyFunc func(row chart.Row, column string) string

func flatKey(row chart.Row, column string) string {
	return row[column]
}

func hierarchyKey(row chart.Row, column string) string {
	if key := row[column]; key != "" {
		return key
	}
	return UnknownLabel
}

func group(rows []chart.Row, instruction chart.Instruction, key keyFunc) grouping {
	g := grouping{groups: map[string]*accumulator{}}
	countOnly := instruction.Aggregation == chart.AggregationCount

	for _, row := range rows {
		k := key(row, instruction.GroupBy)
		acc, ok := g.groups[k]
		if !ok {
			acc = &accumulator{}
			g.groups[k] = acc
			g.order = append(g.order, k)
		}
		acc.count++
		if countOnly {
			continue
		}
		cell, present := row[instruction.Value]
		if !present {
			continue
		}
		value, exact := parseCell(cell)
		if !exact {
			g.coercedCells++
		}
		acc.total += value
	}
	return g
}

func reduce(acc *accumulator, aggregation chart.Aggregation) float64 {
	switch aggregation {
	case chart.AggregationAverage:
		return finite(acc.total / float64(acc.count))
	case chart.AggregationCount:
		return float64(acc.count)
	default:
		return finite(acc.total)
	}
}

func finalizeFlat(g grouping, aggregation chart.Aggregation, sortDirective chart.Sort) chart.Flat {
	flat := make(chart.Flat, 0, len(g.order))
	for _, key := range g.order {
		flat = append(flat, chart.Entry{Label: key, Value: reduce(g.groups[key], aggregation)})
	}
	SortFlat(flat, sortDirective)
	return flat
}

// SortFlat reorders flat in place by value. Any directive other than
// ascending or descending leaves it untouched.
func SortFlat(flat chart.Flat, sortDirective chart.Sort) {
	switch sortDirective {
	case chart.SortAscending:
		sort.SliceStable(flat, func(i, j int) bool { return flat[i].Value < flat[j].Value })
	case chart.SortDescending:
		sort.SliceStable(flat, func(i, j int) bool { return flat[i].Value > flat[j].Value })
	}
}

func finalizeHierarchy(g grouping, aggregation chart.Aggregation) chart.Hierarchy {
	children := make([]chart.Node, 0, len(g.order))
	for _, key := range g.order {
		children = append(children, chart.Node{
			Name:  key,
			ID:    key,
			Value: math.Max(reduce(g.groups[key], aggregation), chart.MinSegmentValue),
		})
	}
	return chart.Hierarchy{Root: chart.Node{Name: chart.RootName, Children: children}}
}
