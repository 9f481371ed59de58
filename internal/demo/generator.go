package demo

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/chartmesh/chartmesh/internal/chart"
)

var (
	columns    = []string{"Region", "Product", "Channel", "Sales", "Units"}
	regions    = []string{"East", "West", "North", "South", "Central"}
	products   = []string{"Widget", "Gadget", "Gizmo", "Doohickey"}
	channels   = []string{"Online", "Retail", "Partner"}
	dirtySales = []string{"n/a", "1,200", "", "12kg", "TBD"}

	queryTemplates = []string{
		"Show sales by region",
		"average sales by product",
		"count by channel",
		"total units by region as a pie",
		"sales by product as a doughnut",
		"sunburst of sales by region",
		"heatmap of units by channel",
		"stacked bar of sales by channel",
		"tree map of sales by product",
		"avg units by region line chart",
		"polar area of sales by region",
		"radar of units by product",
	}
)

// Generator produces sales-like rows. The same seed always yields the same
// rows and queries.
type Generator struct {
	rnd        *rand.Rand
	dirtyRatio float64
}

func NewGenerator(seed int64, dirtyRatio float64) *Generator {
	return &Generator{
		rnd:        rand.New(rand.NewSource(seed)),
		dirtyRatio: dirtyRatio,
	}
}

func Columns() []string {
	return append([]string(nil), columns...)
}

func (g *Generator) NextRow() chart.Row {
	units := g.rnd.Intn(40) + 1
	price := 5 + g.rnd.Float64()*95
	row := chart.Row{
		"Region":  pickOne(g.rnd, regions),
		"Product": pickOne(g.rnd, products),
		"Channel": pickOne(g.rnd, channels),
		"Sales":   strconv.FormatFloat(round2(price*float64(units)), 'f', -1, 64),
		"Units":   strconv.Itoa(units),
	}
	if g.dirtyRatio > 0 && g.rnd.Float64() < g.dirtyRatio {
		g.dirty(row)
	}
	return row
}

func (g *Generator) Dataset(rows int) chart.Dataset {
	dataset := chart.Dataset{Columns: Columns(), Rows: make([]chart.Row, 0, rows)}
	for i := 0; i < rows; i++ {
		dataset.Rows = append(dataset.Rows, g.NextRow())
	}
	return dataset
}

func (g *Generator) NextQuery() string {
	return pickOne(g.rnd, queryTemplates)
}

func (g *Generator) dirty(row chart.Row) {
	switch g.rnd.Intn(3) {
	case 0:
		row["Sales"] = pickOne(g.rnd, dirtySales)
	case 1:
		delete(row, "Units")
	default:
		row["Region"] = ""
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
