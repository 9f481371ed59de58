package chart

// RootName labels the synthetic root wrapping hierarchy children.
const RootName = "Root"

// MinSegmentValue is the floor applied to every hierarchy child so consumers
// never receive zero or negative arcs.
const MinSegmentValue = 0.1

type Entry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Flat is an ordered category to value mapping.
type Flat []Entry

func (f Flat) Labels() []string {
	labels := make([]string, len(f))
	for i, entry := range f {
		labels[i] = entry.Label
	}
	return labels
}

func (f Flat) Values() []float64 {
	values := make([]float64, len(f))
	for i, entry := range f {
		values[i] = entry.Value
	}
	return values
}

// Lookup returns the value for label and whether it exists.
func (f Flat) Lookup(label string) (float64, bool) {
	for _, entry := range f {
		if entry.Label == label {
			return entry.Value, true
		}
	}
	return 0, false
}

type Node struct {
	Name     string  `json:"name"`
	ID       string  `json:"id,omitempty"`
	Value    float64 `json:"value"`
	Children []Node  `json:"children,omitempty"`
}

type Hierarchy struct {
	Root Node `json:"root"`
}

// Output is the tagged union returned by the engine: exactly one of Flat or
// Hierarchy is meaningful, selected by Shape.
type Output struct {
	Shape     Shape      `json:"shape"`
	Flat      Flat       `json:"flat"`
	Hierarchy *Hierarchy `json:"hierarchy,omitempty"`
}

// Len is the number of categories in the output regardless of shape.
func (o Output) Len() int {
	if o.Shape == ShapeHierarchy {
		if o.Hierarchy == nil {
			return 0
		}
		return len(o.Hierarchy.Root.Children)
	}
	return len(o.Flat)
}
