package chart

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInstruction = errors.New("invalid chart instruction")

var kindAliases = map[string]Kind{
	"polar":        KindPolarArea,
	"polar area":   KindPolarArea,
	"tree":         KindTreemap,
	"tree map":     KindTreemap,
	"donut":        KindDoughnut,
	"grouped bar":  KindGroupedBar,
	"stacked bar":  KindStackedBar,
	"stacked line": KindStackedLine,
}

// ParseKind accepts canonical kind names case-insensitively, plus snake, kebab
// and spaced spellings ("stacked_bar", "polar-area") and a few short aliases.
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", fmt.Errorf("%w: chart kind is required", ErrInvalidInstruction)
	}
	for _, kind := range allKinds {
		if strings.ToLower(string(kind)) == normalized {
			return kind, nil
		}
	}
	spaced := strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	if kind, ok := kindAliases[spaced]; ok {
		return kind, nil
	}
	compact := strings.ReplaceAll(spaced, " ", "")
	for _, kind := range allKinds {
		if strings.ToLower(string(kind)) == compact {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: unknown chart kind %q", ErrInvalidInstruction, raw)
}

// ParseOptionalKind returns nil for blank input so callers can pass the result
// straight through as a manual override.
func ParseOptionalKind(raw string) (*Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	kind, err := ParseKind(raw)
	if err != nil {
		return nil, err
	}
	return &kind, nil
}

func (k Kind) Valid() bool {
	for _, kind := range allKinds {
		if kind == k {
			return true
		}
	}
	return false
}

func ParseAggregation(raw string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sum", "total":
		return AggregationSum, nil
	case "average", "avg", "mean":
		return AggregationAverage, nil
	case "count":
		return AggregationCount, nil
	default:
		return "", fmt.Errorf("%w: unknown aggregation %q", ErrInvalidInstruction, raw)
	}
}

func (a Aggregation) Valid() bool {
	switch a {
	case AggregationSum, AggregationAverage, AggregationCount:
		return true
	default:
		return false
	}
}

// ParseSort maps the directive spellings used by clients onto Sort. Blank and
// "none" mean first-seen order.
func ParseSort(raw string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return SortNone, nil
	case "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return SortNone, fmt.Errorf("unknown sort directive %q", raw)
	}
}

// Validate checks an instruction supplied from outside the resolver against
// the dataset columns. Resolver output always passes for a non-empty schema.
func (i Instruction) Validate(columns []string) error {
	if !i.Kind.Valid() {
		return fmt.Errorf("%w: unknown chart kind %q", ErrInvalidInstruction, i.Kind)
	}
	if !i.Aggregation.Valid() {
		return fmt.Errorf("%w: unknown aggregation %q", ErrInvalidInstruction, i.Aggregation)
	}
	if strings.TrimSpace(i.GroupBy) == "" {
		return fmt.Errorf("%w: group_by is required", ErrInvalidInstruction)
	}
	if !containsColumn(columns, i.GroupBy) {
		return fmt.Errorf("%w: group_by column %q not in dataset", ErrInvalidInstruction, i.GroupBy)
	}
	if i.Value == "" {
		if i.Aggregation != AggregationCount {
			return fmt.Errorf("%w: value_column is required for %s", ErrInvalidInstruction, i.Aggregation)
		}
		return nil
	}
	if !containsColumn(columns, i.Value) {
		return fmt.Errorf("%w: value column %q not in dataset", ErrInvalidInstruction, i.Value)
	}
	return nil
}

func containsColumn(columns []string, name string) bool {
	for _, column := range columns {
		if column == name {
			return true
		}
	}
	return false
}
