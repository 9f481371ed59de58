package resolver

import (
	"regexp"
	"strings"
)

var (
	alphabeticPattern  = regexp.MustCompile(`[a-zA-Z]`)
	valueColumnPattern = regexp.MustCompile(`(?i)sales|amount|price|value|total`)
)

// valueFallbackOrdinal skips column 0, which in typical uploads is an
// identifier or the category column.
const valueFallbackOrdinal = 1

// attributeGroupBy scans for "by <column>" mentions. A later column in schema
// order overrides an earlier one.
func attributeGroupBy(lower string, columns []string) string {
	groupBy := ""
	for _, column := range columns {
		if strings.Contains(lower, "by "+strings.ToLower(column)) {
			groupBy = column
		}
	}
	return groupBy
}

// attributeValue returns the first mentioned column that is not "by"-qualified.
func attributeValue(lower string, columns []string) string {
	for _, column := range columns {
		lowerColumn := strings.ToLower(column)
		if !strings.Contains(lower, lowerColumn) {
			continue
		}
		if strings.Contains(lower, "by "+lowerColumn) {
			continue
		}
		return column
	}
	return ""
}

func fallbackGroupBy(columns []string) string {
	for _, column := range columns {
		if alphabeticPattern.MatchString(column) {
			return column
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

func fallbackValue(columns []string) string {
	for _, column := range columns {
		if valueColumnPattern.MatchString(column) {
			return column
		}
	}
	if len(columns) > valueFallbackOrdinal {
		return columns[valueFallbackOrdinal]
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}
