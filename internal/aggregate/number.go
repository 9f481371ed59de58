package aggregate

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber coerces a raw cell to a float using the longest leading numeric
// prefix: "12.5kg" is 12.5, "1,200" is 1, "abc" and "" are 0. Anything that is
// not a finite number ("Infinity", "1e999", "NaN") and negative zero also come
// back as 0. Bad input is never an error; dirty cells just contribute nothing.
func ParseNumber(cell string) float64 {
	value, _ := parseCell(cell)
	return value
}

// parseCell reports whether the whole trimmed cell was consumed as a number.
// Blank cells are not counted as coerced.
func parseCell(cell string) (float64, bool) {
	trimmed := strings.TrimLeftFunc(cell, isNumberSpace)
	if trimmed == "" {
		return 0, true
	}

	n := numericPrefixLen(trimmed)
	if n == 0 {
		return 0, false
	}
	// Underflow rounds to zero with ErrRange and is kept; overflow is not a
	// finite number and coerces like any other dirty cell.
	value, err := strconv.ParseFloat(trimmed[:n], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	if value == 0 {
		value = 0
	}
	return value, n == len(strings.TrimRightFunc(trimmed, isNumberSpace))
}

// finite maps a reduction that overflowed to 0 so results always encode.
func finite(value float64) float64 {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0
	}
	return value
}

// numericPrefixLen returns the length of the longest prefix of s shaped like
// [+-]digits[.digits][(e|E)[+-]digits]. An exponent without digits is not
// part of the prefix.
func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits := i - intStart
	if i < len(s) && s[i] == '.' {
		fracStart := i + 1
		j := fracStart
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if digits > 0 || j > fracStart {
			digits += j - fracStart
			i = j
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			i = j
		}
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isNumberSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
