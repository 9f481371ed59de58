package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"":           0,
		"   ":        0,
		"10":         10,
		"  7.5 ":     7.5,
		"-3":         -3,
		"+4":         4,
		".5":         0.5,
		"5.":         5,
		"1e3":        1000,
		"2E-1":       0.2,
		"3e":         3,
		"4e+":        4,
		"12kg":       12,
		"1,200":      1,
		"$5":         0,
		"abc":        0,
		"-":          0,
		".":          0,
		"-0":         0,
		"NaN":        0,
		"\ufeff42":   42,
		"0x10":       0,
		"1.2.3":      1.2,
		"Infinity":   0,
		"-Infinityx": 0,
		"1e999":      0,
		"-1e999":     0,
		"1e-999":     0,
	}
	for cell, want := range cases {
		assert.Equal(t, want, ParseNumber(cell), "cell %q", cell)
	}
}

func TestParseNumberNegativeZeroIsPositive(t *testing.T) {
	assert.False(t, math.Signbit(ParseNumber("-0.0")))
}

func TestParseCellExactness(t *testing.T) {
	cases := map[string]bool{
		"":          true,
		"10":        true,
		" 10 ":      true,
		"1e5":       true,
		"12kg":      false,
		"abc":       false,
		"1,200":     false,
		"3e":        false,
		"-Infinity": false,
		"1e999":     false,
		"1e-999":    true,
	}
	for cell, want := range cases {
		_, exact := parseCell(cell)
		assert.Equal(t, want, exact, "cell %q", cell)
	}
}
