package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetJSONKeepsExplicitColumns(t *testing.T) {
	var ds Dataset
	err := json.Unmarshal([]byte(`{"columns":["Region","Sales"],"rows":[{"Sales":"10","Region":"East"}]}`), &ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Sales"}, ds.Columns)
	assert.Equal(t, []Row{{"Region": "East", "Sales": "10"}}, ds.Rows)
}

func TestDatasetJSONDerivesColumnsFromFirstRowOrder(t *testing.T) {
	var ds Dataset
	err := json.Unmarshal([]byte(`{"rows":[{"Zone":"A","Score":"1"},{"Score":"2","Zone":"B","Notes":"x"}]}`), &ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zone", "Score", "Notes"}, ds.Columns)
	assert.Len(t, ds.Rows, 2)
}

func TestDatasetJSONSkipsEmptyAndDuplicateKeys(t *testing.T) {
	var ds Dataset
	err := json.Unmarshal([]byte(`{"rows":[{"b":"1","":"x","a":"2"},{"a":"3","b":"4"}]}`), &ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ds.Columns)
}

func TestDatasetJSONRejectsBadInput(t *testing.T) {
	for _, body := range []string{
		`{"rows":[{"Region":1}]}`,
		`{"rows":[],"extra":true}`,
		`{"rows":"nope"}`,
	} {
		var ds Dataset
		assert.Error(t, json.Unmarshal([]byte(body), &ds), body)
	}
}

func TestDatasetJSONWithoutRows(t *testing.T) {
	var ds Dataset
	require.NoError(t, json.Unmarshal([]byte(`{"rows":[]}`), &ds))
	assert.Empty(t, ds.Columns)
	assert.NotNil(t, ds.Rows)
}
