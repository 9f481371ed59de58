package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartmesh/chartmesh/internal/chart"
	"github.com/chartmesh/chartmesh/internal/storage"
)

type memoryReader struct {
	objects map[string][]byte
}

func (m *memoryReader) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryReader) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryReader) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	objects := make([]storage.ObjectInfo, 0)
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return objects, nil
}

func TestObjectSourceLoadsByExtension(t *testing.T) {
	source := NewObjectSource(&memoryReader{objects: map[string][]byte{
		"sales/q1.csv": []byte("Region,Sales\nEast,10\n"),
	}}, 0)

	dataset, format, err := source.Load(context.Background(), "sales/q1.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)
	assert.Equal(t, []chart.Row{{"Region": "East", "Sales": "10"}}, dataset.Rows)
}

func TestObjectSourceMissingObject(t *testing.T) {
	source := NewObjectSource(&memoryReader{objects: map[string][]byte{}}, 0)
	_, _, err := source.Load(context.Background(), "missing.csv", Options{})
	require.True(t, errors.Is(err, storage.ErrObjectNotFound), "err = %v", err)
}

func TestObjectSourceRejectsUnknownExtension(t *testing.T) {
	source := NewObjectSource(&memoryReader{objects: map[string][]byte{"a.json": []byte("{}")}}, 0)
	_, _, err := source.Load(context.Background(), "a.json", Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestObjectSourceEnforcesSizeLimit(t *testing.T) {
	source := NewObjectSource(&memoryReader{objects: map[string][]byte{
		"big.csv": []byte("Region,Sales\nEast,10\nWest,20\n"),
	}}, 8)
	_, _, err := source.Load(context.Background(), "big.csv", Options{})
	require.ErrorIs(t, err, ErrDatasetTooLarge)
}

func TestObjectSourceListFiltersUnsupported(t *testing.T) {
	source := NewObjectSource(&memoryReader{objects: map[string][]byte{
		"sales/q1.csv":       []byte("a"),
		"sales/q2.parquet":   []byte("b"),
		"sales/readme.md":    []byte("c"),
		"finance/budget.csv": []byte("d"),
	}}, 0)

	datasets, err := source.List(context.Background(), "sales/")
	require.NoError(t, err)
	keys := make([]string, 0, len(datasets))
	for _, dataset := range datasets {
		keys = append(keys, dataset.Key)
	}
	assert.ElementsMatch(t, []string{"sales/q1.csv", "sales/q2.parquet"}, keys)
}

func TestObjectSourceWithoutReader(t *testing.T) {
	source := NewObjectSource(nil, 0)
	_, _, err := source.Load(context.Background(), "a.csv", Options{})
	require.Error(t, err)
	_, err = source.List(context.Background(), "")
	require.Error(t, err)
}
