package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chartmesh/chartmesh/internal/chart"
	"github.com/chartmesh/chartmesh/internal/storage"
)

var ErrDatasetTooLarge = errors.New("dataset exceeds size limit")

type ObjectInfo struct {
	storage.ObjectInfo
	Format Format `json:"format"`
}

// ObjectSource loads datasets from an object bucket by key.
type ObjectSource struct {
	Reader   storage.ObjectReader
	MaxBytes int64
}

func NewObjectSource(reader storage.ObjectReader, maxBytes int64) *ObjectSource {
	return &ObjectSource{Reader: reader, MaxBytes: maxBytes}
}

func (s *ObjectSource) Load(ctx context.Context, key string, opts Options) (chart.Dataset, Format, error) {
	if s.Reader == nil {
		return chart.Dataset{}, "", fmt.Errorf("object store is not configured")
	}
	format, err := FormatFromName(key)
	if err != nil {
		return chart.Dataset{}, "", err
	}
	if s.MaxBytes > 0 {
		info, err := s.Reader.Stat(ctx, key)
		if err != nil {
			return chart.Dataset{}, format, fmt.Errorf("stat dataset %q: %w", key, err)
		}
		if info.Size > s.MaxBytes {
			return chart.Dataset{}, format, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrDatasetTooLarge, key, info.Size, s.MaxBytes)
		}
	}

	body, err := s.Reader.Get(ctx, key)
	if err != nil {
		return chart.Dataset{}, format, fmt.Errorf("get dataset %q: %w", key, err)
	}
	defer func() { _ = body.Close() }()

	var r io.Reader = body
	if s.MaxBytes > 0 {
		r = io.LimitReader(body, s.MaxBytes)
	}
	dataset, err := Decode(format, r, opts)
	if err != nil {
		return chart.Dataset{}, format, fmt.Errorf("decode dataset %q: %w", key, err)
	}
	return dataset, format, nil
}

// List returns the objects under prefix whose extension maps to a format.
func (s *ObjectSource) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if s.Reader == nil {
		return nil, fmt.Errorf("object store is not configured")
	}
	objects, err := s.Reader.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	datasets := make([]ObjectInfo, 0, len(objects))
	for _, object := range objects {
		format, err := FormatFromName(object.Key)
		if err != nil {
			continue
		}
		datasets = append(datasets, ObjectInfo{ObjectInfo: object, Format: format})
	}
	return datasets, nil
}
