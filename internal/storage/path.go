package storage

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeKey cleans key and places it under prefix. Keys that are empty or
// escape the prefix are rejected.
func NormalizeKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	prefix = CleanPrefix(prefix)
	if prefix == "" {
		return cleaned, nil
	}
	return path.Join(prefix, cleaned), nil
}

// NormalizeListPrefix is NormalizeKey for listing: an empty key lists the
// whole prefix and a trailing slash is kept.
func NormalizeListPrefix(prefix, key string) (string, error) {
	base := CleanPrefix(prefix)
	if strings.TrimSpace(strings.Trim(key, "/")) == "" {
		if base == "" {
			return "", nil
		}
		return base + "/", nil
	}
	normalized, err := NormalizeKey(prefix, key)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(key, "/") {
		normalized += "/"
	}
	return normalized, nil
}

// RelativeKey strips prefix from a full object key.
func RelativeKey(prefix, key string) string {
	prefix = CleanPrefix(prefix)
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+"/")
}

func CleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}
