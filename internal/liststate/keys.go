package liststate

import (
	"context"
	"strings"
)

// PageSizeKey is shared by every list of a profile.
const PageSizeKey = "globalPageSize"

const (
	columnsSuffix   = "Columns"
	sortBySuffix    = "SortBy"
	sortOrderSuffix = "SortOrder"
)

// ColumnsKey is the storage key of a list's column configuration.
func ColumnsKey(list string) string { return list + columnsSuffix }

// SortByKey is the storage key of a list's sort column.
func SortByKey(list string) string { return list + sortBySuffix }

// SortOrderKey is the storage key of a list's sort direction.
func SortOrderKey(list string) string { return list + sortOrderSuffix }

// ListOfKey returns the list identity a storage key belongs to. Shared keys
// such as PageSizeKey return ok=false.
func ListOfKey(key string) (string, bool) {
	for _, suffix := range []string{columnsSuffix, sortBySuffix, sortOrderSuffix} {
		if list, ok := strings.CutSuffix(key, suffix); ok && list != "" {
			return list, true
		}
	}
	return "", false
}

// Storage is durable per-profile key-value storage for list preferences.
type Storage interface {
	Get(ctx context.Context, profile, key string) (string, bool, error)
	Set(ctx context.Context, profile, key, value string) error
}
