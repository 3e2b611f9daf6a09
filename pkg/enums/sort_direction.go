package enums

import (
	"fmt"
	"strings"
)

// SortDirection is the history ordering accepted by the backend.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

// ParseSortDirection normalizes case; empty input defaults to DESC.
func ParseSortDirection(value string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", string(SortDirectionDesc):
		return SortDirectionDesc, nil
	case string(SortDirectionAsc):
		return SortDirectionAsc, nil
	}
	return "", fmt.Errorf("invalid sort direction %q", value)
}
