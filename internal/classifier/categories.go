package classifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CategoryMap resolves cluster ids to support categories. Resolve is total:
// unmapped ids fall back to a synthetic label.
type CategoryMap struct {
	names    map[int]string
	fallback string
}

// NewCategoryMap builds a map. A fallback containing %d receives the id.
func NewCategoryMap(names map[int]string, fallback string) CategoryMap {
	copied := make(map[int]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	if fallback == "" {
		fallback = "Cluster %d"
	}
	return CategoryMap{names: copied, fallback: fallback}
}

// DefaultAPICategories is the table served by the HTTP entry point.
func DefaultAPICategories() CategoryMap {
	return NewCategoryMap(map[int]string{
		0: "Incident",
		1: "Request",
		2: "Change",
		3: "Problem",
	}, "Cluster %d")
}

// DefaultBatchCategories is the table used by the batch entry point. Its
// ordering differs from the API table on purpose; each deployment reviews
// its own clusters.
func DefaultBatchCategories() CategoryMap {
	return NewCategoryMap(map[int]string{
		0: "Request",
		1: "Incident",
		2: "Change",
		3: "Problem",
	}, "Unknown")
}

// ParseCategoryMap parses "0:Incident,1:Request". An empty spec yields base.
func ParseCategoryMap(spec string, base CategoryMap) (CategoryMap, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return base, nil
	}
	names := make(map[int]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return CategoryMap{}, fmt.Errorf("invalid category entry %q", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return CategoryMap{}, fmt.Errorf("invalid cluster id in %q: %w", pair, err)
		}
		name := strings.TrimSpace(value)
		if name == "" {
			return CategoryMap{}, fmt.Errorf("empty category name for cluster %d", id)
		}
		names[id] = name
	}
	return NewCategoryMap(names, base.fallback), nil
}

// WithFallback returns a copy using a different fallback label.
func (m CategoryMap) WithFallback(fallback string) CategoryMap {
	return NewCategoryMap(m.names, fallback)
}

// Resolve returns the category for a cluster id.
func (m CategoryMap) Resolve(id int) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	fallback := m.fallback
	if fallback == "" {
		fallback = "Cluster %d"
	}
	if strings.Contains(fallback, "%d") {
		return fmt.Sprintf(fallback, id)
	}
	return fallback
}

// IDs lists the mapped cluster ids in ascending order.
func (m CategoryMap) IDs() []int {
	ids := make([]int, 0, len(m.names))
	for id := range m.names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
