package core

import (
	"sort"
	"strings"
)

// DBOrdering is one `ordering` term: a field and its direction.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields where a leading "-" means descending,
// e.g. "-points,name". Fields not listed in allowed are dropped.
func ParseOrdering(s string, allowed ...string) []DBOrdering {
	if s == "" {
		return nil
	}
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)

	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		if len(sorted) > 0 {
			if i := sort.SearchStrings(sorted, field); i >= len(sorted) || sorted[i] != field {
				continue
			}
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}
