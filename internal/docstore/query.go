package docstore

import (
	"reflect"
	"slices"
	"strings"
)

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects the direct children of a collection matching every filter.
// Results are ordered by document id.
type Query struct {
	Collection string
	Filters    []Filter
}

func Collection(path string) Query {
	return Query{Collection: path}
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Value: value})
	return q
}

// Matches reports whether d belongs to the result set of q.
func (q Query) Matches(d *Document) bool {
	if d == nil || Parent(d.Path) != q.Collection {
		return false
	}
	for _, f := range q.Filters {
		got, ok := d.Data[f.Field]
		if !ok || !reflect.DeepEqual(got, normalizeValue(f.Value)) {
			return false
		}
	}
	return true
}

// SortByID orders documents the way query results are returned.
func SortByID(docs []*Document) {
	slices.SortFunc(docs, func(a, b *Document) int { return strings.Compare(a.ID, b.ID) })
}
