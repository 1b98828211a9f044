package docstore

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"time"
)

// Document is a stored snapshot. Data holds JSON-shaped values only
// (string, float64, bool, nil, []any, map[string]any).
type Document struct {
	Path       string
	ID         string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document data into v the way encoding/json would.
func (d *Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = deepCopy(d.Data).(map[string]any)
	return &c
}

// Equal compares path, update time and data.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == nil && o == nil
	}
	return d.Path == o.Path && d.UpdateTime.Equal(o.UpdateTime) && reflect.DeepEqual(d.Data, o.Data)
}

func equalDocs(a, b []*Document) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Encode converts v (usually a tagged struct) into document data.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("document data must be an object: %w", err)
	}
	return out, nil
}

type serverTimestamp struct{}

// ServerTimestamp, used as a field value, is replaced with the commit time.
var ServerTimestamp any = serverTimestamp{}

// TimeFormat is how timestamps are stored in document data.
const TimeFormat = time.RFC3339Nano

// normalize resolves server timestamps and reduces data to JSON shapes.
func normalize(data map[string]any, now time.Time) (map[string]any, error) {
	resolved := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			v = now.UTC().Format(TimeFormat)
		}
		resolved[k] = v
	}
	return Encode(resolved)
}

func normalizeValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := maps.Clone(t)
		for k, x := range m {
			m[k] = deepCopy(x)
		}
		if m == nil {
			m = map[string]any{}
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = deepCopy(x)
		}
		return s
	default:
		return v
	}
}
