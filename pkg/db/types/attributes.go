package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Attributes maps an attribute name to the selected value id (e.g. "color" => "12").
type Attributes map[string]string

func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = Attributes{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Attributes: unsupported Scan type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*a = Attributes{}
		return nil
	}

	out := Attributes{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Attributes: %w", err)
	}
	*a = out
	return nil
}

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]string(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Equal compares attribute sets ignoring key order.
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys returns the attribute names in a stable order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize trims names and values and drops empty entries.
func (a Attributes) Normalize() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}
