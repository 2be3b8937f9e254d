package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Shape selects how a transformer locates the entity record inside a raw
// item: wrapped in a graph-style envelope, or already a flat dictionary.
// The selection is made at construction time, not by sniffing the payload.
type Shape int

const (
	// ShapeEnvelope unwraps the item from its envelope key first
	ShapeEnvelope Shape = iota
	// ShapeFlat treats the item itself as the entity record
	ShapeFlat
)

// MissingFieldError names the required fields absent from a payload
type MissingFieldError struct {
	Fields []string
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func missingFields(doc map[string]interface{}, required []string) error {
	var missing []string
	for _, field := range required {
		if _, ok := doc[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingFieldError{Fields: missing}
}

// dig walks nested maps, returning nil when any key is absent
func dig(doc map[string]interface{}, keys ...string) interface{} {
	var current interface{} = doc
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

func digMap(doc map[string]interface{}, keys ...string) map[string]interface{} {
	m, _ := dig(doc, keys...).(map[string]interface{})
	return m
}

func digString(doc map[string]interface{}, keys ...string) string {
	s, _ := dig(doc, keys...).(string)
	return s
}

func digBool(doc map[string]interface{}, keys ...string) bool {
	b, _ := dig(doc, keys...).(bool)
	return b
}

// digInt tolerates the numeric encodings JSON decoding produces: float64 for
// plain numbers, plus string counts some payload versions ship.
func digInt(doc map[string]interface{}, keys ...string) int64 {
	switch v := dig(doc, keys...).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		return 0
	default:
		return 0
	}
}
