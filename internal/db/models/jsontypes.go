package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice persists a []string as a JSON array column, used for
// automation-log recipient sets and per-recipient error messages.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal([]string(s))
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}
	switch v := value.(type) {
		case []byte:
		if len(v) == 0 {
			*s = StringSlice{}
			return nil
		}
		return json.Unmarshal(v, s)
		case string:
		if v == "" {
			*s = StringSlice{}
			return nil
		}
		return json.Unmarshal([]byte(v), s)
		default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// JSONMap persists a map[string]string as a JSON object column, used for
// webhook custom payload overlays and request header maps.
type JSONMap map[string]string

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(map[string]string(m))
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}
	switch v := value.(type) {
		case []byte:
		if len(v) == 0 {
			*m = make(JSONMap)
			return nil
		}
		return json.Unmarshal(v, m)
		case string:
		if v == "" {
			*m = make(JSONMap)
			return nil
		}
		return json.Unmarshal([]byte(v), m)
		default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// MergeOverlay returns a copy of base with overlay's keys set on top,
// overlay winning on conflict — used by the webhook payload composer to
// overlay custom_payload onto the engine-built event payload. The overlay
// is applied at the top level only; a conflicting key replaces the base
// value whole.
func MergeOverlay(base map[string]interface{}, overlay JSONMap) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
