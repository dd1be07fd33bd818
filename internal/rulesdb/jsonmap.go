package rulesdb

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap adapts a free-form JSONB column to a Go map, matching the
// shape the original schema's `parameters` column carries (the
// min/max filter bounds rete.FilterParamsToConditions consumes).
type JSONMap map[string]any

// Value implements driver.Valuer for GORM writes.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for GORM reads.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("rulesdb: unsupported Scan type %T for JSONMap", value)
	}

	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("rulesdb: unmarshal JSONMap: %w", err)
	}
	*m = decoded
	return nil
}
