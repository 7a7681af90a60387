package emit

import (
	"encoding/json"
	"fmt"

	"zclc/internal/zcl"
)

// EncodeJSON renders a catalog as indented JSON.
func EncodeJSON(cat *zcl.Catalog) ([]byte, error) {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a catalog written by EncodeJSON.
func DecodeJSON(data []byte) (*zcl.Catalog, error) {
	var cat zcl.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := cat.Bind(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &cat, nil
}
