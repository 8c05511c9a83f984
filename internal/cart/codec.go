package cart

import (
	"encoding/json"
	"fmt"
)

// EncodeItems serializes lines for a store record.
func EncodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}
	return raw, nil
}

// DecodeItems parses a store record. Lines without a sku or with a non-positive
// quantity are dropped and duplicate skus are merged, so a decoded list always
// satisfies the one-line-per-sku rule. Empty input decodes to an empty list.
func DecodeItems(raw []byte) ([]LineItem, error) {
	if len(raw) == 0 {
		return []LineItem{}, nil
	}
	var decoded []LineItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return New("", decoded).Lines(), nil
}
