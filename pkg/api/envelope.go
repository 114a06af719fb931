package api

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// The backend's list endpoints historically answered in several shapes: a
// bare JSON array, {"data": [...]}, or {"items": [...], "total": n}. All
// list decoding funnels through this one envelope so no call site ever
// sniffs shapes on its own.
type listEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Items json.RawMessage `json:"items"`
	Total int             `json:"total"`
}

// normalizeList extracts the element array from any of the supported
// response shapes.
func normalizeList(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("api: empty list response")
	}
	if trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}
	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Wrap(err, "api: decode list envelope")
	}
	switch {
	case env.Data != nil:
		return env.Data, nil
	case env.Items != nil:
		return env.Items, nil
	default:
		return nil, errors.New("api: list response has neither data nor items")
	}
}

func decodeList[T any](raw []byte) ([]T, error) {
	arr, err := normalizeList(raw)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(arr, &out); err != nil {
		return nil, errors.Wrap(err, "api: decode list elements")
	}
	return out, nil
}
