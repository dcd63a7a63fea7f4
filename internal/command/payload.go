package command

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrBadPayload is returned when an integration payload is not a JSON object.
var ErrBadPayload = errors.New("command: payload must be a JSON object")

// DecodePayload parses an integration payload into {key: value} pairs
// for ApplyExternal. Numbers decode as float64.
func DecodePayload(payload []byte) (map[string]any, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrBadPayload
	}
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsObject() {
		return nil, ErrBadPayload
	}

	values := make(map[string]any)
	parsed.ForEach(func(key, value gjson.Result) bool {
		values[key.String()] = value.Value()
		return true
	})
	return values, nil
}
