package melcloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Snapshot is the last known vendor data for one device: the list-endpoint
// entry (capabilities, presets, units) and the Device/Get state body.
//
// Snapshots are values; Clone before mutating the underlying bytes.
type Snapshot struct {
	Entry json.RawMessage `json:"entry"`
	State json.RawMessage `json:"state"`
}

// Equal reports whether two snapshots are structurally equal as JSON.
// Key order and insignificant whitespace are ignored.
func (s Snapshot) Equal(other Snapshot) bool {
	return jsonEqual(s.Entry, other.Entry) && jsonEqual(s.State, other.State)
}

// Clone returns a snapshot that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Entry: append(json.RawMessage(nil), s.Entry...),
		State: append(json.RawMessage(nil), s.State...),
	}
}

// StateMap decodes the state body into a generic map.
func (s Snapshot) StateMap() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(s.State, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding device state: %v", ErrData, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty device state", ErrData)
	}
	return m, nil
}

// WithState returns a copy of s whose state body is the encoding of m.
func (s Snapshot) WithState(m map[string]any) (Snapshot, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding device state: %w", err)
	}
	return Snapshot{
		Entry: append(json.RawMessage(nil), s.Entry...),
		State: data,
	}, nil
}

func jsonEqual(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// Pretty indents raw JSON with two spaces. Invalid input is returned as is.
func Pretty(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}
