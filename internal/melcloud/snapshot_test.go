package melcloud

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_Equal(t *testing.T) {
	base := Snapshot{
		Entry: json.RawMessage(`{"DeviceID":1,"Device":{"HasZone2":false}}`),
		State: json.RawMessage(`{"Power":true,"SetTemperatureZone1":21}`),
	}

	tests := []struct {
		name  string
		other Snapshot
		want  bool
	}{
		{"identical", base.Clone(), true},
		{"reordered keys", Snapshot{
			Entry: json.RawMessage(`{"Device":{"HasZone2":false},"DeviceID":1}`),
			State: json.RawMessage(`{ "SetTemperatureZone1": 21, "Power": true }`),
		}, true},
		{"state changed", Snapshot{Entry: base.Entry, State: json.RawMessage(`{"Power":false,"SetTemperatureZone1":21}`)}, false},
		{"entry changed", Snapshot{Entry: json.RawMessage(`{"DeviceID":1,"Device":{"HasZone2":true}}`), State: base.State}, false},
		{"empty state", Snapshot{Entry: base.Entry}, false},
		{"invalid json", Snapshot{Entry: base.Entry, State: json.RawMessage(`{`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot_EqualEmpty(t *testing.T) {
	if !(Snapshot{}).Equal(Snapshot{}) {
		t.Error("zero snapshots should be equal")
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	s := Snapshot{State: json.RawMessage(`{"a":1}`)}
	c := s.Clone()
	c.State[5] = '2'
	if string(s.State) != `{"a":1}` {
		t.Errorf("original mutated: %s", s.State)
	}
}

func TestSnapshot_WithState(t *testing.T) {
	s := Snapshot{Entry: json.RawMessage(`{"DeviceID":3}`), State: json.RawMessage(`{"Power":false}`)}
	m, err := s.StateMap()
	if err != nil {
		t.Fatalf("StateMap() error = %v", err)
	}
	m["Power"] = true

	patched, err := s.WithState(m)
	if err != nil {
		t.Fatalf("WithState() error = %v", err)
	}
	if string(s.State) != `{"Power":false}` {
		t.Errorf("original state mutated: %s", s.State)
	}
	want := Snapshot{Entry: s.Entry, State: json.RawMessage(`{"Power":true}`)}
	if !patched.Equal(want) {
		t.Errorf("WithState() = %s, want %s", patched.State, want.State)
	}
}

func TestSnapshot_StateMapErrors(t *testing.T) {
	for _, body := range []string{``, `null`, `[1]`} {
		s := Snapshot{State: json.RawMessage(body)}
		if _, err := s.StateMap(); err == nil {
			t.Errorf("StateMap(%q) error = nil, want error", body)
		}
	}
}

func TestPretty(t *testing.T) {
	got := string(Pretty([]byte(`{"a":1,"b":[1,2]}`)))
	want := "{\n  \"a\": 1,\n  \"b\": [\n    1,\n    2\n  ]\n}"
	if got != want {
		t.Errorf("Pretty() = %q, want %q", got, want)
	}

	if got := string(Pretty([]byte("not json"))); got != "not json" {
		t.Errorf("Pretty(invalid) = %q, want input unchanged", got)
	}
}
