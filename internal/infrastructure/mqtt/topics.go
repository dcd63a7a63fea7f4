package mqtt

import "strings"

// Device topic leaves.
const (
	LeafInfo  = "Info"
	LeafState = "State"
	LeafZones = "Zones"
	LeafSet   = "Set"
)

// Topics builds the bridge's topic names under a prefix.
//
//	topics := mqtt.Topics{Prefix: "melcloud"}
//	topics.DeviceState("atw", "heat-pump-10")
//	// Returns: "melcloud/atw/heat-pump-10/State"
type Topics struct {
	Prefix string
}

// Status returns the retained online/offline topic.
func (t Topics) Status() string {
	return t.join("bridge", "status")
}

// Device returns a device topic for one leaf.
func (t Topics) Device(family, device, leaf string) string {
	return t.join(Segment(family), Segment(device), leaf)
}

// DeviceInfo returns the device info topic.
func (t Topics) DeviceInfo(family, device string) string {
	return t.Device(family, device, LeafInfo)
}

// DeviceState returns the raw state topic.
func (t Topics) DeviceState(family, device string) string {
	return t.Device(family, device, LeafState)
}

// DeviceZones returns the translated zone state topic.
func (t Topics) DeviceZones(family, device string) string {
	return t.Device(family, device, LeafZones)
}

// DeviceSet returns the inbound command topic.
func (t Topics) DeviceSet(family, device string) string {
	return t.Device(family, device, LeafSet)
}

// AllSets matches the command topic of every device.
func (t Topics) AllSets() string {
	return t.join("+", "+", LeafSet)
}

// Event returns the topic for one bridge event type.
func (t Topics) Event(eventType string) string {
	return t.join("events", Segment(eventType))
}

// ParseSet splits a command topic into family and device segments.
func (t Topics) ParseSet(topic string) (family, device string, ok bool) {
	rest, found := strings.CutPrefix(topic, strings.TrimSuffix(t.Prefix, "/")+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != LeafSet || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		return strings.Join(parts, "/")
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// Segment makes s safe for use as one topic level: separators and
// wildcards become dashes.
func Segment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
}
