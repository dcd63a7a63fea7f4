package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Measurement names.
const (
	MeasurementDevice = "melcloud_device"
	MeasurementZone   = "melcloud_zone"
)

const defaultBuffer = 256

// Writer accepts points. *influxdb.Client satisfies it.
type Writer interface {
	Write(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Observer counts relayed messages.
type Observer interface {
	ObserveRelayMessage(relay string)
}

// Point is one measurement ready to write.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
}

// Sink forwards state changes from the bus to a Writer.
type Sink struct {
	bus      *events.Bus
	writer   Writer
	observer Observer
	buffer   int
}

// NewSink creates a sink. A nil observer is allowed.
func NewSink(bus *events.Bus, writer Writer, observer Observer) *Sink {
	return &Sink{bus: bus, writer: writer, observer: observer, buffer: defaultBuffer}
}

// Run consumes events until ctx is cancelled or the bus closes.
func (s *Sink) Run(ctx context.Context) {
	sub := s.bus.Subscribe(s.buffer, events.TypeStateChanged)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			s.Record(ev)
		}
	}
}

// Record writes the points for one event and returns how many were written.
func (s *Sink) Record(ev events.Event) int {
	if ev.Type != events.TypeStateChanged || ev.Source == "command" {
		return 0
	}
	res, ok := ev.Data.(zone.Result)
	if !ok {
		return 0
	}

	points := Points(ev.Account, res)
	for _, p := range points {
		s.writer.Write(p.Measurement, p.Tags, p.Fields, ev.Timestamp)
	}
	if len(points) > 0 && s.observer != nil {
		s.observer.ObserveRelayMessage("influxdb")
	}
	return len(points)
}

// Points converts one translation into its device and zone points.
func Points(account string, res zone.Result) []Point {
	base := map[string]string{
		"account":     account,
		"device_id":   strconv.Itoa(res.DeviceID),
		"device_name": res.DeviceName,
		"family":      res.Family.Slug(),
	}

	points := make([]Point, 0, len(res.Zones)+1)
	points = append(points, Point{
		Measurement: MeasurementDevice,
		Tags:        base,
		Fields: map[string]any{
			"power":   res.Power,
			"offline": res.Offline,
		},
	})

	for _, z := range res.Zones {
		tags := make(map[string]string, len(base)+2)
		for k, v := range base {
			tags[k] = v
		}
		tags["role"] = z.Role.String()
		tags["index"] = strconv.Itoa(z.Index)

		fields := map[string]any{
			"power":              z.Power,
			"current_state":      z.CurrentState,
			"target_state":       z.TargetState,
			"room_temperature":   z.RoomTemperature,
			"target_temperature": z.TargetTemperature,
			"locked":             z.Locked,
		}
		if z.FlowTemperature != nil {
			fields["flow_temperature"] = *z.FlowTemperature
		}
		if z.ReturnTemperature != nil {
			fields["return_temperature"] = *z.ReturnTemperature
		}
		points = append(points, Point{Measurement: MeasurementZone, Tags: tags, Fields: fields})
	}
	return points
}
