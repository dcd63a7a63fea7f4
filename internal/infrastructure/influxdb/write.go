package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues a prepared point. Writes are dropped while disconnected.
func (c *Client) WritePoint(p *write.Point) {
	if p == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

// Write queues a point built from measurement, tags and fields at ts.
//
//	client.Write("melcloud_zone",
//	    map[string]string{"device_id": "101", "role": "primary"},
//	    map[string]any{"room_temperature": 21.5},
//	    time.Now())
func (c *Client) Write(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if len(fields) == 0 {
		return
	}
	c.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
