// Package influxdb provides the InfluxDB v2 connection used for zone
// telemetry.
//
// It wraps influxdb-client-go with connection checks, a non-blocking
// batched write API and health monitoring. Batching follows the
// influxdb section of config.yaml (batch_size, flush_interval).
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Write("melcloud_zone", tags, fields, time.Now())
//
// Write errors are delivered asynchronously to the SetOnError callback.
// Connect and HealthCheck errors are returned directly.
package influxdb
