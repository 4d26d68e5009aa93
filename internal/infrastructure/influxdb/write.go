package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDockEvent records a bike docked/undocked event from a station.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - stationID: Station identifier (e.g., "stn-042")
//   - dockID: Dock identifier within the station (e.g., "dock-3")
//   - event: Event name ("bike_detected" or "bike_removed")
//   - bikeID: Bike identifier, empty if not reported
//
// Example:
//
//	client.WriteDockEvent("stn-042", "dock-3", "bike_detected", "bike-117")
func (c *Client) WriteDockEvent(stationID, dockID, event, bikeID string) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"count": int64(1),
	}
	if bikeID != "" {
		fields["bike_id"] = bikeID
	}

	point := write.NewPoint(
		"station_events",
		map[string]string{
			"station_id": stationID,
			"dock_id":    dockID,
			"event":      event,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLockStatus records a station lock state change.
//
// Parameters:
//   - stationID: Station identifier
//   - status: Lock state as reported ("LOCKED", "UNLOCKED", "FAULT")
func (c *Client) WriteLockStatus(stationID, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"station_lock",
		map[string]string{
			"station_id": stationID,
		},
		map[string]interface{}{
			"status": status,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHeartbeat records a periodic station liveness report.
//
// Parameters:
//   - stationID: Station identifier
//   - batteryPct: Station battery level (0-100, use -1 if not reported)
//   - bikesDocked: Number of bikes currently docked
func (c *Client) WriteHeartbeat(stationID string, batteryPct float64, bikesDocked int) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"bikes_docked": int64(bikesDocked),
	}
	if batteryPct >= 0 {
		fields["battery_pct"] = batteryPct
	}

	point := write.NewPoint(
		"station_heartbeat",
		map[string]string{
			"station_id": stationID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., a station flushing
// events buffered while offline).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
