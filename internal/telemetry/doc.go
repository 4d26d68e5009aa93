// Package telemetry ingests docking-station events from MQTT and
// records them to InfluxDB.
//
// Stations publish JSON events (bike detected/removed, lock status,
// heartbeats) under veloway/stations/...; the Ingestor subscribes to
// those topics, decodes each payload and writes a measurement point.
// Malformed payloads are logged and dropped - a misbehaving station
// must not stall the feed.
package telemetry
