package mqtt

import "fmt"

// Topic prefixes for the Veloway station telemetry feed.
//
// Stations publish under: veloway/stations/{station_id}/...
// Dock-level events add a dock segment: .../docks/{dock_id}/...
const (
	// TopicPrefixStations is the base for all station-published topics.
	TopicPrefixStations = "veloway/stations"

	// TopicPrefixGateway is the base for gateway lifecycle topics.
	TopicPrefixGateway = "veloway/gateway"
)

// Topics provides builders for Veloway MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.BikeDetected("stn-042", "dock-3")
//	// Returns: "veloway/stations/stn-042/docks/dock-3/bike/detected"
type Topics struct{}

// BikeDetected returns the topic a station publishes when a bike is
// docked and recognised.
//
// Example: veloway/stations/stn-042/docks/dock-3/bike/detected
func (Topics) BikeDetected(stationID, dockID string) string {
	return fmt.Sprintf("%s/%s/docks/%s/bike/detected", TopicPrefixStations, stationID, dockID)
}

// BikeRemoved returns the topic a station publishes when a bike leaves
// a dock.
//
// Example: veloway/stations/stn-042/docks/dock-3/bike/removed
func (Topics) BikeRemoved(stationID, dockID string) string {
	return fmt.Sprintf("%s/%s/docks/%s/bike/removed", TopicPrefixStations, stationID, dockID)
}

// LockStatus returns the topic for station lock state changes.
//
// Example: veloway/stations/stn-042/lock/status
func (Topics) LockStatus(stationID string) string {
	return fmt.Sprintf("%s/%s/lock/status", TopicPrefixStations, stationID)
}

// Heartbeat returns the topic for periodic station liveness reports.
//
// Example: veloway/stations/stn-042/heartbeat
func (Topics) Heartbeat(stationID string) string {
	return fmt.Sprintf("%s/%s/heartbeat", TopicPrefixStations, stationID)
}

// StationStatus returns the topic for station status updates.
//
// Example: veloway/stations/stn-042/status
func (Topics) StationStatus(stationID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixStations, stationID)
}

// StationError returns the topic for station-reported faults.
//
// Example: veloway/stations/stn-042/error
func (Topics) StationError(stationID string) string {
	return fmt.Sprintf("%s/%s/error", TopicPrefixStations, stationID)
}

// GatewayStatus returns the gateway online/offline topic. This is also
// the Last Will topic, so subscribers learn about unexpected disconnects.
//
// Example: veloway/gateway/status
func (Topics) GatewayStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixGateway)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllStationEvents returns a pattern matching every station-published topic.
//
// Pattern: veloway/stations/+/#
func (Topics) AllStationEvents() string {
	return fmt.Sprintf("%s/+/#", TopicPrefixStations)
}

// AllHeartbeats returns a pattern matching heartbeats from every station.
//
// Pattern: veloway/stations/+/heartbeat
func (Topics) AllHeartbeats() string {
	return fmt.Sprintf("%s/+/heartbeat", TopicPrefixStations)
}

// AllDockEvents returns a pattern matching bike detected/removed events
// from every dock.
//
// Pattern: veloway/stations/+/docks/+/bike/+
func (Topics) AllDockEvents() string {
	return fmt.Sprintf("%s/+/docks/+/bike/+", TopicPrefixStations)
}

// AllLockStatus returns a pattern matching lock status from every station.
//
// Pattern: veloway/stations/+/lock/status
func (Topics) AllLockStatus() string {
	return fmt.Sprintf("%s/+/lock/status", TopicPrefixStations)
}
