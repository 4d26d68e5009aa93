package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veloway/veloway-core/internal/infrastructure/logging"
	"github.com/veloway/veloway-core/internal/infrastructure/mqtt"
)

// StationEvent is the JSON payload stations publish with each event.
// Not every field is present on every topic: dock events carry bike and
// dock identifiers, lock updates carry lockStatus, heartbeats carry
// battery and dock occupancy.
type StationEvent struct {
	EventType   string  `json:"eventType,omitempty"`
	StationID   string  `json:"stationId"`
	DockID      string  `json:"dockId,omitempty"`
	BikeID      string  `json:"bikeId,omitempty"`
	LockStatus  string  `json:"lockStatus,omitempty"`
	BatteryPct  float64 `json:"batteryPct,omitempty"`
	BikesDocked int     `json:"bikesDocked,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// Subscriber is the slice of the MQTT client the ingestor needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Recorder is the slice of the InfluxDB client the ingestor needs.
type Recorder interface {
	WriteDockEvent(stationID, dockID, event, bikeID string)
	WriteLockStatus(stationID, status string)
	WriteHeartbeat(stationID string, batteryPct float64, bikesDocked int)
}

// Ingestor subscribes to station telemetry topics and records events.
type Ingestor struct {
	sub    Subscriber
	rec    Recorder
	logger *logging.Logger
	qos    byte
}

// NewIngestor creates an Ingestor. The logger must not be nil; the
// subscriber and recorder are typically the mqtt and influxdb clients.
func NewIngestor(sub Subscriber, rec Recorder, logger *logging.Logger, qos byte) *Ingestor {
	return &Ingestor{
		sub:    sub,
		rec:    rec,
		logger: logger.With("component", "telemetry"),
		qos:    qos,
	}
}

// Start subscribes to the station telemetry topics. Subscriptions are
// restored automatically by the MQTT client on reconnect, so Start only
// needs to run once.
func (i *Ingestor) Start() error {
	topics := mqtt.Topics{}

	if err := i.sub.Subscribe(topics.AllDockEvents(), i.qos, i.handleDockEvent); err != nil {
		return fmt.Errorf("subscribing to dock events: %w", err)
	}
	if err := i.sub.Subscribe(topics.AllLockStatus(), i.qos, i.handleLockStatus); err != nil {
		return fmt.Errorf("subscribing to lock status: %w", err)
	}
	if err := i.sub.Subscribe(topics.AllHeartbeats(), i.qos, i.handleHeartbeat); err != nil {
		return fmt.Errorf("subscribing to heartbeats: %w", err)
	}

	i.logger.Info("station telemetry ingest started")
	return nil
}

// handleDockEvent processes bike detected/removed events.
//
// Topic shape: veloway/stations/{station}/docks/{dock}/bike/{detected|removed}
func (i *Ingestor) handleDockEvent(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 7 {
		i.logger.Warn("unexpected dock event topic", "topic", topic)
		return nil
	}
	stationID, dockID, action := parts[2], parts[4], parts[6]

	var ev StationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		i.logger.Warn("dropping malformed dock event", "topic", topic, "error", err)
		return nil
	}

	// The topic is authoritative for routing; payload IDs fill gaps.
	if ev.StationID == "" {
		ev.StationID = stationID
	}
	if ev.DockID == "" {
		ev.DockID = dockID
	}

	event := "bike_" + action
	i.rec.WriteDockEvent(ev.StationID, ev.DockID, event, ev.BikeID)
	i.logger.Debug("dock event recorded",
		"station", ev.StationID, "dock", ev.DockID, "event", event, "bike", ev.BikeID)
	return nil
}

// handleLockStatus processes station lock state changes.
//
// Topic shape: veloway/stations/{station}/lock/status
func (i *Ingestor) handleLockStatus(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 {
		i.logger.Warn("unexpected lock status topic", "topic", topic)
		return nil
	}
	stationID := parts[2]

	var ev StationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		i.logger.Warn("dropping malformed lock status", "topic", topic, "error", err)
		return nil
	}
	if ev.StationID == "" {
		ev.StationID = stationID
	}
	if ev.LockStatus == "" {
		i.logger.Warn("lock status missing lockStatus field", "station", ev.StationID)
		return nil
	}

	i.rec.WriteLockStatus(ev.StationID, ev.LockStatus)
	i.logger.Debug("lock status recorded", "station", ev.StationID, "status", ev.LockStatus)
	return nil
}

// handleHeartbeat processes periodic station liveness reports.
//
// Topic shape: veloway/stations/{station}/heartbeat
func (i *Ingestor) handleHeartbeat(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		i.logger.Warn("unexpected heartbeat topic", "topic", topic)
		return nil
	}
	stationID := parts[2]

	var ev StationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		i.logger.Warn("dropping malformed heartbeat", "topic", topic, "error", err)
		return nil
	}
	if ev.StationID == "" {
		ev.StationID = stationID
	}

	battery := ev.BatteryPct
	if battery == 0 {
		// Zero means the station did not report a battery level.
		battery = -1
	}

	i.rec.WriteHeartbeat(ev.StationID, battery, ev.BikesDocked)
	i.logger.Debug("heartbeat recorded", "station", ev.StationID)
	return nil
}
