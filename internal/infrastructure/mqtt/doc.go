// Package mqtt provides MQTT client connectivity for Veloway Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Veloway uses MQTT to receive telemetry from docking stations. Each
// station publishes dock events, lock status and heartbeats to the
// broker; Core subscribes and records them.
//
//	Docking Stations → MQTT Broker → Veloway Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all station telemetry
//	err = client.Subscribe(mqtt.Topics{}.AllStationEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish gateway status
//	topic := mqtt.Topics{}.GatewayStatus()
//	client.Publish(topic, []byte(`{"status":"online"}`), 1, true)
package mqtt
