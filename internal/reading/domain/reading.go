// Package domain holds the telemetry sample type.
package domain

// Reading is a single telemetry sample relayed by a gateway. Immutable once
// written; ordered by (SensorID, Timestamp).
type Reading struct {
	// SensorID is the emitting tag's identifier.
	SensorID string `json:"id"`
	// Timestamp is the measurement time in milliseconds since epoch.
	Timestamp int64 `json:"timestamp"`
	// Data is the opaque sensor payload.
	Data string `json:"data"`
	// RSSI is the received signal strength as reported by the gateway.
	RSSI int `json:"rssi"`
	// GatewayMAC identifies the relaying gateway.
	GatewayMAC string `json:"gwmac"`
	// GatewayTimestamp is the gateway-reported receive time.
	GatewayTimestamp string `json:"received"`
	// Coordinates is an opaque location string; may be empty.
	Coordinates string `json:"coordinates"`
	// ReceivedAt is the server-assigned ingestion time in milliseconds
	// since epoch, set when the batch is formatted for storage.
	ReceivedAt int64 `json:"received_at"`
}
