package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of message
type MessageType string

const (
	// Client to Server
	MsgTypeIdentify  MessageType = "identify"
	MsgTypeTelemetry MessageType = "telemetry"
	MsgTypeKeepalive MessageType = "keepalive"

	// Server to Client
	MsgTypeAck MessageType = "ack"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// IdentifyMessage is sent by the engine gateway on connection
type IdentifyMessage struct {
	Type     MessageType `json:"type"`
	EngineID string      `json:"engine_id"`
	Vessel   string      `json:"vessel"`
}

// TelemetryData carries one sensor sweep. The four perception channels are
// pointers so that a missing field is distinguishable from a zero value and
// can be rejected at ingestion.
type TelemetryData struct {
	Timestamp       string   `json:"timestamp"`
	ExhaustGasTemp  *float64 `json:"exhaust_gas_temp_c"`
	LubeOilPressure *float64 `json:"lube_oil_pressure_bar"`
	MainBearingTemp *float64 `json:"main_bearing_temp_c"`
	VibrationRMS    *float64 `json:"vibration_rms_mm_s"`
	EngineRPM       *float64 `json:"engine_rpm,omitempty"`
	FuelConsumption *float64 `json:"fuel_consumption_l_h,omitempty"`
}

// TelemetryMessage is sent by the gateway on every sensor sweep
type TelemetryMessage struct {
	Type MessageType   `json:"type"`
	Data TelemetryData `json:"data"`
}

// KeepaliveMessage is sent by the gateway between sweeps
type KeepaliveMessage struct {
	Type MessageType `json:"type"`
}

// AckMessage is sent by the server in response to messages
type AckMessage struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
}

// AckStatus constants
const (
	AckStatusIdentified = "identified"
	AckStatusAlive      = "alive"
	AckStatusError      = "error"
)

// ParseMessage parses a JSON line into the appropriate message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeIdentify:
		var msg IdentifyMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid identify message: %w", err)
		}
		if err := validateIdentify(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeTelemetry:
		var msg TelemetryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid telemetry message: %w", err)
		}
		if err := validateTelemetry(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeKeepalive:
		var msg KeepaliveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid keepalive message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// validateIdentify validates an identify message
func validateIdentify(msg *IdentifyMessage) error {
	if msg.EngineID == "" {
		return fmt.Errorf("engine_id is required")
	}
	if msg.Vessel == "" {
		return fmt.Errorf("vessel is required")
	}
	return nil
}

// validateTelemetry validates a telemetry message. Feature-level checks
// (presence, finiteness) belong to the perception core; the transport only
// rejects structurally broken messages.
func validateTelemetry(msg *TelemetryMessage) error {
	if msg.Data.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if _, err := time.Parse(time.RFC3339, msg.Data.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp format (must be RFC3339): %w", err)
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// NewAckMessage creates a new acknowledgment message
func NewAckMessage(status string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: status,
	}
}
