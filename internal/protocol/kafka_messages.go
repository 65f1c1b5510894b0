package protocol

import (
	"encoding/json"
	"time"
)

// ReadingMessage is the internal telemetry format carried on Kafka,
// partitioned by engine ID so readings per engine stay in arrival order.
type ReadingMessage struct {
	ConnectionID string        `json:"connection_id"`
	EngineID     string        `json:"engine_id"`
	Vessel       string        `json:"vessel"`
	ReceivedAt   time.Time     `json:"received_at"`
	Data         TelemetryData `json:"data"`
}

// FeatureMap flattens the perception channels into a feature-name keyed map
// for validation by the perception core. Missing channels are omitted so
// the core can reject them explicitly.
func (m *ReadingMessage) FeatureMap() map[string]float64 {
	out := make(map[string]float64, 4)
	if m.Data.ExhaustGasTemp != nil {
		out["exhaust_gas_temp_c"] = *m.Data.ExhaustGasTemp
	}
	if m.Data.LubeOilPressure != nil {
		out["lube_oil_pressure_bar"] = *m.Data.LubeOilPressure
	}
	if m.Data.MainBearingTemp != nil {
		out["main_bearing_temp_c"] = *m.Data.MainBearingTemp
	}
	if m.Data.VibrationRMS != nil {
		out["vibration_rms_mm_s"] = *m.Data.VibrationRMS
	}
	return out
}

// Timestamp returns the sweep timestamp, falling back to the broker receive
// time when missing or unparseable.
func (m *ReadingMessage) Timestamp() time.Time {
	if ts, err := time.Parse(time.RFC3339, m.Data.Timestamp); err == nil {
		return ts
	}
	return m.ReceivedAt
}

// AlertEvent is published on every alert severity transition.
type AlertEvent struct {
	Type           string    `json:"type"` // ALERT_RAISED, ALERT_LOWERED
	EngineID       string    `json:"engine_id"`
	Vessel         string    `json:"vessel"`
	Component      string    `json:"component"`
	Severity       string    `json:"severity"`
	Previous       string    `json:"previous"`
	Score          float64   `json:"score"`
	DegradationPct float64   `json:"degradation_percentage,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

const (
	AlertTypeRaised  = "ALERT_RAISED"
	AlertTypeLowered = "ALERT_LOWERED"
)

// EncodeReadingMessage encodes a ReadingMessage to JSON
func EncodeReadingMessage(msg *ReadingMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeReadingMessage decodes JSON to ReadingMessage
func DecodeReadingMessage(data []byte) (*ReadingMessage, error) {
	var msg ReadingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(event *AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeAlertEvent decodes JSON to AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
