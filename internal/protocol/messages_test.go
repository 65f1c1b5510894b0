package protocol

import (
	"testing"
	"time"
)

func float64Ptr(v float64) *float64 { return &v }

func TestParseMessage_Identify(t *testing.T) {
	data := []byte(`{"type":"identify","engine_id":"ME-4501","vessel":"MV Aegean Star"}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	identify, ok := msg.(*IdentifyMessage)
	if !ok {
		t.Fatalf("Expected *IdentifyMessage, got %T", msg)
	}
	if identify.EngineID != "ME-4501" {
		t.Errorf("Expected engine ME-4501, got %s", identify.EngineID)
	}
	if identify.Vessel != "MV Aegean Star" {
		t.Errorf("Expected vessel MV Aegean Star, got %s", identify.Vessel)
	}
}

func TestParseMessage_IdentifyValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing engine_id", `{"type":"identify","vessel":"MV Aegean Star"}`},
		{"missing vessel", `{"type":"identify","engine_id":"ME-4501"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.data)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestParseMessage_Telemetry(t *testing.T) {
	data := []byte(`{
		"type": "telemetry",
		"data": {
			"timestamp": "2025-03-01T12:00:00Z",
			"exhaust_gas_temp_c": 385.2,
			"lube_oil_pressure_bar": 3.4,
			"main_bearing_temp_c": 71.8,
			"vibration_rms_mm_s": 4.6,
			"engine_rpm": 514
		}
	}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	telemetry, ok := msg.(*TelemetryMessage)
	if !ok {
		t.Fatalf("Expected *TelemetryMessage, got %T", msg)
	}
	if telemetry.Data.ExhaustGasTemp == nil || *telemetry.Data.ExhaustGasTemp != 385.2 {
		t.Errorf("Unexpected exhaust temp: %v", telemetry.Data.ExhaustGasTemp)
	}
	if telemetry.Data.FuelConsumption != nil {
		t.Error("Absent optional channel should stay nil")
	}
}

func TestParseMessage_TelemetryTimestampValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing timestamp", `{"type":"telemetry","data":{"exhaust_gas_temp_c":385}}`},
		{"bad format", `{"type":"telemetry","data":{"timestamp":"01-03-2025 12:00"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.data)); err == nil {
				t.Error("Expected timestamp validation error")
			}
		})
	}
}

func TestParseMessage_KeepaliveAndUnknown(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"keepalive"}`))
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}
	if _, ok := msg.(*KeepaliveMessage); !ok {
		t.Fatalf("Expected *KeepaliveMessage, got %T", msg)
	}

	if _, err := ParseMessage([]byte(`{"type":"diagnostics"}`)); err == nil {
		t.Error("Expected error for unknown message type")
	}
	if _, err := ParseMessage([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestReadingMessage_FeatureMap(t *testing.T) {
	msg := &ReadingMessage{
		EngineID: "ME-4501",
		Data: TelemetryData{
			Timestamp:       "2025-03-01T12:00:00Z",
			ExhaustGasTemp:  float64Ptr(385.2),
			LubeOilPressure: float64Ptr(3.4),
			MainBearingTemp: float64Ptr(71.8),
			VibrationRMS:    float64Ptr(4.6),
		},
	}

	features := msg.FeatureMap()
	if len(features) != 4 {
		t.Fatalf("Expected 4 features, got %d", len(features))
	}
	if features["exhaust_gas_temp_c"] != 385.2 {
		t.Errorf("Unexpected exhaust temp: %v", features["exhaust_gas_temp_c"])
	}

	// Missing channels are omitted, not zero-filled.
	msg.Data.VibrationRMS = nil
	features = msg.FeatureMap()
	if _, ok := features["vibration_rms_mm_s"]; ok {
		t.Error("Missing channel should be absent from the map")
	}
}

func TestReadingMessage_TimestampFallback(t *testing.T) {
	receivedAt := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	msg := &ReadingMessage{
		ReceivedAt: receivedAt,
		Data:       TelemetryData{Timestamp: "2025-03-01T12:00:00Z"},
	}

	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := msg.Timestamp(); !got.Equal(want) {
		t.Errorf("Expected sweep timestamp %v, got %v", want, got)
	}

	msg.Data.Timestamp = "garbage"
	if got := msg.Timestamp(); !got.Equal(receivedAt) {
		t.Errorf("Expected fallback to receive time, got %v", got)
	}
}

func TestAlertEvent_EncodeDecode(t *testing.T) {
	event := &AlertEvent{
		Type:      AlertTypeRaised,
		EngineID:  "ME-4501",
		Vessel:    "MV Aegean Star",
		Component: "ME-4501",
		Severity:  "CRITICAL",
		Previous:  "NORMAL",
		Score:     0.82,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := EncodeAlertEvent(event)
	if err != nil {
		t.Fatalf("EncodeAlertEvent failed: %v", err)
	}

	decoded, err := DecodeAlertEvent(data)
	if err != nil {
		t.Fatalf("DecodeAlertEvent failed: %v", err)
	}
	if decoded.Type != AlertTypeRaised || decoded.Severity != "CRITICAL" || decoded.Score != 0.82 {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
}
