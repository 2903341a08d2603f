package location

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// DeviceMessage is the JSON payload devices publish on the broker.
type DeviceMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Validate checks coordinate ranges and the timestamp.
func (m *DeviceMessage) Validate() error {
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if m.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}

// Fix converts the message into a LocationFix.
func (m *DeviceMessage) Fix() domain.LocationFix {
	return domain.LocationFix{
		Lat:       m.Latitude,
		Lon:       m.Longitude,
		Timestamp: time.Unix(m.Timestamp, 0).UTC(),
		DeviceID:  m.DeviceID,
		Accuracy:  m.Accuracy,
	}
}

// ParseDeviceMessage decodes and validates a device payload. fallbackID is
// used when the payload carries no device_id, e.g. the id taken from the
// topic.
func ParseDeviceMessage(data []byte, fallbackID string) (domain.LocationFix, error) {
	var msg DeviceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.LocationFix{}, fmt.Errorf("decode device message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return domain.LocationFix{}, fmt.Errorf("invalid device message: %w", err)
	}
	if msg.DeviceID == "" {
		msg.DeviceID = fallbackID
	}
	return msg.Fix(), nil
}

// EncodeDeviceMessage renders a fix in the device wire format.
func EncodeDeviceMessage(fix domain.LocationFix) ([]byte, error) {
	return json.Marshal(DeviceMessage{
		DeviceID:  fix.DeviceID,
		Latitude:  fix.Lat,
		Longitude: fix.Lon,
		Accuracy:  fix.Accuracy,
		Timestamp: fix.Timestamp.Unix(),
	})
}
