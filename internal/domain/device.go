package domain

import "time"

// Device types. A device registered over the push channel defaults to
// TypePush; anything else (legacy web clients) is TypeOther.
const (
	TypePush  = "ac2dm"
	TypeOther = "other"
)

// DefaultDeviceName is used when the client does not send a display name.
const DefaultDeviceName = "Phone"

// DeviceRecord maps a stable, client-chosen device id to the delivery
// channel's current registration id for that device. The registration id
// rotates over the device's lifetime; the device id does not.
type DeviceRecord struct {
	DeviceID       string     `json:"id" dynamodbav:"device_id"`
	Owner          string     `json:"owner" dynamodbav:"owner"`
	RegistrationID string     `json:"regid" dynamodbav:"registration_id"`
	Type           string     `json:"type" dynamodbav:"device_type"`
	Name           string     `json:"name" dynamodbav:"device_name"`
	PhoneNumber    string     `json:"phone_number" dynamodbav:"phone_number"`
	// RegisteredAt is set whenever the registration id is overwritten.
	// Nil means the record has never been re-registered since creation,
	// which the eviction policy treats as infinitely old.
	RegisteredAt *time.Time `json:"ts" dynamodbav:"registered_at"`
}
