package domain

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NotificationType identifies a notification envelope on the wire
const NotificationType = "TransferNotification"

// Notification is the message delivered to an account owner after a transfer
type Notification struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Message   string          `json:"message"`
}

// NotificationEnvelope wraps a notification with metadata for serialization
type NotificationEnvelope struct {
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Data      jsoniter.RawMessage `json:"data"`
}

// EncodeNotification converts a notification to JSON bytes with envelope
func EncodeNotification(n Notification, at time.Time) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	return json.Marshal(NotificationEnvelope{
		Type:      NotificationType,
		Timestamp: at.UTC(),
		Data:      data,
	})
}

// DecodeNotification converts JSON bytes back to a notification and its timestamp
func DecodeNotification(data []byte) (Notification, time.Time, error) {
	var envelope NotificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Notification{}, time.Time{}, err
	}

	if envelope.Type != NotificationType {
		return Notification{}, time.Time{}, fmt.Errorf("unknown envelope type: %s", envelope.Type)
	}

	var n Notification
	if err := json.Unmarshal(envelope.Data, &n); err != nil {
		return Notification{}, time.Time{}, err
	}

	return n, envelope.Timestamp, nil
}
