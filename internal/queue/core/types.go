// Package core defines the notification intake and fail-queue abstractions
// shared by the queue factory and its infra drivers.
package core

import (
	"context"
	"encoding/json"
	"fmt"

	googleuuid "github.com/google/uuid"

	"bundleindex/pkg/domain"
)

// Driver identifies a concrete queue backend implementation.
type Driver string

const (
	DriverMemory Driver = "memory" // in-memory (tests)
	DriverSQS    Driver = "sqs"    // AWS SQS
)

// Message is one received notification plus the delivery handle needed to
// acknowledge it. Unacknowledged messages are redelivered by the backend
// (at-least-once semantics).
type Message struct {
	ID           string
	Receipt      string
	Notification domain.Notification
}

// Queue consumes bundle notifications.
type Queue interface {
	// Receive blocks up to the backend's wait time and returns at most max
	// messages. An empty slice with nil error means the wait timed out.
	Receive(ctx context.Context, max int) ([]Message, error)
	// Ack marks a message as processed so it is not redelivered.
	Ack(ctx context.Context, msg Message) error
	// Driver returns the configured backend driver identifier.
	Driver() Driver
}

// FailQueue publishes terminal per-bundle failures for operator attention.
type FailQueue interface {
	Publish(ctx context.Context, report domain.FailureReport) error
}

// ParseNotification decodes and validates a notification payload. The bundle
// uuid must parse as a UUID and the version and action must be well-formed;
// a defective payload is the producer's bug and is rejected outright.
func ParseNotification(data []byte) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return domain.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if _, err := googleuuid.Parse(n.BundleUUID); err != nil {
		return domain.Notification{}, fmt.Errorf("notification bundle_uuid %q: %w", n.BundleUUID, err)
	}
	if n.BundleVersion == "" {
		return domain.Notification{}, fmt.Errorf("notification missing bundle_version")
	}
	if n.Action != domain.ActionAdd && n.Action != domain.ActionDelete {
		return domain.Notification{}, fmt.Errorf("notification action %q unknown", n.Action)
	}
	return n, nil
}
