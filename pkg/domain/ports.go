package domain

import (
	"context"
	"time"
)

// Sink applies operations against the external document index. Implementations
// must be idempotent: applying the same operation twice leaves the index in
// the same state as applying it once. Retryable failures are wrapped in
// TransientSinkError; anything else is a permanent rejection.
type Sink interface {
	Apply(ctx context.Context, op Operation) error
}

// Action discriminates inbound bundle notifications.
type Action string

// Notification actions.
const (
	// ActionAdd announces a new bundle version.
	ActionAdd Action = "add"
	// ActionDelete retracts a bundle.
	ActionDelete Action = "delete"
)

// Notification is one inbound event from the messaging collaborator: a bundle
// version was added or deleted upstream.
type Notification struct {
	BundleUUID    string `json:"bundle_uuid"`
	BundleVersion string `json:"bundle_version"`
	Action        Action `json:"action"`
}

// FailureReport is published to the operator-visible fail queue when a bundle
// or entity fails terminally. Per-bundle failures never block other bundles;
// they surface here instead of crashing the worker.
type FailureReport struct {
	BundleUUID    string    `json:"bundle_uuid"`
	BundleVersion string    `json:"bundle_version"`
	EntityID      string    `json:"entity_id,omitempty"`
	Stage         string    `json:"stage"`
	Reason        string    `json:"reason"`
	Attempts      int       `json:"attempts,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
