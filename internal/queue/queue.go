// Package queue re-exports the notification queue abstractions for stable
// imports and selects a driver from the environment.
package queue

import (
	"context"
	"fmt"
	"os"

	"bundleindex/internal/infra/queue/memory"
	"bundleindex/internal/infra/queue/sqs"
	"bundleindex/internal/queue/core"
	"bundleindex/pkg/domain"
)

type (
	// Driver identifies a queue driver.
	Driver = core.Driver
	// Message is one received notification with its delivery handle.
	Message = core.Message
	// Queue consumes bundle notifications.
	Queue = core.Queue
	// FailQueue publishes terminal failure reports.
	FailQueue = core.FailQueue
)

const (
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQS is the AWS SQS driver.
	DriverSQS = core.DriverSQS
)

// ParseNotification decodes and validates a raw notification payload.
func ParseNotification(data []byte) (domain.Notification, error) {
	return core.ParseNotification(data)
}

// Open selects queue implementations using environment variables.
//
//	BUNDLEINDEX_QUEUE_DRIVER: memory|sqs (default memory)
//	(SQS specific variables documented in the sqs driver)
//
// The returned FailQueue may be nil when the driver has no fail queue
// configured; callers must tolerate that.
func Open(ctx context.Context) (Queue, FailQueue, error) {
	driver := os.Getenv("BUNDLEINDEX_QUEUE_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.NewQueue(), memory.NewFailQueue(), nil
	case DriverSQS:
		q, fq, err := sqs.OpenFromEnv(ctx)
		if err != nil {
			return nil, nil, err
		}
		if fq == nil {
			return q, nil, nil
		}
		return q, fq, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %s", driver)
	}
}
