package core

import (
	"context"
	"time"
)

// StoreEventType names the events emitted around store operations. Each
// mutating operation emits a start event, then exactly one of success or
// failed.
type StoreEventType string

const (
	DatasetCreateStart   StoreEventType = "dataset:create:start"
	DatasetCreateSuccess StoreEventType = "dataset:create:success"
	DatasetCreateFailed  StoreEventType = "dataset:create:failed"
	DatasetUpdateStart   StoreEventType = "dataset:update:start"
	DatasetUpdateSuccess StoreEventType = "dataset:update:success"
	DatasetUpdateFailed  StoreEventType = "dataset:update:failed"
	DatasetDeleteStart   StoreEventType = "dataset:delete:start"
	DatasetDeleteSuccess StoreEventType = "dataset:delete:success"
	DatasetDeleteFailed  StoreEventType = "dataset:delete:failed"
	RecordCreateStart    StoreEventType = "record:create:start"
	RecordCreateSuccess  StoreEventType = "record:create:success"
	RecordCreateFailed   StoreEventType = "record:create:failed"
	RecordUpdateStart    StoreEventType = "record:update:start"
	RecordUpdateSuccess  StoreEventType = "record:update:success"
	RecordUpdateFailed   StoreEventType = "record:update:failed"
	RecordDeleteStart    StoreEventType = "record:delete:start"
	RecordDeleteSuccess  StoreEventType = "record:delete:success"
	RecordDeleteFailed   StoreEventType = "record:delete:failed"
)

// StoreEvent carries the context of a store operation to subscribers.
type StoreEvent struct {
	Type      StoreEventType `json:"type"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	Operation string         `json:"operation"` // e.g. "create", "update"
	Dataset   *string        `json:"dataset,omitempty"`
	Input     any            `json:"input,omitempty"`
	Output    any            `json:"output,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Duration  *int64         `json:"duration,omitempty"` // milliseconds
}

// CallbackFunction handles a store event delivered to a subscriber. A
// returned error is logged by the bus, not propagated to the operation that
// emitted the event.
type CallbackFunction func(ctx context.Context, event StoreEvent) error

// NewStoreEvent builds an event stamped with the current time. Duration is
// filled in for success and failed events, measured from start.
func NewStoreEvent(eventType StoreEventType, operation, dataset string, input, output any, opErr error, start time.Time) StoreEvent {
	event := StoreEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Input:     input,
		Output:    output,
	}
	if dataset != "" {
		event.Dataset = &dataset
	}
	if opErr != nil {
		msg := opErr.Error()
		event.Error = &msg
	}
	if !start.IsZero() {
		d := time.Since(start).Milliseconds()
		event.Duration = &d
	}
	return event
}
