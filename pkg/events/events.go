// Package events defines the event types published over the run lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/quantor/signalflow/pkg/models"
)

type EventType string

// Topic carries every automation run event.
const Topic = "signalflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"
	RunFailedEvent   EventType = "run.failed"

	NodeEvaluatedEvent    EventType = "node.evaluated"
	ActionDispatchedEvent EventType = "action.dispatched"
)

type BaseEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	AutomationID string    `json:"automation_id"`
	RunID        string    `json:"run_id,omitempty"`
}

func NewBaseEvent(eventType EventType, automationID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now(),
		AutomationID: automationID,
	}
}

type RunStarted struct {
	BaseEvent
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunFinished struct {
	BaseEvent

	Status   models.RunStatus `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Duration time.Duration    `json:"duration"`
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

type RunFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type NodeEvaluated struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
	Result   bool            `json:"result"`
	Reason   string          `json:"reason,omitempty"`
}

func (e NodeEvaluated) GetType() EventType {
	return NodeEvaluatedEvent
}

type ActionDispatched struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
}

func (e ActionDispatched) GetType() EventType {
	return ActionDispatchedEvent
}
