package inventory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ResourceKind identifies the inventory resource an event describes.
type ResourceKind string

const (
	KindHolding ResourceKind = "HOLDING"
	KindItem    ResourceKind = "ITEM"
)

// EventAction is the change the event carries.
type EventAction string

const (
	ActionCreate EventAction = "CREATE"
	ActionUpdate EventAction = "UPDATE"
)

// TenantHeader is the transport header carrying the origin tenant. It is
// redundant with the payload field so routing can happen before decode.
const TenantHeader = "x-tenant"

// ValidationError marks an event as structurally invalid. Dispatch treats it
// as a processing failure, never as an ignorable event.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid resource event: " + e.Reason
}

// BatchContext correlates the many item events produced by one inventory-side
// bulk operation.
type BatchContext struct {
	ID            uuid.UUID `json:"id"`
	TotalExpected int       `json:"totalExpected"`
}

// ResourceEvent is the typed envelope of one consumed change event.
// Constructed once per message, immutable, discarded after handling.
type ResourceEvent struct {
	Kind    ResourceKind
	Action  EventAction
	Tenant  string
	Old     json.RawMessage
	New     json.RawMessage
	Batch   *BatchContext
	Headers map[string]string
}

// envelope is the wire shape of a change event.
type envelope struct {
	Type   EventAction     `json:"type"`
	Tenant string          `json:"tenant"`
	Old    json.RawMessage `json:"old"`
	New    json.RawMessage `json:"new"`
	Batch  *BatchContext   `json:"batch,omitempty"`
}

// ParseResourceEvent decodes and validates a raw change-event payload.
// The resource kind comes from the topic binding, not the payload.
func ParseResourceEvent(kind ResourceKind, raw []byte, headers map[string]string) (*ResourceEvent, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Reason: "empty payload"}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("undecodable payload: %v", err)}
	}

	tenant := headers[TenantHeader]
	if tenant == "" {
		tenant = env.Tenant
	}
	if tenant == "" {
		return nil, &ValidationError{Reason: "missing tenant"}
	}

	switch env.Type {
	case ActionCreate:
		if isNullValue(env.New) {
			return nil, &ValidationError{Reason: "create event without new value"}
		}
	case ActionUpdate:
		if isNullValue(env.Old) || isNullValue(env.New) {
			return nil, &ValidationError{Reason: "update event requires both old and new values"}
		}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown action %q", env.Type)}
	}

	if env.Batch != nil && (env.Batch.ID == uuid.Nil || env.Batch.TotalExpected <= 0) {
		return nil, &ValidationError{Reason: "malformed batch context"}
	}

	return &ResourceEvent{
		Kind:    kind,
		Action:  env.Type,
		Tenant:  tenant,
		Old:     env.Old,
		New:     env.New,
		Batch:   env.Batch,
		Headers: headers,
	}, nil
}

func isNullValue(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// OldHolding decodes the event's old value as a holding.
func (e *ResourceEvent) OldHolding() (Holding, error) {
	return decodeHolding(e.Old)
}

// NewHolding decodes the event's new value as a holding.
func (e *ResourceEvent) NewHolding() (Holding, error) {
	return decodeHolding(e.New)
}

// OldItem decodes the event's old value as an item.
func (e *ResourceEvent) OldItem() (Item, error) {
	return decodeItem(e.Old)
}

// NewItem decodes the event's new value as an item.
func (e *ResourceEvent) NewItem() (Item, error) {
	return decodeItem(e.New)
}
