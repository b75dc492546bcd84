package inventory

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Holding is the engine's view of an inventory holdings record: only the
// fields the reconciliation handlers read.
type Holding struct {
	ID                  uuid.UUID  `json:"id"`
	InstanceID          uuid.UUID  `json:"instanceId"`
	PermanentLocationID *uuid.UUID `json:"permanentLocationId,omitempty"`
}

func decodeHolding(raw json.RawMessage) (Holding, error) {
	var h Holding
	if err := json.Unmarshal(raw, &h); err != nil {
		return Holding{}, &ValidationError{Reason: "malformed holding value: " + err.Error()}
	}
	if h.ID == uuid.Nil {
		return Holding{}, &ValidationError{Reason: "holding value without id"}
	}
	return h, nil
}

// InstanceChanged reports whether the holding moved to a different instance.
func (h Holding) InstanceChanged(old Holding) bool {
	return h.InstanceID != old.InstanceID
}

// PermanentLocationChanged reports whether the holding's permanent location
// moved.
func (h Holding) PermanentLocationChanged(old Holding) bool {
	switch {
	case h.PermanentLocationID == nil && old.PermanentLocationID == nil:
		return false
	case h.PermanentLocationID == nil || old.PermanentLocationID == nil:
		return true
	default:
		return *h.PermanentLocationID != *old.PermanentLocationID
	}
}
